package http

import (
	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	domainSideChannel "github.com/NeuralTrust/RecruitGate/pkg/domain/sidechannel"
	"github.com/NeuralTrust/RecruitGate/pkg/handlers/http/request"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type bindSideChannelHandler struct {
	logger *logrus.Logger
	actor  appSession.Actor
	store  domainSideChannel.Store
}

func NewBindSideChannelHandler(
	logger *logrus.Logger,
	actor appSession.Actor,
	store domainSideChannel.Store,
) Handler {
	return &bindSideChannelHandler{
		logger: logger,
		actor:  actor,
		store:  store,
	}
}

// Handle @Summary Bind a side channel
// @Description Ties a temporary resource to an open session. Owner or admin only
// @Tags SideChannels
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Param binding body request.BindSideChannelRequest true "Binding"
// @Success 200 {object} sidechannel.Binding "Bound"
// @Failure 403 {object} map[string]interface{} "Requester is not the owner"
// @Failure 404 {object} map[string]interface{} "Session not found or expired"
// @Failure 409 {object} map[string]interface{} "Session is closed"
// @Router /api/v1/side-channels/{session_id} [put]
func (h *bindSideChannelHandler) Handle(c *fiber.Ctx) error {
	requester, ok := requesterFrom(c)
	if !ok {
		return respondUnauthorized(c)
	}

	var req request.BindSideChannelRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidJsonPayload})
	}
	if err := req.Validate(); err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}

	ctx := c.UserContext()
	sessionID := c.Params("session_id")
	s, err := h.actor.Get(ctx, sessionID)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	if !requester.CanManage(s) {
		return HandleErrorResponse(c, h.logger, domain.ErrForbidden)
	}
	if !s.IsOpen() {
		return HandleErrorResponse(c, h.logger, domain.ErrClosed)
	}

	if err := h.store.Save(ctx, sessionID, req.ResourceID, req.TTL()); err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	binding, err := h.store.Get(ctx, sessionID)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(binding)
}

type getSideChannelHandler struct {
	logger *logrus.Logger
	store  domainSideChannel.Store
}

func NewGetSideChannelHandler(logger *logrus.Logger, store domainSideChannel.Store) Handler {
	return &getSideChannelHandler{
		logger: logger,
		store:  store,
	}
}

// Handle @Summary Get a side channel binding
// @Tags SideChannels
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} sidechannel.Binding "Binding"
// @Failure 404 {object} map[string]interface{} "No binding"
// @Router /api/v1/side-channels/{session_id} [get]
func (h *getSideChannelHandler) Handle(c *fiber.Ctx) error {
	binding, err := h.store.Get(c.UserContext(), c.Params("session_id"))
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(binding)
}

type deleteSideChannelHandler struct {
	logger *logrus.Logger
	actor  appSession.Actor
	store  domainSideChannel.Store
}

func NewDeleteSideChannelHandler(
	logger *logrus.Logger,
	actor appSession.Actor,
	store domainSideChannel.Store,
) Handler {
	return &deleteSideChannelHandler{
		logger: logger,
		actor:  actor,
		store:  store,
	}
}

// Handle @Summary Remove a side channel binding
// @Description Owner or admin only. Admins may remove bindings of sessions that are already gone
// @Tags SideChannels
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} map[string]interface{} "Removed"
// @Failure 403 {object} map[string]interface{} "Requester is not the owner"
// @Router /api/v1/side-channels/{session_id} [delete]
func (h *deleteSideChannelHandler) Handle(c *fiber.Ctx) error {
	requester, ok := requesterFrom(c)
	if !ok {
		return respondUnauthorized(c)
	}
	ctx := c.UserContext()
	sessionID := c.Params("session_id")

	if !requester.Admin {
		s, err := h.actor.Get(ctx, sessionID)
		if err != nil {
			return HandleErrorResponse(c, h.logger, err)
		}
		if !requester.CanManage(s) {
			return HandleErrorResponse(c, h.logger, domain.ErrForbidden)
		}
	}
	if err := h.store.CompleteTeardown(ctx, sessionID); err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "side channel removed", "id": sessionID})
}
