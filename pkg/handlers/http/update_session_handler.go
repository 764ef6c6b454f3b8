package http

import (
	"encoding/json"

	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type updateSessionHandler struct {
	logger *logrus.Logger
	actor  appSession.Actor
}

func NewUpdateSessionHandler(logger *logrus.Logger, actor appSession.Actor) Handler {
	return &updateSessionHandler{
		logger: logger,
		actor:  actor,
	}
}

// Handle @Summary Update a session
// @Description Applies a partial update. Only whitelisted fields are honoured; the rest are ignored
// @Tags Sessions
// @Accept json
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Session "Session updated"
// @Failure 400 {object} map[string]interface{} "Invalid patch"
// @Failure 403 {object} map[string]interface{} "Requester is not the owner"
// @Failure 404 {object} map[string]interface{} "Session not found or expired"
// @Failure 409 {object} map[string]interface{} "Session is closed"
// @Router /api/v1/sessions/{session_id} [patch]
func (h *updateSessionHandler) Handle(c *fiber.Ctx) error {
	requester, ok := requesterFrom(c)
	if !ok {
		return respondUnauthorized(c)
	}
	sessionID := c.Params("session_id")

	var raw map[string]interface{}
	if err := json.Unmarshal(c.Body(), &raw); err != nil {
		h.logger.WithError(err).Debug("failed to parse session patch")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidJsonPayload})
	}
	patch, err := domainSession.DecodePatch(raw)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}

	ctx := c.UserContext()
	current, err := h.actor.Get(ctx, sessionID)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	// The owner never changes, so checking it before the update is race free.
	if !requester.CanManage(current) {
		return HandleErrorResponse(c, h.logger, domain.ErrForbidden)
	}
	if patch.IsEmpty() {
		return c.Status(fiber.StatusOK).JSON(current)
	}

	updated, err := h.actor.Update(ctx, sessionID, patch)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(updated)
}
