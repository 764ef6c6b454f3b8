package http

import (
	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type listSessionsHandler struct {
	logger *logrus.Logger
	actor  appSession.Actor
}

func NewListSessionsHandler(logger *logrus.Logger, actor appSession.Actor) Handler {
	return &listSessionsHandler{
		logger: logger,
		actor:  actor,
	}
}

// Handle @Summary List sessions of a scope
// @Description Returns the live sessions of a scope, newest first
// @Tags Sessions
// @Produce json
// @Param scope query string true "Scope ID"
// @Success 200 {object} map[string]interface{} "Sessions"
// @Failure 400 {object} map[string]interface{} "Missing scope"
// @Router /api/v1/sessions [get]
func (h *listSessionsHandler) Handle(c *fiber.Ctx) error {
	scopeID := c.Query("scope")
	if scopeID == "" {
		return HandleErrorResponse(c, h.logger, domain.NewValidationError("scope", "is required"))
	}
	sessions, err := h.actor.List(c.UserContext(), scopeID)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"scope_id": scopeID,
		"count":    len(sessions),
		"sessions": sessions,
	})
}
