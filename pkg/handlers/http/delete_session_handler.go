package http

import (
	"github.com/NeuralTrust/RecruitGate/pkg/app/participant"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type deleteSessionHandler struct {
	logger      *logrus.Logger
	coordinator participant.Coordinator
}

func NewDeleteSessionHandler(logger *logrus.Logger, coordinator participant.Coordinator) Handler {
	return &deleteSessionHandler{
		logger:      logger,
		coordinator: coordinator,
	}
}

// Handle @Summary Delete a session
// @Description Removes a session and its side channel. Owner or admin only
// @Tags Sessions
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} map[string]interface{} "Session deleted"
// @Failure 403 {object} map[string]interface{} "Requester is not the owner"
// @Failure 404 {object} map[string]interface{} "Session not found or expired"
// @Router /api/v1/sessions/{session_id} [delete]
func (h *deleteSessionHandler) Handle(c *fiber.Ctx) error {
	requester, ok := requesterFrom(c)
	if !ok {
		return respondUnauthorized(c)
	}
	sessionID := c.Params("session_id")
	if err := h.coordinator.Delete(c.UserContext(), sessionID, requester); err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "session deleted", "id": sessionID})
}
