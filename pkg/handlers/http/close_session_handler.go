package http

import (
	"github.com/NeuralTrust/RecruitGate/pkg/app/participant"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type closeSessionHandler struct {
	logger      *logrus.Logger
	coordinator participant.Coordinator
}

func NewCloseSessionHandler(logger *logrus.Logger, coordinator participant.Coordinator) Handler {
	return &closeSessionHandler{
		logger:      logger,
		coordinator: coordinator,
	}
}

// Handle @Summary Close a session
// @Description Closes a session and schedules the removal of its side channel. Owner or admin only
// @Tags Sessions
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Session "Session closed"
// @Failure 403 {object} map[string]interface{} "Requester is not the owner"
// @Failure 404 {object} map[string]interface{} "Session not found or expired"
// @Router /api/v1/sessions/{session_id}/close [post]
func (h *closeSessionHandler) Handle(c *fiber.Ctx) error {
	requester, ok := requesterFrom(c)
	if !ok {
		return respondUnauthorized(c)
	}
	s, err := h.coordinator.Close(c.UserContext(), c.Params("session_id"), requester)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(s)
}
