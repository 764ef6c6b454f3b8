package http

import (
	"github.com/NeuralTrust/RecruitGate/pkg/app/participant"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type leaveSessionHandler struct {
	logger      *logrus.Logger
	coordinator participant.Coordinator
}

func NewLeaveSessionHandler(logger *logrus.Logger, coordinator participant.Coordinator) Handler {
	return &leaveSessionHandler{
		logger:      logger,
		coordinator: coordinator,
	}
}

// Handle @Summary Leave a session
// @Description Removes the requester from the roster. The owner cannot leave
// @Tags Participants
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Session "Left"
// @Failure 403 {object} map[string]interface{} "Owner cannot leave"
// @Failure 404 {object} map[string]interface{} "Session not found or expired"
// @Failure 409 {object} map[string]interface{} "Not a member"
// @Router /api/v1/sessions/{session_id}/leave [post]
func (h *leaveSessionHandler) Handle(c *fiber.Ctx) error {
	requester, ok := requesterFrom(c)
	if !ok {
		return respondUnauthorized(c)
	}
	s, err := h.coordinator.Leave(c.UserContext(), c.Params("session_id"), requester.ID)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(s)
}
