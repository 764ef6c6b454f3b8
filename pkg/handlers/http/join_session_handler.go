package http

import (
	"github.com/NeuralTrust/RecruitGate/pkg/app/participant"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type joinSessionHandler struct {
	logger      *logrus.Logger
	coordinator participant.Coordinator
}

func NewJoinSessionHandler(logger *logrus.Logger, coordinator participant.Coordinator) Handler {
	return &joinSessionHandler{
		logger:      logger,
		coordinator: coordinator,
	}
}

// Handle @Summary Join a session
// @Description Adds the requester to the roster
// @Tags Participants
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Session "Joined"
// @Failure 404 {object} map[string]interface{} "Session not found or expired"
// @Failure 409 {object} map[string]interface{} "Full, closed or already a member"
// @Router /api/v1/sessions/{session_id}/join [post]
func (h *joinSessionHandler) Handle(c *fiber.Ctx) error {
	requester, ok := requesterFrom(c)
	if !ok {
		return respondUnauthorized(c)
	}
	s, err := h.coordinator.Join(c.UserContext(), c.Params("session_id"), requester.ID)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(s)
}
