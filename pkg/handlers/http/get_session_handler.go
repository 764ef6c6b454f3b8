package http

import (
	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type getSessionHandler struct {
	logger *logrus.Logger
	finder appSession.Finder
}

func NewGetSessionHandler(logger *logrus.Logger, finder appSession.Finder) Handler {
	return &getSessionHandler{
		logger: logger,
		finder: finder,
	}
}

// Handle @Summary Get a session
// @Description Returns a session, served from the local mirror when possible
// @Tags Sessions
// @Produce json
// @Param session_id path string true "Session ID"
// @Success 200 {object} session.Session "Session"
// @Failure 404 {object} map[string]interface{} "Session not found or expired"
// @Router /api/v1/sessions/{session_id} [get]
func (h *getSessionHandler) Handle(c *fiber.Ctx) error {
	s, err := h.finder.Find(c.UserContext(), c.Params("session_id"))
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(s)
}
