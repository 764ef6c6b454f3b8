package http

import (
	"time"

	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type sessionHistoryHandler struct {
	logger *logrus.Logger
	actor  appSession.Actor
}

func NewSessionHistoryHandler(logger *logrus.Logger, actor appSession.Actor) Handler {
	return &sessionHistoryHandler{
		logger: logger,
		actor:  actor,
	}
}

// Handle @Summary Session history
// @Description Returns the recorded events of a session, optionally bounded by from/to (RFC3339)
// @Tags Sessions
// @Produce json
// @Param session_id path string true "Session ID"
// @Param from query string false "Lower bound, inclusive"
// @Param to query string false "Upper bound, inclusive"
// @Success 200 {object} map[string]interface{} "Events"
// @Failure 400 {object} map[string]interface{} "Invalid time bound"
// @Router /api/v1/sessions/{session_id}/history [get]
func (h *sessionHistoryHandler) Handle(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	from, err := parseBound(c.Query("from"), "from")
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	to, err := parseBound(c.Query("to"), "to")
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return HandleErrorResponse(c, h.logger, domain.NewValidationError("to", "must not be before from"))
	}

	events, err := h.actor.History(c.UserContext(), sessionID, from, to)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"session_id": sessionID,
		"events":     events,
	})
}

func parseBound(raw, field string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "must be an RFC3339 timestamp")
	}
	return t, nil
}
