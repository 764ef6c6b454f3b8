package http

import (
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/app/participant"
	"github.com/NeuralTrust/RecruitGate/pkg/handlers/http/request"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type createSessionHandler struct {
	logger      *logrus.Logger
	coordinator participant.Coordinator
	now         func() time.Time
}

func NewCreateSessionHandler(logger *logrus.Logger, coordinator participant.Coordinator) Handler {
	return &createSessionHandler{
		logger:      logger,
		coordinator: coordinator,
		now:         time.Now,
	}
}

// Handle @Summary Create a recruitment session
// @Description Creates a session in the given scope unless the scope is cooling down
// @Tags Sessions
// @Accept json
// @Produce json
// @Param session body request.CreateSessionRequest true "Session request body"
// @Success 201 {object} session.Session "Session created"
// @Failure 400 {object} map[string]interface{} "Invalid request data"
// @Failure 409 {object} map[string]interface{} "Session id already in use"
// @Failure 429 {object} map[string]interface{} "Scope is cooling down"
// @Router /api/v1/sessions [post]
func (h *createSessionHandler) Handle(c *fiber.Ctx) error {
	requester, ok := requesterFrom(c)
	if !ok {
		return respondUnauthorized(c)
	}

	var req request.CreateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.WithError(err).Debug("failed to parse create session request")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidJsonPayload})
	}
	if err := req.Validate(); err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}

	s, err := h.coordinator.CreateSession(c.UserContext(), req.ToSession(requester, h.now()))
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}
