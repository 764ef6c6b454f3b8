package http

import (
	"math"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/app/cooldown"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/NeuralTrust/RecruitGate/pkg/handlers/http/request"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type cooldownResponse struct {
	ScopeID          string `json:"scope_id"`
	Active           bool   `json:"active"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

func newCooldownResponse(scopeID string, remaining time.Duration) cooldownResponse {
	return cooldownResponse{
		ScopeID:          scopeID,
		Active:           remaining > 0,
		RemainingSeconds: int(math.Ceil(remaining.Seconds())),
	}
}

type getCooldownHandler struct {
	logger *logrus.Logger
	gate   cooldown.Gate
}

func NewGetCooldownHandler(logger *logrus.Logger, gate cooldown.Gate) Handler {
	return &getCooldownHandler{
		logger: logger,
		gate:   gate,
	}
}

// Handle @Summary Get a scope cooldown
// @Tags Cooldowns
// @Produce json
// @Param scope path string true "Scope ID"
// @Success 200 {object} cooldownResponse "Remaining cooldown"
// @Router /api/v1/cooldowns/{scope} [get]
func (h *getCooldownHandler) Handle(c *fiber.Ctx) error {
	scopeID := c.Params("scope")
	remaining, err := h.gate.Remaining(c.UserContext(), scopeID)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(newCooldownResponse(scopeID, remaining))
}

type armCooldownHandler struct {
	logger *logrus.Logger
	gate   cooldown.Gate
}

func NewArmCooldownHandler(logger *logrus.Logger, gate cooldown.Gate) Handler {
	return &armCooldownHandler{
		logger: logger,
		gate:   gate,
	}
}

// Handle @Summary Arm a scope cooldown
// @Description Gates session creation in the scope for ttl_seconds (default interval when omitted). Admin only
// @Tags Cooldowns
// @Accept json
// @Produce json
// @Param scope path string true "Scope ID"
// @Param cooldown body request.ArmCooldownRequest false "Cooldown duration"
// @Success 200 {object} cooldownResponse "Cooldown armed"
// @Failure 403 {object} map[string]interface{} "Requester is not an admin"
// @Router /api/v1/cooldowns/{scope} [put]
func (h *armCooldownHandler) Handle(c *fiber.Ctx) error {
	requester, ok := requesterFrom(c)
	if !ok {
		return respondUnauthorized(c)
	}
	if !requester.Admin {
		return HandleErrorResponse(c, h.logger, domain.ErrForbidden)
	}

	var req request.ArmCooldownRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": ErrInvalidJsonPayload})
		}
	}
	if err := req.Validate(); err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}

	scopeID := c.Params("scope")
	ctx := c.UserContext()
	if err := h.gate.Arm(ctx, scopeID, req.TTL(h.gate.Interval())); err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	remaining, err := h.gate.Remaining(ctx, scopeID)
	if err != nil {
		return HandleErrorResponse(c, h.logger, err)
	}
	return c.Status(fiber.StatusOK).JSON(newCooldownResponse(scopeID, remaining))
}
