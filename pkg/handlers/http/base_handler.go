package http

import (
	"context"
	"errors"
	"math"
	"strconv"

	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/common"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	ErrInvalidJsonPayload = "invalid JSON payload"
	ErrMissingRequester   = "requester identity required"
)

// requesterFrom returns the identity the auth middleware resolved for this request.
func requesterFrom(c *fiber.Ctx) (domainSession.Requester, bool) {
	r, ok := c.Locals(common.RequesterContextKey).(domainSession.Requester)
	if !ok || r.ID == "" {
		return domainSession.Requester{}, false
	}
	return r, true
}

func respondUnauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": ErrMissingRequester})
}

// HandleErrorResponse maps domain errors onto HTTP statuses. Anything it does
// not recognise is logged and reported as a 500.
func HandleErrorResponse(c *fiber.Ctx, logger *logrus.Logger, err error) error {
	var validationErr *domain.ValidationError
	var coolingErr *domain.CoolingDownError

	switch {
	case errors.As(err, &validationErr):
		body := fiber.Map{"error": validationErr.Error()}
		if validationErr.Field != "" {
			body["field"] = validationErr.Field
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)

	case errors.As(err, &coolingErr):
		seconds := int(math.Ceil(coolingErr.Remaining.Seconds()))
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       coolingErr.Error(),
			"retry_after": seconds,
		})

	case domain.IsNotFoundError(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrOwnerCannotLeave):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})

	case errors.Is(err, domain.ErrFull),
		errors.Is(err, domain.ErrAlreadyMember),
		errors.Is(err, domain.ErrNotMember),
		errors.Is(err, domain.ErrClosed),
		errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})

	case domain.IsBackendUnavailable(err),
		errors.Is(err, appSession.ErrActorStopped),
		errors.Is(err, context.DeadlineExceeded):
		logger.WithError(err).WithField("path", c.Path()).Warn("backend unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "service temporarily unavailable"})

	default:
		logger.WithError(err).WithField("path", c.Path()).Error("request failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
