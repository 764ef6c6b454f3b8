package middleware

import (
	"errors"
	"strings"

	"github.com/NeuralTrust/RecruitGate/pkg/common"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const authorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

// AdminList reports whether a requester id carries the admin override.
type AdminList interface {
	IsAdmin(id string) bool
}

type requesterMiddleware struct {
	logger     *logrus.Logger
	jwtManager jwt.Manager
	admins     AdminList
}

// NewRequesterMiddleware resolves who is calling. With a jwt manager the bearer
// token is the only source; without one the X-Requester-ID header is trusted.
// Requests without an identity pass through anonymous and the handlers that
// need one answer 401.
func NewRequesterMiddleware(logger *logrus.Logger, jwtManager jwt.Manager, admins AdminList) Middleware {
	return &requesterMiddleware{
		logger:     logger,
		jwtManager: jwtManager,
		admins:     admins,
	}
}

func (m *requesterMiddleware) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if m.jwtManager == nil {
			if id := strings.TrimSpace(ctx.Get(common.RequesterIDHeader)); id != "" {
				ctx.Locals(common.RequesterContextKey, domainSession.Requester{ID: id, Admin: m.isAdmin(id)})
			}
			return ctx.Next()
		}

		authHeader := ctx.Get(authorizationHeader)
		if authHeader == "" {
			return ctx.Next()
		}
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			m.logger.Debug("invalid authorization header format")
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format"})
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
		if tokenString == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Empty token provided"})
		}

		claims, err := m.jwtManager.DecodeToken(tokenString)
		if err != nil {
			m.logger.WithError(err).Debug("invalid token")
			msg := "Invalid token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "Token expired"
			}
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
		}

		ctx.Locals(common.RequesterContextKey, domainSession.Requester{
			ID:    claims.Subject,
			Admin: claims.IsAdmin() || m.isAdmin(claims.Subject),
		})
		return ctx.Next()
	}
}

func (m *requesterMiddleware) isAdmin(id string) bool {
	return m.admins != nil && m.admins.IsAdmin(id)
}
