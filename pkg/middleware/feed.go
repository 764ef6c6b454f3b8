package middleware

import (
	"github.com/NeuralTrust/RecruitGate/pkg/common"
	infraWebsocket "github.com/NeuralTrust/RecruitGate/pkg/infra/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type feedMiddleware struct {
	logger    *logrus.Logger
	semaphore *infraWebsocket.Semaphore
}

// NewFeedMiddleware guards the live feed routes: only websocket upgrades pass,
// and at most maxConnections of them at a time. The slot is released by the
// feed handler when the connection ends.
func NewFeedMiddleware(logger *logrus.Logger, maxConnections int) Middleware {
	if maxConnections <= 0 {
		maxConnections = 1024
	}
	return &feedMiddleware{
		logger:    logger,
		semaphore: infraWebsocket.NewSemaphore(maxConnections),
	}
}

func (m *feedMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if !m.semaphore.Acquire() {
			m.logger.Warn("maximum feed connections reached, rejecting connection")
			return fiber.ErrTooManyRequests
		}
		c.Locals(string(common.FeedSemaphoreKey), m.semaphore)
		return c.Next()
	}
}
