package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NeuralTrust/RecruitGate/pkg/common"
	infraWebsocket "github.com/NeuralTrust/RecruitGate/pkg/infra/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(NewFeedMiddleware(quietLogger(), 1).Middleware())
	app.Get("/ws", func(c *fiber.Ctx) error {
		sem, ok := c.Locals(string(common.FeedSemaphoreKey)).(*infraWebsocket.Semaphore)
		if !ok {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		assert.Equal(t, 1, sem.GetCurrentConnections())
		return c.SendStatus(fiber.StatusOK)
	})

	upgrade := func() *http.Request {
		req := httptest.NewRequest(fiber.MethodGet, "/ws", nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		return req
	}

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ws", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)

	resp, err = app.Test(upgrade(), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The slot is only released by the feed handler, so the limit is now reached.
	resp, err = app.Test(upgrade(), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
