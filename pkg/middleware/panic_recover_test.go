package middleware

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/NeuralTrust/RecruitGate/pkg/common"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicRecoverMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(
		NewPanicRecoverMiddleware(quietLogger()).Middleware(),
		NewMetricsMiddleware(quietLogger()).Middleware(),
	)
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})
	app.Get("/fail", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/panic", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"error":"Internal server error"}`, string(body))

	req := httptest.NewRequest(fiber.MethodGet, "/fail", nil)
	req.Header.Set(common.RequestIDHeader, "req-1")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)
	assert.Equal(t, "req-1", resp.Header.Get(common.RequestIDHeader))
}

func TestMetricsMiddleware_AssignsRequestID(t *testing.T) {
	app := fiber.New()
	app.Use(NewMetricsMiddleware(quietLogger()).Middleware())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(common.RequestIDContextKey).(string))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.NotEmpty(t, body)
	assert.Equal(t, string(body), resp.Header.Get(common.RequestIDHeader))
}
