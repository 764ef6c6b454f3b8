package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/common"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminSet map[string]bool

func (a adminSet) IsAdmin(id string) bool { return a[id] }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// echoRequester answers with the resolved requester, or 204 when anonymous.
func echoRequester(c *fiber.Ctx) error {
	r, ok := c.Locals(common.RequesterContextKey).(domainSession.Requester)
	if !ok {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(fiber.Map{"id": r.ID, "admin": r.Admin})
}

func newRequesterApp(jwtManager jwt.Manager) *fiber.App {
	app := fiber.New()
	app.Use(NewRequesterMiddleware(quietLogger(), jwtManager, adminSet{"root": true}).Middleware())
	app.Get("/", echoRequester)
	return app
}

func TestRequesterMiddleware_HeaderMode(t *testing.T) {
	app := newRequesterApp(nil)

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(common.RequesterIDHeader, "alice")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"id":"alice","admin":false}`, string(body))

	req = httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(common.RequesterIDHeader, "root")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"id":"root","admin":true}`, string(body))
}

func TestRequesterMiddleware_BearerMode(t *testing.T) {
	manager := jwt.NewJwtManager("test-secret")
	app := newRequesterApp(manager)

	userToken, err := manager.CreateToken("alice", "", time.Hour)
	require.NoError(t, err)
	adminToken, err := manager.CreateToken("mod", jwt.RoleAdmin, time.Hour)
	require.NoError(t, err)
	expiredToken, err := manager.CreateToken("alice", "", -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "anonymous", status: fiber.StatusNoContent},
		{name: "user", header: "Bearer " + userToken, status: fiber.StatusOK, body: `{"id":"alice","admin":false}`},
		{name: "admin role", header: "Bearer " + adminToken, status: fiber.StatusOK, body: `{"id":"mod","admin":true}`},
		{name: "wrong scheme", header: "Basic abc", status: fiber.StatusUnauthorized, body: `{"error":"Invalid authorization format"}`},
		{name: "garbage", header: "Bearer not-a-token", status: fiber.StatusUnauthorized, body: `{"error":"Invalid token"}`},
		{name: "expired", header: "Bearer " + expiredToken, status: fiber.StatusUnauthorized, body: `{"error":"Token expired"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			// The header is ignored once tokens are enabled.
			req.Header.Set(common.RequesterIDHeader, "root")
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.body != "" {
				body, _ := io.ReadAll(resp.Body)
				assert.JSONEq(t, tt.body, string(body))
			}
		})
	}
}
