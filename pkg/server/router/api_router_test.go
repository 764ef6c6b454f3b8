package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/common"
	"github.com/NeuralTrust/RecruitGate/pkg/config"
	"github.com/NeuralTrust/RecruitGate/pkg/dependency_container"
	"github.com/NeuralTrust/RecruitGate/pkg/server/router"
	"github.com/NeuralTrust/RecruitGate/pkg/version"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T) (*fiber.App, *dependency_container.Container) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{}
	cfg.Server.Port = 8080
	cfg.Server.AdminIDs = []string{"root"}
	cfg.Session.DefaultTTL = time.Hour
	cfg.Scheduler.LeaderTTL = 30 * time.Second

	c, err := dependency_container.NewContainer(dependency_container.ContainerDI{Cfg: cfg, Logger: logger})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	app := fiber.New()
	require.NoError(t, router.NewAPIRouter(c.MiddlewareTransport, c.HandlerTransport, c.FeedHandler).BuildRoutes(app))
	return app, c
}

func TestAPIRouter_RejectsMissingTransport(t *testing.T) {
	err := router.NewAPIRouter(nil, nil, nil).BuildRoutes(fiber.New())
	assert.ErrorIs(t, err, router.ErrInvalidHandlerTransport)
}

func TestAPIRouter_HealthAndVersion(t *testing.T) {
	app, _ := newApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(common.RequestIDHeader))

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/version", nil), -1)
	require.NoError(t, err)
	var info version.Info
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Equal(t, version.AppName, info.AppName)
}

func TestAPIRouter_FeedRequiresUpgrade(t *testing.T) {
	app, _ := newApp(t)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ws/sessions/guild-1", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestAPIRouter_ChangesReachTheFeedHub(t *testing.T) {
	app, c := newApp(t)
	sub := c.Hub.Subscribe("guild-1")
	defer sub.Close()

	body, err := json.Marshal(map[string]interface{}{
		"origin_id": "1203344556677889900",
		"scope_id":  "guild-1",
		"title":     "weekly raid",
	})
	require.NoError(t, err)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.RequesterIDHeader, "owner")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	select {
	case msg := <-sub.C:
		assert.Equal(t, "create", msg.Change)
		require.NotNil(t, msg.Session)
		assert.Equal(t, "77889900", msg.Session.ID)
	case <-time.After(time.Second):
		t.Fatal("no feed message for the created session")
	}

	req = httptest.NewRequest(fiber.MethodGet, "/api/v1/sessions/77889900", nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
