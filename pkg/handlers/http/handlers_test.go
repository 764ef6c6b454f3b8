package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/app/cooldown"
	"github.com/NeuralTrust/RecruitGate/pkg/app/participant"
	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/app/sidechannel"
	"github.com/NeuralTrust/RecruitGate/pkg/common"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/NeuralTrust/RecruitGate/pkg/domain/notification"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	domainSideChannel "github.com/NeuralTrust/RecruitGate/pkg/domain/sidechannel"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/NeuralTrust/RecruitGate/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type admins map[string]bool

func (a admins) IsAdmin(id string) bool { return a[id] }

type nopDispatcher struct{}

func (nopDispatcher) Send(notification.Target, notification.Notification) {}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testEnv struct {
	app          *fiber.App
	actor        appSession.Actor
	gate         cooldown.Gate
	sideChannels domainSideChannel.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	backend := kv.NewMemoryBackend()
	actor := appSession.NewActor(logger, backend, appSession.Config{})
	t.Cleanup(actor.Shutdown)
	mirror := cache.NewLocalMirrorCache(logger, kv.NewMemoryBackend(), nil, cache.MirrorConfig{})
	actor.AddChangeObserver(appSession.NewMirrorObserver(mirror, nil))
	gate := cooldown.NewGate(backend, cooldown.Config{})
	sideChannels := sidechannel.NewStore(logger, backend, 0, nil)
	coordinator := participant.NewCoordinator(
		logger, actor, gate, nopDispatcher{}, sideChannels, participant.Config{}, nil,
	)
	finder := appSession.NewFinder(actor, mirror, nil)

	app := fiber.New()
	v1 := app.Group("/api/v1", middleware.NewRequesterMiddleware(logger, nil, admins{"root": true}).Middleware())
	v1.Post("/sessions", NewCreateSessionHandler(logger, coordinator).Handle)
	v1.Get("/sessions", NewListSessionsHandler(logger, actor).Handle)
	v1.Get("/sessions/:session_id", NewGetSessionHandler(logger, finder).Handle)
	v1.Patch("/sessions/:session_id", NewUpdateSessionHandler(logger, actor).Handle)
	v1.Delete("/sessions/:session_id", NewDeleteSessionHandler(logger, coordinator).Handle)
	v1.Post("/sessions/:session_id/close", NewCloseSessionHandler(logger, coordinator).Handle)
	v1.Post("/sessions/:session_id/join", NewJoinSessionHandler(logger, coordinator).Handle)
	v1.Post("/sessions/:session_id/leave", NewLeaveSessionHandler(logger, coordinator).Handle)
	v1.Get("/sessions/:session_id/history", NewSessionHistoryHandler(logger, actor).Handle)
	v1.Get("/cooldowns/:scope", NewGetCooldownHandler(logger, gate).Handle)
	v1.Put("/cooldowns/:scope", NewArmCooldownHandler(logger, gate).Handle)
	v1.Put("/side-channels/:session_id", NewBindSideChannelHandler(logger, actor, sideChannels).Handle)
	v1.Get("/side-channels/:session_id", NewGetSideChannelHandler(logger, sideChannels).Handle)
	v1.Delete("/side-channels/:session_id", NewDeleteSideChannelHandler(logger, actor, sideChannels).Handle)

	return &testEnv{app: app, actor: actor, gate: gate, sideChannels: sideChannels}
}

func (e *testEnv) do(t *testing.T, method, path, requester string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if requester != "" {
		req.Header.Set(common.RequesterIDHeader, requester)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) createSession(t *testing.T, originID string, capacity int) string {
	t.Helper()
	status, body := e.do(t, fiber.MethodPost, "/api/v1/sessions", "owner", map[string]interface{}{
		"origin_id": originID,
		"scope_id":  "guild-1",
		"title":     "weekly raid",
		"capacity":  capacity,
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	return body["id"].(string)
}

func TestCreateSessionHandler(t *testing.T) {
	env := newTestEnv(t)

	t.Run("requires a requester", func(t *testing.T) {
		status, body := env.do(t, fiber.MethodPost, "/api/v1/sessions", "", map[string]interface{}{
			"origin_id": "1203344556677889900", "scope_id": "guild-1",
		})
		assert.Equal(t, fiber.StatusUnauthorized, status)
		assert.Equal(t, ErrMissingRequester, body["error"])
	})

	t.Run("rejects an invalid body", func(t *testing.T) {
		status, body := env.do(t, fiber.MethodPost, "/api/v1/sessions", "owner", map[string]interface{}{
			"origin_id": "1203344556677889900",
		})
		assert.Equal(t, fiber.StatusBadRequest, status)
		assert.Equal(t, "scope_id", body["field"])
	})

	t.Run("creates and then cools down the scope", func(t *testing.T) {
		id := env.createSession(t, "1203344556677889900", 3)
		assert.Equal(t, "77889900", id)

		status, body := env.do(t, fiber.MethodPost, "/api/v1/sessions", "owner", map[string]interface{}{
			"origin_id": "1203344556677880000", "scope_id": "guild-1",
		})
		assert.Equal(t, fiber.StatusTooManyRequests, status)
		assert.EqualValues(t, 60, body["retry_after"])
	})

	t.Run("refuses an id that is already held", func(t *testing.T) {
		status, _ := env.do(t, fiber.MethodPost, "/api/v1/sessions", "mallory", map[string]interface{}{
			"origin_id": "1203344556677889900", "scope_id": "guild-2",
		})
		assert.Equal(t, fiber.StatusConflict, status)

		// The rejected create left guild-2 free.
		status, body := env.do(t, fiber.MethodGet, "/api/v1/cooldowns/guild-2", "", nil)
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, false, body["active"])

		status, body = env.do(t, fiber.MethodGet, "/api/v1/sessions/77889900", "", nil)
		require.Equal(t, fiber.StatusOK, status)
		assert.Equal(t, "owner", body["owner_id"])
	})
}

func TestGetAndListSessions(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "msg-sess0001", 0)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/sessions/"+id, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "weekly raid", body["title"])
	assert.Equal(t, "owner", body["owner_id"])

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/sessions/missing1", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = env.do(t, fiber.MethodGet, "/api/v1/sessions?scope=guild-1", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = env.do(t, fiber.MethodGet, "/api/v1/sessions", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "scope", body["field"])

	for _, scope := range []string{"guild%3A1", "guild*", strings.Repeat("g", appSession.MaxScopeIDLength+1)} {
		status, body = env.do(t, fiber.MethodGet, "/api/v1/sessions?scope="+scope, "", nil)
		assert.Equal(t, fiber.StatusBadRequest, status, scope)
		assert.Equal(t, "scope_id", body["field"], scope)
	}
}

func TestUpdateSessionHandler(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "msg-sess0002", 4)
	path := "/api/v1/sessions/" + id

	status, _ := env.do(t, fiber.MethodPatch, path, "stranger", map[string]interface{}{"title": "mine now"})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := env.do(t, fiber.MethodPatch, path, "owner", map[string]interface{}{
		"title":  "late raid",
		"roster": []string{"ignored"},
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "late raid", body["title"])
	assert.Empty(t, body["roster"])

	status, body = env.do(t, fiber.MethodPatch, path, "root", map[string]interface{}{"capacity": -1})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "capacity", body["field"])

	status, body = env.do(t, fiber.MethodPatch, path, "owner", map[string]interface{}{"status": "archived"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = env.do(t, fiber.MethodPatch, path, "owner", map[string]interface{}{})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "late raid", body["title"])
}

func TestJoinLeaveClose(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "msg-sess0003", 1)
	base := "/api/v1/sessions/" + id

	status, body := env.do(t, fiber.MethodPost, base+"/join", "alice", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []interface{}{"alice"}, body["roster"])

	status, _ = env.do(t, fiber.MethodPost, base+"/join", "alice", nil)
	assert.Equal(t, fiber.StatusConflict, status)
	status, _ = env.do(t, fiber.MethodPost, base+"/join", "bob", nil)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = env.do(t, fiber.MethodPost, base+"/leave", "bob", nil)
	assert.Equal(t, fiber.StatusConflict, status)
	status, _ = env.do(t, fiber.MethodPost, base+"/leave", "owner", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, body = env.do(t, fiber.MethodPost, base+"/leave", "alice", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, body["roster"])

	status, _ = env.do(t, fiber.MethodPost, base+"/close", "alice", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	status, body = env.do(t, fiber.MethodPost, base+"/close", "owner", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, string(domainSession.StatusClosed), body["status"])

	status, _ = env.do(t, fiber.MethodPost, base+"/join", "carol", nil)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestDeleteSessionHandler(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "msg-sess0004", 0)
	path := "/api/v1/sessions/" + id
	sideChannelPath := "/api/v1/side-channels/" + id

	status, _ := env.do(t, fiber.MethodPut, sideChannelPath, "owner", map[string]interface{}{"resource_id": "vc-7"})
	require.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, fiber.MethodDelete, path, "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	status, _ = env.do(t, fiber.MethodDelete, path, "stranger", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := env.do(t, fiber.MethodDelete, path, "root", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, id, body["id"])

	status, _ = env.do(t, fiber.MethodGet, path, "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = env.do(t, fiber.MethodGet, sideChannelPath, "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestSessionHistoryHandler(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "msg-sess0005", 0)
	env.do(t, fiber.MethodPost, "/api/v1/sessions/"+id+"/join", "alice", nil)
	base := "/api/v1/sessions/" + id + "/history"

	status, body := env.do(t, fiber.MethodGet, base, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	events, ok := body["events"].([]interface{})
	require.True(t, ok)
	require.Len(t, events, 2)
	assert.Equal(t, string(domainSession.EventCreated), events[0].(map[string]interface{})["type"])
	assert.Equal(t, string(domainSession.EventJoined), events[1].(map[string]interface{})["type"])

	status, body = env.do(t, fiber.MethodGet, base+"?from=yesterday", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "from", body["field"])

	status, body = env.do(t, fiber.MethodGet, base+"?from=2024-05-02T00:00:00Z&to=2024-05-01T00:00:00Z", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "to", body["field"])
}

func TestCooldownHandlers(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/cooldowns/guild-9", "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["active"])

	status, _ = env.do(t, fiber.MethodPut, "/api/v1/cooldowns/guild-9", "owner", nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body = env.do(t, fiber.MethodPut, "/api/v1/cooldowns/guild-9", "root", map[string]interface{}{"ttl_seconds": 120})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["active"])
	assert.EqualValues(t, 120, body["remaining_seconds"])

	status, _ = env.do(t, fiber.MethodPut, "/api/v1/cooldowns/guild-9", "root", map[string]interface{}{"ttl_seconds": -5})
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestSideChannelHandlers(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "msg-sess0006", 0)
	path := "/api/v1/side-channels/" + id

	status, _ := env.do(t, fiber.MethodPut, path, "stranger", map[string]interface{}{"resource_id": "vc-1"})
	assert.Equal(t, fiber.StatusForbidden, status)
	status, body := env.do(t, fiber.MethodPut, path, "owner", map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "resource_id", body["field"])

	status, body = env.do(t, fiber.MethodPut, path, "owner", map[string]interface{}{"resource_id": "vc-1", "ttl_seconds": 600})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "vc-1", body["resource_id"])

	status, body = env.do(t, fiber.MethodGet, path, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, id, body["session_id"])

	status, _ = env.do(t, fiber.MethodDelete, path, "owner", nil)
	require.Equal(t, fiber.StatusOK, status)
	status, _ = env.do(t, fiber.MethodGet, path, "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHandleErrorResponse_Statuses(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", domain.NewValidationError("title", "too long"), fiber.StatusBadRequest},
		{"cooling down", &domain.CoolingDownError{ScopeID: "g1", Remaining: 1500 * time.Millisecond}, fiber.StatusTooManyRequests},
		{"not found", domain.NewNotFoundError("session", "x"), fiber.StatusNotFound},
		{"forbidden", domain.ErrForbidden, fiber.StatusForbidden},
		{"full", domain.ErrFull, fiber.StatusConflict},
		{"closed", domain.ErrClosed, fiber.StatusConflict},
		{"backend", domain.NewBackendError("get", errors.New("dial tcp: refused")), fiber.StatusServiceUnavailable},
		{"stopped", appSession.ErrActorStopped, fiber.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return HandleErrorResponse(c, logger, tt.err) })
			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == fiber.StatusTooManyRequests {
				assert.Equal(t, "2", resp.Header.Get(fiber.HeaderRetryAfter))
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New()
	app.Get("/ok", NewHealthHandler(logger, map[string]Pinger{"backend": stubPinger{}}).Handle)
	app.Get("/down", NewHealthHandler(logger, map[string]Pinger{
		"backend":  stubPinger{},
		"database": stubPinger{err: errors.New("connection refused")},
	}).Handle)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/ok", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/down", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "down", body["checks"].(map[string]interface{})["database"])
}
