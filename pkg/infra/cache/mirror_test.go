package cache_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/subscriber"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/go-redis/redismock/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newSession(now time.Time, lifetime time.Duration) *session.Session {
	return &session.Session{
		ID:        "abcd1234",
		OriginID:  "msg-000abcd1234",
		ScopeID:   "g1",
		OwnerID:   "owner",
		Roster:    []string{"owner"},
		Status:    session.StatusOpen,
		CreatedAt: now,
		ExpiresAt: now.Add(lifetime),
	}
}

func TestMirror_SetGetClampsToRemainingLifetime(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	backend := kv.NewMemoryBackendWithClock(clock.Now)
	mirror := cache.NewLocalMirrorCacheWithClock(logrus.New(), backend, nil, cache.MirrorConfig{LocalTTL: time.Hour}, clock.Now)
	ctx := context.Background()

	s := newSession(clock.Now(), 10*time.Minute)
	mirror.Set(ctx, s.ID, s, 8*time.Hour)

	ttl, err := backend.TTL(ctx, "mirror:recruit:abcd1234")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, ttl)

	got, ok := mirror.Get(ctx, s.ID)
	require.True(t, ok)
	assert.Equal(t, s.Roster, got.Roster)

	got.Roster = append(got.Roster, "mutated")
	again, _ := mirror.Get(ctx, s.ID)
	assert.Equal(t, []string{"owner"}, again.Roster)

	clock.Advance(10 * time.Minute)
	_, ok = mirror.Get(ctx, s.ID)
	assert.False(t, ok)
}

func TestMirror_NonPositiveTTLIsNotStored(t *testing.T) {
	clock := &testClock{now: time.Now()}
	backend := kv.NewMemoryBackendWithClock(clock.Now)
	mirror := cache.NewLocalMirrorCacheWithClock(logrus.New(), backend, nil, cache.MirrorConfig{}, clock.Now)
	ctx := context.Background()

	expired := newSession(clock.Now(), -time.Second)
	mirror.Set(ctx, expired.ID, expired, time.Hour)
	_, ok := mirror.Get(ctx, expired.ID)
	assert.False(t, ok)

	mirror.SetRoster(ctx, "origin", []string{"a"}, 0)
	_, ok = mirror.GetRoster(ctx, "origin")
	assert.False(t, ok)
}

func TestMirror_ReadsThroughFromBackend(t *testing.T) {
	clock := &testClock{now: time.Now()}
	backend := kv.NewMemoryBackendWithClock(clock.Now)
	ctx := context.Background()

	writer := cache.NewLocalMirrorCacheWithClock(logrus.New(), backend, nil, cache.MirrorConfig{}, clock.Now)
	reader := cache.NewLocalMirrorCacheWithClock(logrus.New(), backend, nil, cache.MirrorConfig{}, clock.Now)

	s := newSession(clock.Now(), time.Hour)
	writer.Set(ctx, s.ID, s, time.Hour)
	writer.SetRoster(ctx, s.OriginID, []string{"owner", "p1"}, time.Hour)

	got, ok := reader.Get(ctx, s.ID)
	require.True(t, ok)
	assert.Equal(t, "g1", got.ScopeID)

	roster, ok := reader.GetRoster(ctx, s.OriginID)
	require.True(t, ok)
	assert.Equal(t, []string{"owner", "p1"}, roster)
}

func TestMirror_BackendFailureIsAMiss(t *testing.T) {
	redisClient, mock := redismock.NewClientMock()
	backend := kv.NewRedisBackendFromClient(redisClient, time.Second)
	mirror := cache.NewLocalMirrorCache(logrus.New(), backend, nil, cache.MirrorConfig{})
	ctx := context.Background()

	mock.ExpectGet("mirror:recruit:abcd1234").SetErr(errors.New("connection refused"))
	_, ok := mirror.Get(ctx, "abcd1234")
	assert.False(t, ok)

	mock.ExpectGet("mirror:participants:origin").SetErr(errors.New("connection refused"))
	_, ok = mirror.GetRoster(ctx, "origin")
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMirror_DeletePublishesInvalidation(t *testing.T) {
	clock := &testClock{now: time.Now()}
	logger := logrus.New()
	backend := kv.NewMemoryBackendWithClock(clock.Now)
	bus := cache.NewLocalEventBus(logger)

	// peer only shares the backend and the bus, so without the event it would
	// keep serving its in-process copy.
	peer := cache.NewLocalMirrorCacheWithClock(logger, backend, nil, cache.MirrorConfig{LocalTTL: time.Hour}, clock.Now)
	cache.RegisterEventSubscriber[event.DeleteSessionMirrorEvent](bus, subscriber.NewDeleteSessionMirrorEventSubscriber(logger, peer))
	owner := cache.NewLocalMirrorCacheWithClock(logger, backend, bus, cache.MirrorConfig{LocalTTL: time.Hour}, clock.Now)
	ctx := context.Background()

	s := newSession(clock.Now(), time.Hour)
	owner.Set(ctx, s.ID, s, time.Hour)
	_, ok := peer.Get(ctx, s.ID)
	require.True(t, ok)

	owner.Delete(ctx, s.ID)

	_, ok = peer.Get(ctx, s.ID)
	assert.False(t, ok)
	_, ok = owner.Get(ctx, s.ID)
	assert.False(t, ok)
}

func TestTTLMap_PerEntryTTL(t *testing.T) {
	clock := &testClock{now: time.Now()}
	m := cache.NewTTLMapWithClock(time.Minute, clock.Now)

	m.SetWithTTL("short", 1, time.Second)
	m.SetWithTTL("capped", 2, time.Hour)
	m.Set("default", 3)
	assert.Equal(t, 3, m.Len())

	clock.Advance(2 * time.Second)
	_, ok := m.Get("short")
	assert.False(t, ok)
	v, ok := m.Get("capped")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	clock.Advance(time.Minute)
	_, ok = m.Get("capped")
	assert.False(t, ok)
	_, ok = m.Get("default")
	assert.False(t, ok)

	m.Set("x", 1)
	m.Clear()
	assert.Equal(t, 0, m.Len())
}
