package session_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// missMirror never holds anything, like a mirror whose backend is down.
type missMirror struct {
	sets atomic.Int32
}

func (m *missMirror) Set(context.Context, string, *domainSession.Session, time.Duration) {
	m.sets.Add(1)
}
func (m *missMirror) Get(context.Context, string) (*domainSession.Session, bool) { return nil, false }
func (m *missMirror) Delete(context.Context, string)                             {}
func (m *missMirror) SetRoster(context.Context, string, []string, time.Duration) {}
func (m *missMirror) GetRoster(context.Context, string) ([]string, bool)         { return nil, false }
func (m *missMirror) DeleteRoster(context.Context, string)                       {}
func (m *missMirror) Forget(string, string)                                      {}

func TestFinder_AlwaysMissMirrorStillReturnsAuthoritativeData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mirror := &missMirror{}
	finder := appSession.NewFinder(f.actor, mirror, f.clock.Now)

	id := f.create(t, "sess0100", 2)
	_, _, err := f.actor.Join(ctx, id, "A")
	require.NoError(t, err)

	s, err := finder.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, s.Roster)

	roster, err := finder.FindRoster(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, roster)

	_, _, err = f.actor.Join(ctx, id, "B")
	require.NoError(t, err)
	s, err = finder.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, s.Roster)
	assert.Equal(t, int32(3), mirror.sets.Load())

	_, err = finder.Find(ctx, "missing")
	assert.True(t, domain.IsNotFoundError(err))
}

func TestFinder_ServesFromMirrorAndObserverInvalidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mirror := cache.NewLocalMirrorCacheWithClock(logrus.New(), kv.NewMemoryBackendWithClock(f.clock.Now), nil, cache.MirrorConfig{}, f.clock.Now)
	f.actor.AddChangeObserver(appSession.NewMirrorObserver(mirror, f.clock.Now))
	finder := appSession.NewFinder(f.actor, mirror, f.clock.Now)

	id, err := f.actor.Create(ctx, &domainSession.Session{
		ID:       "sess0101",
		OriginID: "msg-sess0101",
		ScopeID:  "g1",
		OwnerID:  "owner",
	})
	require.NoError(t, err)

	_, err = finder.Find(ctx, id)
	require.NoError(t, err)
	cached, ok := mirror.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "g1", cached.ScopeID)

	title := "renamed"
	_, err = f.actor.Update(ctx, id, domainSession.Patch{Title: &title})
	require.NoError(t, err)
	s, err := finder.Find(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", s.Title)

	require.NoError(t, f.actor.Delete(ctx, id, domainSession.Requester{ID: "owner"}))
	_, ok = mirror.Get(ctx, id)
	assert.False(t, ok)
	_, ok = mirror.GetRoster(ctx, "msg-sess0101")
	assert.False(t, ok)
	_, err = finder.Find(ctx, id)
	assert.True(t, domain.IsNotFoundError(err))
}
