package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/channel"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	MirrorSessionKeyPattern = "mirror:recruit:%s"
	MirrorRosterKeyPattern  = "mirror:participants:%s"

	DefaultLocalTTL = 30 * time.Second
)

// LocalMirrorCache shadows sessions and rosters for fast reads. It is never the
// source of truth: a miss or a backend fault is reported as a plain miss.
//
//go:generate mockery --name=LocalMirrorCache --dir=. --output=./mocks --filename=local_mirror_cache_mock.go --case=underscore --with-expecter
type LocalMirrorCache interface {
	Set(ctx context.Context, id string, s *session.Session, ttl time.Duration)
	Get(ctx context.Context, id string) (*session.Session, bool)
	Delete(ctx context.Context, id string)
	SetRoster(ctx context.Context, originID string, roster []string, ttl time.Duration)
	GetRoster(ctx context.Context, originID string) ([]string, bool)
	DeleteRoster(ctx context.Context, originID string)
	// Forget drops the in-process copies only.
	Forget(id, originID string)
}

type MirrorConfig struct {
	// LocalTTL caps how long the in-process tier serves an entry before going
	// back to the mirror backend.
	LocalTTL time.Duration
}

type mirror struct {
	logger    *logrus.Logger
	backend   kv.Backend
	sessions  *TTLMap
	rosters   *TTLMap
	publisher EventPublisher
	now       func() time.Time
}

func NewLocalMirrorCache(
	logger *logrus.Logger,
	backend kv.Backend,
	publisher EventPublisher,
	cfg MirrorConfig,
) LocalMirrorCache {
	return NewLocalMirrorCacheWithClock(logger, backend, publisher, cfg, time.Now)
}

func NewLocalMirrorCacheWithClock(
	logger *logrus.Logger,
	backend kv.Backend,
	publisher EventPublisher,
	cfg MirrorConfig,
	now func() time.Time,
) LocalMirrorCache {
	if cfg.LocalTTL <= 0 {
		cfg.LocalTTL = DefaultLocalTTL
	}
	return &mirror{
		logger:    logger,
		backend:   backend,
		sessions:  NewTTLMapWithClock(cfg.LocalTTL, now),
		rosters:   NewTTLMapWithClock(cfg.LocalTTL, now),
		publisher: publisher,
		now:       now,
	}
}

func (m *mirror) Set(ctx context.Context, id string, s *session.Session, ttl time.Duration) {
	if s == nil {
		return
	}
	if remaining := s.Remaining(m.now()); ttl > remaining {
		ttl = remaining
	}
	// Whole-second TTLs on redis would round a sub-second remainder to zero.
	ttl = ttl.Truncate(time.Second)
	if ttl <= 0 {
		m.sessions.Delete(id)
		return
	}

	m.sessions.SetWithTTL(id, s.Clone(), ttl)

	data, err := json.Marshal(s)
	if err != nil {
		m.logger.WithError(err).WithField("session_id", id).Error("failed to encode session for mirror")
		return
	}
	if err := m.backend.Set(ctx, fmt.Sprintf(MirrorSessionKeyPattern, id), string(data), ttl); err != nil {
		m.logger.WithError(err).WithField("session_id", id).Warn("failed to write session mirror")
	}
}

func (m *mirror) Get(ctx context.Context, id string) (*session.Session, bool) {
	if v, ok := m.sessions.Get(id); ok {
		if s, ok := v.(*session.Session); ok {
			prometheus.MirrorLookups.WithLabelValues("local", "hit").Inc()
			return s.Clone(), true
		}
	}

	raw, err := m.backend.Get(ctx, fmt.Sprintf(MirrorSessionKeyPattern, id))
	if err != nil {
		if !kv.IsNil(err) {
			m.logger.WithError(err).WithField("session_id", id).Warn("mirror read failed, treating as miss")
		}
		prometheus.MirrorLookups.WithLabelValues("backend", "miss").Inc()
		return nil, false
	}

	var s session.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		m.logger.WithError(err).WithField("session_id", id).Warn("corrupt session mirror entry")
		return nil, false
	}
	now := m.now()
	if s.IsExpired(now) {
		return nil, false
	}
	prometheus.MirrorLookups.WithLabelValues("backend", "hit").Inc()
	m.sessions.SetWithTTL(id, s.Clone(), s.Remaining(now))
	return &s, true
}

func (m *mirror) Delete(ctx context.Context, id string) {
	m.sessions.Delete(id)
	if err := m.backend.Delete(ctx, fmt.Sprintf(MirrorSessionKeyPattern, id)); err != nil {
		m.logger.WithError(err).WithField("session_id", id).Warn("failed to delete session mirror")
	}
	m.publish(ctx, event.DeleteSessionMirrorEvent{SessionID: id})
}

func (m *mirror) SetRoster(ctx context.Context, originID string, roster []string, ttl time.Duration) {
	ttl = ttl.Truncate(time.Second)
	if originID == "" || ttl <= 0 {
		return
	}
	copied := append([]string{}, roster...)
	m.rosters.SetWithTTL(originID, copied, ttl)

	data, err := json.Marshal(copied)
	if err != nil {
		m.logger.WithError(err).WithField("origin_id", originID).Error("failed to encode roster for mirror")
		return
	}
	if err := m.backend.Set(ctx, fmt.Sprintf(MirrorRosterKeyPattern, originID), string(data), ttl); err != nil {
		m.logger.WithError(err).WithField("origin_id", originID).Warn("failed to write roster mirror")
	}
}

func (m *mirror) GetRoster(ctx context.Context, originID string) ([]string, bool) {
	if v, ok := m.rosters.Get(originID); ok {
		if roster, ok := v.([]string); ok {
			prometheus.MirrorLookups.WithLabelValues("local", "hit").Inc()
			return append([]string{}, roster...), true
		}
	}

	key := fmt.Sprintf(MirrorRosterKeyPattern, originID)
	raw, err := m.backend.Get(ctx, key)
	if err != nil {
		if !kv.IsNil(err) {
			m.logger.WithError(err).WithField("origin_id", originID).Warn("roster mirror read failed, treating as miss")
		}
		prometheus.MirrorLookups.WithLabelValues("backend", "miss").Inc()
		return nil, false
	}
	var roster []string
	if err := json.Unmarshal([]byte(raw), &roster); err != nil {
		m.logger.WithError(err).WithField("origin_id", originID).Warn("corrupt roster mirror entry")
		return nil, false
	}
	prometheus.MirrorLookups.WithLabelValues("backend", "hit").Inc()
	if ttl, err := m.backend.TTL(ctx, key); err == nil && ttl > 0 {
		m.rosters.SetWithTTL(originID, append([]string{}, roster...), ttl)
	}
	return roster, true
}

func (m *mirror) DeleteRoster(ctx context.Context, originID string) {
	if originID == "" {
		return
	}
	m.rosters.Delete(originID)
	if err := m.backend.Delete(ctx, fmt.Sprintf(MirrorRosterKeyPattern, originID)); err != nil {
		m.logger.WithError(err).WithField("origin_id", originID).Warn("failed to delete roster mirror")
	}
	m.publish(ctx, event.DeleteSessionMirrorEvent{OriginID: originID})
}

func (m *mirror) Forget(id, originID string) {
	if id != "" {
		m.sessions.Delete(id)
	}
	if originID != "" {
		m.rosters.Delete(originID)
	}
}

func (m *mirror) publish(ctx context.Context, ev event.Event) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.Publish(ctx, channel.RecruitEventsChannel, ev); err != nil {
		m.logger.WithError(err).Warn("failed to publish mirror invalidation")
	}
}
