package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/prometheus"
)

const (
	RecordKeyPattern  = "recruit:%s:%s"
	ScopeKeyPattern   = "recruit_scope:%s"
	HistoryKeyPattern = "recruit_history:%s"

	recordScanAll = "recruit:*"
)

func recordKey(scopeID, id string) string {
	return fmt.Sprintf(RecordKeyPattern, scopeID, id)
}

func scopeKey(id string) string {
	return fmt.Sprintf(ScopeKeyPattern, id)
}

func historyKey(id string) string {
	return fmt.Sprintf(HistoryKeyPattern, id)
}

// recordTTL is how long the backend keeps a record: its lifetime plus the slack
// the sweep needs to observe it after expiry.
func (a *actor) recordTTL(s *domainSession.Session, now time.Time) time.Duration {
	return s.Remaining(now) + a.cfg.EvictionSlack
}

// resolveScope finds the partition a session id lives on.
func (a *actor) resolveScope(ctx context.Context, id string) (string, error) {
	scopeID, err := a.backend.Get(ctx, scopeKey(id))
	if err != nil {
		if kv.IsNil(err) {
			return "", domain.NewNotFoundError("session", id)
		}
		return "", err
	}
	return scopeID, nil
}

func (a *actor) load(ctx context.Context, scopeID, id string) (*domainSession.Session, error) {
	raw, err := a.backend.Get(ctx, recordKey(scopeID, id))
	if err != nil {
		if kv.IsNil(err) {
			return nil, domain.NewNotFoundError("session", id)
		}
		return nil, err
	}
	var s domainSession.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

func (a *actor) save(ctx context.Context, s *domainSession.Session, now time.Time) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", s.ID, err)
	}
	ttl := a.recordTTL(s, now)
	if err := a.backend.Set(ctx, recordKey(s.ScopeID, s.ID), string(data), ttl); err != nil {
		return err
	}
	return a.backend.Set(ctx, scopeKey(s.ID), s.ScopeID, ttl)
}

func (a *actor) remove(ctx context.Context, s *domainSession.Session) error {
	return a.backend.Delete(ctx, recordKey(s.ScopeID, s.ID), scopeKey(s.ID))
}

// loadLive loads a session and evicts it first when its lifetime has ended, so an
// expired record is never handed out.
func (a *actor) loadLive(ctx context.Context, out *outcome, scopeID, id string, now time.Time) (*domainSession.Session, error) {
	s, err := a.load(ctx, scopeID, id)
	if err != nil {
		return nil, err
	}
	if s.IsExpired(now) {
		if err := a.evict(ctx, out, s, now, "read"); err != nil {
			return nil, err
		}
		return nil, domain.NewNotFoundError("session", id)
	}
	return s, nil
}

func (a *actor) evict(ctx context.Context, out *outcome, s *domainSession.Session, now time.Time, path string) error {
	if err := a.remove(ctx, s); err != nil {
		return err
	}
	autoClosed := s.IsOpen()
	if autoClosed {
		s.Status = domainSession.StatusClosed
		closedAt := now.UTC()
		s.ClosedAt = &closedAt
	}
	prometheus.Evictions.WithLabelValues(path).Inc()
	a.record(ctx, out, domainSession.NewEvent(domainSession.EventEvicted, s, "", now), a.cfg.ClosedRetention)
	out.evicted = append(out.evicted, evicted{session: s, autoClosed: autoClosed})
	return nil
}

// scanScope returns every record of a scope still held by the backend.
func (a *actor) scanScope(ctx context.Context, scopeID string) ([]*domainSession.Session, error) {
	keys, err := a.backend.Scan(ctx, recordKey(scopeID, "*"))
	if err != nil {
		return nil, err
	}
	out := make([]*domainSession.Session, 0, len(keys))
	for _, key := range keys {
		id := strings.TrimPrefix(key, recordKey(scopeID, ""))
		s, err := a.load(ctx, scopeID, id)
		if err != nil {
			if domain.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// record appends ev to the session history and queues it for observers. History is
// auxiliary: a failed write is logged, the mutation stands.
func (a *actor) record(ctx context.Context, out *outcome, ev domainSession.Event, ttl time.Duration) {
	out.events = append(out.events, ev)

	key := historyKey(ev.SessionID)
	var events []domainSession.Event
	raw, err := a.backend.Get(ctx, key)
	switch {
	case err == nil:
		if err := json.Unmarshal([]byte(raw), &events); err != nil {
			a.logger.WithError(err).WithField("session_id", ev.SessionID).Warn("dropping corrupt session history")
			events = nil
		}
	case kv.IsNil(err):
	default:
		a.logger.WithError(err).WithField("session_id", ev.SessionID).Warn("failed to read session history")
		return
	}

	events = domainSession.AppendEvent(events, ev)
	data, err := json.Marshal(events)
	if err != nil {
		a.logger.WithError(err).WithField("session_id", ev.SessionID).Error("failed to encode session history")
		return
	}
	if err := a.backend.Set(ctx, key, string(data), ttl+a.cfg.ClosedRetention); err != nil {
		a.logger.WithError(err).WithField("session_id", ev.SessionID).Warn("failed to write session history")
	}
}
