package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

const (
	// keyUnsafe are characters that would break the key layout or the scan patterns.
	keyUnsafe        = ":*?[]\\ "
	MaxScopeIDLength = 128
)

func validateScopeID(scopeID string) error {
	switch {
	case strings.TrimSpace(scopeID) == "":
		return domain.NewValidationError("scope_id", "is required")
	case len(scopeID) > MaxScopeIDLength:
		return domain.NewValidationError("scope_id", fmt.Sprintf("must be at most %d characters", MaxScopeIDLength))
	case strings.ContainsAny(scopeID, keyUnsafe):
		return domain.NewValidationError("scope_id", "contains reserved characters")
	}
	return nil
}

func validateNew(s *domainSession.Session) error {
	if s == nil {
		return domain.NewValidationError("session", "is required")
	}
	if strings.TrimSpace(s.OwnerID) == "" {
		return domain.NewValidationError("owner_id", "is required")
	}
	if err := validateScopeID(s.ScopeID); err != nil {
		return err
	}
	if s.ID == "" && strings.TrimSpace(s.OriginID) == "" {
		return domain.NewValidationError("id", "id or origin_id is required")
	}
	if s.Capacity < 0 {
		return domain.NewValidationError("capacity", "must not be negative")
	}
	seen := make(map[string]struct{}, len(s.Roster))
	for _, p := range s.Roster {
		if p == "" {
			return domain.NewValidationError("roster", "participant id must not be empty")
		}
		if _, dup := seen[p]; dup {
			return domain.NewValidationError("roster", "duplicate participant "+p)
		}
		seen[p] = struct{}{}
	}
	if s.Capacity > 0 && len(s.Roster) > s.Capacity {
		return domain.NewValidationError("roster", "exceeds capacity")
	}
	return nil
}

func (a *actor) Create(ctx context.Context, in *domainSession.Session) (string, error) {
	if err := validateNew(in); err != nil {
		prometheus.SessionsCreated.WithLabelValues("invalid").Inc()
		return "", err
	}
	s := in.Clone()
	if s.ID == "" {
		s.ID = domainSession.DeriveID(s.OriginID)
	}
	if strings.ContainsAny(s.ID, keyUnsafe) {
		return "", domain.NewValidationError("id", "contains reserved characters")
	}

	now := a.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now.UTC()
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = now.Add(a.cfg.DefaultTTL).UTC()
	}
	if s.IsExpired(now) {
		return "", domain.NewValidationError("expires_at", "must be in the future")
	}
	s.Status = domainSession.StatusOpen
	s.ClosedAt = nil
	s.NotifiedAtStart = false
	if s.Roster == nil {
		s.Roster = []string{}
	}

	id, err := submit(ctx, a, s.ScopeID, func(ctx context.Context, out *outcome) (string, error) {
		claimed, err := a.backend.SetNX(ctx, scopeKey(s.ID), s.ScopeID, a.recordTTL(s, now))
		if err != nil {
			return "", err
		}
		if !claimed {
			if err := a.reclaimID(ctx, out, s, now); err != nil {
				return "", err
			}
		}
		if err := a.save(ctx, s, now); err != nil {
			if claimed {
				_ = a.backend.Delete(ctx, scopeKey(s.ID))
			}
			return "", err
		}
		a.record(ctx, out, domainSession.NewEvent(domainSession.EventCreated, s, s.OwnerID, now), a.recordTTL(s, now))
		return s.ID, nil
	})
	if err != nil {
		prometheus.SessionsCreated.WithLabelValues("error").Inc()
		return "", err
	}
	prometheus.SessionsCreated.WithLabelValues("created").Inc()
	a.logger.WithFields(logrus.Fields{
		"session_id": id,
		"scope_id":   s.ScopeID,
	}).Debug("session created")
	return id, nil
}

// reclaimID lets a create reuse an id only when nothing live holds it. A record the
// backend still keeps past its lifetime is evicted first, with its side effects.
func (a *actor) reclaimID(ctx context.Context, out *outcome, s *domainSession.Session, now time.Time) error {
	owner, err := a.backend.Get(ctx, scopeKey(s.ID))
	if err != nil {
		if kv.IsNil(err) {
			return nil
		}
		return err
	}
	if owner != s.ScopeID {
		return domain.ErrConflict
	}
	existing, err := a.load(ctx, s.ScopeID, s.ID)
	if err != nil {
		if domain.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	if !existing.IsExpired(now) {
		return domain.ErrConflict
	}
	return a.evict(ctx, out, existing, now, "create")
}

func (a *actor) Get(ctx context.Context, id string) (*domainSession.Session, error) {
	scopeID, err := a.resolveScope(ctx, id)
	if err != nil {
		return nil, err
	}
	return submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) (*domainSession.Session, error) {
		s, err := a.loadLive(ctx, out, scopeID, id, a.now())
		if err != nil {
			return nil, err
		}
		return s.Clone(), nil
	})
}

func (a *actor) Inspect(
	ctx context.Context,
	id string,
	fn func(ctx context.Context, s *domainSession.Session),
) (*domainSession.Session, error) {
	scopeID, err := a.resolveScope(ctx, id)
	if err != nil {
		return nil, err
	}
	return submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) (*domainSession.Session, error) {
		s, err := a.loadLive(ctx, out, scopeID, id, a.now())
		if err != nil {
			return nil, err
		}
		fn(context.WithoutCancel(ctx), s.Clone())
		return s.Clone(), nil
	})
}

func (a *actor) List(ctx context.Context, scopeID string) ([]*domainSession.Session, error) {
	if err := validateScopeID(scopeID); err != nil {
		return nil, err
	}
	return submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) ([]*domainSession.Session, error) {
		live, err := a.sweepLocked(ctx, out, scopeID, "read")
		if err != nil {
			return nil, err
		}
		sort.SliceStable(live, func(i, j int) bool {
			return live[i].CreatedAt.After(live[j].CreatedAt)
		})
		return live, nil
	})
}

func (a *actor) Sweep(ctx context.Context, scopeID string) ([]*domainSession.Session, error) {
	return submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) ([]*domainSession.Session, error) {
		if _, err := a.sweepLocked(ctx, out, scopeID, "sweep"); err != nil {
			return nil, err
		}
		gone := make([]*domainSession.Session, 0, len(out.evicted))
		for _, ev := range out.evicted {
			gone = append(gone, ev.session.Clone())
		}
		return gone, nil
	})
}

// sweepLocked evicts every expired record of the scope and returns the live ones.
// It must run on the scope's partition.
func (a *actor) sweepLocked(ctx context.Context, out *outcome, scopeID, path string) ([]*domainSession.Session, error) {
	records, err := a.scanScope(ctx, scopeID)
	if err != nil {
		return nil, err
	}
	now := a.now()
	live := make([]*domainSession.Session, 0, len(records))
	for _, s := range records {
		if !s.IsExpired(now) {
			live = append(live, s)
			continue
		}
		if err := a.evict(ctx, out, s, now, path); err != nil {
			return nil, err
		}
	}
	return live, nil
}

func (a *actor) Scopes(ctx context.Context) ([]string, error) {
	keys, err := a.backend.Scan(ctx, recordScanAll)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	for _, key := range keys {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		seen[parts[1]] = struct{}{}
	}
	scopes := make([]string, 0, len(seen))
	for scopeID := range seen {
		scopes = append(scopes, scopeID)
	}
	sort.Strings(scopes)
	return scopes, nil
}

func (a *actor) Update(ctx context.Context, id string, patch domainSession.Patch) (*domainSession.Session, error) {
	scopeID, err := a.resolveScope(ctx, id)
	if err != nil {
		return nil, err
	}
	return submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) (*domainSession.Session, error) {
		now := a.now()
		current, err := a.loadLive(ctx, out, scopeID, id, now)
		if err != nil {
			return nil, err
		}
		next := current.Clone()
		if err := patch.Apply(next, now, a.cfg.ClosedRetention); err != nil {
			return nil, err
		}
		if err := a.save(ctx, next, now); err != nil {
			return nil, err
		}
		eventType := domainSession.EventUpdated
		if current.IsOpen() && !next.IsOpen() {
			eventType = domainSession.EventClosed
		}
		a.record(ctx, out, domainSession.NewEvent(eventType, next, "", now), a.recordTTL(next, now))
		return next.Clone(), nil
	})
}

func (a *actor) Close(ctx context.Context, id string, requester domainSession.Requester) (*domainSession.Session, error) {
	scopeID, err := a.resolveScope(ctx, id)
	if err != nil {
		return nil, err
	}
	return submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) (*domainSession.Session, error) {
		now := a.now()
		s, err := a.loadLive(ctx, out, scopeID, id, now)
		if err != nil {
			return nil, err
		}
		if !requester.CanManage(s) {
			return nil, domain.ErrForbidden
		}
		if !s.IsOpen() {
			return nil, domain.ErrClosed
		}
		s.MarkClosed(now, a.cfg.ClosedRetention)
		if err := a.save(ctx, s, now); err != nil {
			return nil, err
		}
		a.record(ctx, out, domainSession.NewEvent(domainSession.EventClosed, s, requester.ID, now), a.recordTTL(s, now))
		return s.Clone(), nil
	})
}

func (a *actor) Delete(ctx context.Context, id string, requester domainSession.Requester) error {
	scopeID, err := a.resolveScope(ctx, id)
	if err != nil {
		return err
	}
	_, err = submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) (struct{}, error) {
		now := a.now()
		s, err := a.loadLive(ctx, out, scopeID, id, now)
		if err != nil {
			return struct{}{}, err
		}
		if !requester.CanManage(s) {
			return struct{}{}, domain.ErrForbidden
		}
		if err := a.remove(ctx, s); err != nil {
			return struct{}{}, err
		}
		a.record(ctx, out, domainSession.NewEvent(domainSession.EventDeleted, s, requester.ID, now), a.cfg.ClosedRetention)
		return struct{}{}, nil
	})
	return err
}

func (a *actor) Join(ctx context.Context, id, participantID string) (*domainSession.Session, bool, error) {
	if strings.TrimSpace(participantID) == "" {
		return nil, false, domain.NewValidationError("participant_id", "is required")
	}
	scopeID, err := a.resolveScope(ctx, id)
	if err != nil {
		return nil, false, err
	}
	type joinResult struct {
		s      *domainSession.Session
		joined bool
	}
	res, err := submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) (joinResult, error) {
		now := a.now()
		s, err := a.loadLive(ctx, out, scopeID, id, now)
		if err != nil {
			return joinResult{}, err
		}
		if !s.IsOpen() {
			return joinResult{}, domain.ErrClosed
		}
		// Membership and capacity are checked in the same step as the append.
		if s.HasMember(participantID) {
			return joinResult{s: s.Clone()}, nil
		}
		if s.IsFull() {
			return joinResult{}, domain.ErrFull
		}
		s.Roster = append(s.Roster, participantID)
		if err := a.save(ctx, s, now); err != nil {
			return joinResult{}, err
		}
		a.record(ctx, out, domainSession.NewEvent(domainSession.EventJoined, s, participantID, now), a.recordTTL(s, now))
		return joinResult{s: s.Clone(), joined: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return res.s, res.joined, nil
}

func (a *actor) Leave(ctx context.Context, id, participantID string) (*domainSession.Session, bool, error) {
	if strings.TrimSpace(participantID) == "" {
		return nil, false, domain.NewValidationError("participant_id", "is required")
	}
	scopeID, err := a.resolveScope(ctx, id)
	if err != nil {
		return nil, false, err
	}
	type leaveResult struct {
		s       *domainSession.Session
		removed bool
	}
	res, err := submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) (leaveResult, error) {
		now := a.now()
		s, err := a.loadLive(ctx, out, scopeID, id, now)
		if err != nil {
			return leaveResult{}, err
		}
		if !s.IsOpen() {
			return leaveResult{}, domain.ErrClosed
		}
		if participantID == s.OwnerID {
			return leaveResult{}, domain.ErrOwnerCannotLeave
		}
		idx := -1
		for i, p := range s.Roster {
			if p == participantID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return leaveResult{s: s.Clone()}, nil
		}
		s.Roster = append(s.Roster[:idx], s.Roster[idx+1:]...)
		if err := a.save(ctx, s, now); err != nil {
			return leaveResult{}, err
		}
		a.record(ctx, out, domainSession.NewEvent(domainSession.EventLeft, s, participantID, now), a.recordTTL(s, now))
		return leaveResult{s: s.Clone(), removed: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return res.s, res.removed, nil
}

// MarkStartNotified flips notifiedAtStart and persists it; flipped is false when
// another run already did.
func (a *actor) MarkStartNotified(ctx context.Context, id string) (*domainSession.Session, bool, error) {
	scopeID, err := a.resolveScope(ctx, id)
	if err != nil {
		return nil, false, err
	}
	type markResult struct {
		s       *domainSession.Session
		flipped bool
	}
	res, err := submit(ctx, a, scopeID, func(ctx context.Context, out *outcome) (markResult, error) {
		now := a.now()
		s, err := a.loadLive(ctx, out, scopeID, id, now)
		if err != nil {
			return markResult{}, err
		}
		if s.NotifiedAtStart || !s.IsOpen() {
			return markResult{s: s.Clone()}, nil
		}
		s.NotifiedAtStart = true
		if err := a.save(ctx, s, now); err != nil {
			return markResult{}, err
		}
		return markResult{s: s.Clone(), flipped: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return res.s, res.flipped, nil
}

func (a *actor) History(ctx context.Context, id string, from, to time.Time) ([]domainSession.Event, error) {
	raw, err := a.backend.Get(ctx, historyKey(id))
	if err != nil {
		if kv.IsNil(err) {
			return []domainSession.Event{}, nil
		}
		return nil, err
	}
	var events []domainSession.Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, fmt.Errorf("failed to decode history of %s: %w", id, err)
	}
	return domainSession.FilterEvents(events, from, to), nil
}
