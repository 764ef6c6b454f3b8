package sidechannel

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	domainSideChannel "github.com/NeuralTrust/RecruitGate/pkg/domain/sidechannel"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/sirupsen/logrus"
)

const (
	BindingKeyPattern  = "side_channel:%s"
	TeardownKeyPattern = "side_channel_teardown:%s"

	DefaultBindingTTL = 24 * time.Hour
	// teardownKeep is how long a due teardown stays claimable when nobody runs it.
	teardownKeep = 24 * time.Hour
)

type store struct {
	logger     *logrus.Logger
	backend    kv.Backend
	defaultTTL time.Duration
	now        func() time.Time
}

func NewStore(logger *logrus.Logger, backend kv.Backend, defaultTTL time.Duration, now func() time.Time) domainSideChannel.Store {
	if defaultTTL <= 0 {
		defaultTTL = DefaultBindingTTL
	}
	if now == nil {
		now = time.Now
	}
	return &store{
		logger:     logger,
		backend:    backend,
		defaultTTL: defaultTTL,
		now:        now,
	}
}

func (s *store) Save(ctx context.Context, sessionID, resourceID string, ttl time.Duration) error {
	if sessionID == "" {
		return domain.NewValidationError("session_id", "is required")
	}
	if resourceID == "" {
		return domain.NewValidationError("resource_id", "is required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	data, err := json.Marshal(domainSideChannel.Binding{
		SessionID:  sessionID,
		ResourceID: resourceID,
		TTL:        ttl,
	})
	if err != nil {
		return fmt.Errorf("failed to encode side channel binding: %w", err)
	}
	return s.backend.Set(ctx, fmt.Sprintf(BindingKeyPattern, sessionID), string(data), ttl)
}

func (s *store) Get(ctx context.Context, sessionID string) (*domainSideChannel.Binding, error) {
	raw, err := s.backend.Get(ctx, fmt.Sprintf(BindingKeyPattern, sessionID))
	if err != nil {
		if kv.IsNil(err) {
			return nil, domain.NewNotFoundError("side channel", sessionID)
		}
		return nil, err
	}
	var b domainSideChannel.Binding
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("failed to decode side channel binding: %w", err)
	}
	return &b, nil
}

func (s *store) Delete(ctx context.Context, sessionID string) error {
	return s.backend.Delete(ctx, fmt.Sprintf(BindingKeyPattern, sessionID))
}

func (s *store) ScheduleTeardown(ctx context.Context, t domainSideChannel.Teardown) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode side channel teardown: %w", err)
	}
	ttl := t.DueAt.Sub(s.now()) + teardownKeep
	if ttl < teardownKeep {
		ttl = teardownKeep
	}
	key := fmt.Sprintf(TeardownKeyPattern, t.SessionID)
	// The first schedule wins so a repeated eviction cannot push the deadline out.
	if _, err := s.backend.SetNX(ctx, key, string(data), ttl); err != nil {
		return err
	}
	return nil
}

// DueTeardowns lists pending teardowns whose due time has passed, oldest first.
func (s *store) DueTeardowns(ctx context.Context, now time.Time) ([]domainSideChannel.Teardown, error) {
	keys, err := s.backend.Scan(ctx, fmt.Sprintf(TeardownKeyPattern, "*"))
	if err != nil {
		return nil, err
	}
	var due []domainSideChannel.Teardown
	for _, key := range keys {
		raw, err := s.backend.Get(ctx, key)
		if err != nil {
			if kv.IsNil(err) {
				continue
			}
			return nil, err
		}
		var t domainSideChannel.Teardown
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("dropping corrupt side channel teardown")
			_ = s.backend.Delete(ctx, key)
			continue
		}
		if t.SessionID == "" {
			t.SessionID = strings.TrimPrefix(key, fmt.Sprintf(TeardownKeyPattern, ""))
		}
		if !now.Before(t.DueAt) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].DueAt.Before(due[j].DueAt)
	})
	return due, nil
}

func (s *store) CompleteTeardown(ctx context.Context, sessionID string) error {
	return s.backend.Delete(ctx,
		fmt.Sprintf(BindingKeyPattern, sessionID),
		fmt.Sprintf(TeardownKeyPattern, sessionID),
	)
}
