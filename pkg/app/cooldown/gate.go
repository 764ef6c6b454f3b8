package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/google/uuid"
)

const (
	KeyPattern      = "cooldown:%s"
	DefaultInterval = 60 * time.Second
	MinTTL          = time.Second
)

// Gate is a per-scope timed boolean: a token key exists while the scope is gated.
//
//go:generate mockery --name=Gate --dir=. --output=./mocks --filename=gate_mock.go --case=underscore --with-expecter
type Gate interface {
	Arm(ctx context.Context, scopeID string, ttl time.Duration) error
	Remaining(ctx context.Context, scopeID string) (time.Duration, error)
	// Check returns a CoolingDownError while the scope is gated.
	Check(ctx context.Context, scopeID string) error
	// Claim arms the gate for one interval unless it is already armed, in which
	// case it returns a CoolingDownError. The token hands the claim back through
	// Release; exempt scopes get an empty token.
	Claim(ctx context.Context, scopeID string) (string, error)
	Release(ctx context.Context, scopeID, token string) error
	Interval() time.Duration
}

type Config struct {
	Interval     time.Duration
	ExemptScopes []string
}

type gate struct {
	backend  kv.Backend
	interval time.Duration
	exempt   map[string]struct{}
}

func NewGate(backend kv.Backend, cfg Config) Gate {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	exempt := make(map[string]struct{}, len(cfg.ExemptScopes))
	for _, scopeID := range cfg.ExemptScopes {
		exempt[scopeID] = struct{}{}
	}
	return &gate{
		backend:  backend,
		interval: interval,
		exempt:   exempt,
	}
}

func (g *gate) isExempt(scopeID string) bool {
	_, ok := g.exempt[scopeID]
	return ok
}

func (g *gate) Interval() time.Duration {
	return g.interval
}

func (g *gate) Arm(ctx context.Context, scopeID string, ttl time.Duration) error {
	if scopeID == "" {
		return domain.NewValidationError("scope_id", "is required")
	}
	if g.isExempt(scopeID) {
		return nil
	}
	return g.backend.Set(ctx, fmt.Sprintf(KeyPattern, scopeID), "1", clampTTL(ttl))
}

func clampTTL(ttl time.Duration) time.Duration {
	if ttl < MinTTL {
		ttl = MinTTL
	}
	return ttl.Truncate(time.Second)
}

func (g *gate) Claim(ctx context.Context, scopeID string) (string, error) {
	if scopeID == "" {
		return "", domain.NewValidationError("scope_id", "is required")
	}
	if g.isExempt(scopeID) {
		return "", nil
	}
	key := fmt.Sprintf(KeyPattern, scopeID)
	token := uuid.NewString()
	ttl := clampTTL(g.interval)
	claimed, err := g.backend.SetNX(ctx, key, token, ttl)
	if err != nil {
		return "", err
	}
	if claimed {
		return token, nil
	}
	remaining, err := g.Remaining(ctx, scopeID)
	if err != nil {
		return "", err
	}
	if remaining > 0 {
		return "", &domain.CoolingDownError{ScopeID: scopeID, Remaining: remaining}
	}
	// The token lapsed between the two calls, or was stored without expiry.
	if err := g.backend.Set(ctx, key, token, ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (g *gate) Release(ctx context.Context, scopeID, token string) error {
	if token == "" {
		return nil
	}
	_, err := g.backend.CompareAndDelete(ctx, fmt.Sprintf(KeyPattern, scopeID), token)
	return err
}

func (g *gate) Remaining(ctx context.Context, scopeID string) (time.Duration, error) {
	if scopeID == "" || g.isExempt(scopeID) {
		return 0, nil
	}
	ttl, err := g.backend.TTL(ctx, fmt.Sprintf(KeyPattern, scopeID))
	if err != nil {
		if kv.IsNil(err) {
			return 0, nil
		}
		return 0, err
	}
	// A token without expiry would gate forever; report it as free.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (g *gate) Check(ctx context.Context, scopeID string) error {
	remaining, err := g.Remaining(ctx, scopeID)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return &domain.CoolingDownError{ScopeID: scopeID, Remaining: remaining}
	}
	return nil
}
