package sidechannel

import (
	"context"
	"time"
)

// Binding ties a session to a temporary resource such as a dedicated sub-channel.
type Binding struct {
	SessionID  string        `json:"session_id"`
	ResourceID string        `json:"resource_id"`
	TTL        time.Duration `json:"ttl"`
}

// Teardown is a binding scheduled for removal once DueAt passes.
type Teardown struct {
	SessionID  string    `json:"session_id"`
	ScopeID    string    `json:"scope_id"`
	ResourceID string    `json:"resource_id"`
	DueAt      time.Time `json:"due_at"`
}

//go:generate mockery --name=Store --dir=. --output=./mocks --filename=store_mock.go --case=underscore --with-expecter
type Store interface {
	Save(ctx context.Context, sessionID, resourceID string, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*Binding, error)
	Delete(ctx context.Context, sessionID string) error
	ScheduleTeardown(ctx context.Context, t Teardown) error
	DueTeardowns(ctx context.Context, now time.Time) ([]Teardown, error)
	CompleteTeardown(ctx context.Context, sessionID string) error
}
