package session

import (
	"fmt"
	"reflect"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Patch carries the whitelisted mutable fields. A nil field is left untouched.
// The roster is deliberately absent: it only changes through Join and Leave.
type Patch struct {
	Title       *string                `mapstructure:"title" json:"title,omitempty"`
	Description *string                `mapstructure:"description" json:"description,omitempty"`
	Status      *Status                `mapstructure:"status" json:"status,omitempty"`
	Capacity    *int                   `mapstructure:"capacity" json:"capacity,omitempty"`
	Metadata    map[string]interface{} `mapstructure:"metadata" json:"metadata,omitempty"`
	ExpiresAt   *time.Time             `mapstructure:"expires_at" json:"expires_at,omitempty"`
	StartAt     *time.Time             `mapstructure:"start_at" json:"start_at,omitempty"`
}

// DecodePatch builds a Patch from a loose JSON object. Unknown keys are dropped.
func DecodePatch(raw map[string]interface{}) (Patch, error) {
	var p Patch
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			statusHook,
		),
		Result: &p,
	})
	if err != nil {
		return Patch{}, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Patch{}, domain.NewValidationError("patch", err.Error())
	}
	return p, nil
}

func statusHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(Status("")) || from.Kind() != reflect.String {
		return data, nil
	}
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	switch Status(s) {
	case StatusOpen, StatusClosed:
		return Status(s), nil
	default:
		return nil, fmt.Errorf("unknown status %q", s)
	}
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Capacity == nil &&
		p.Metadata == nil && p.ExpiresAt == nil && p.StartAt == nil
}

// Apply mutates s in place. Callers apply it to a clone and persist on success.
func (p Patch) Apply(s *Session, now time.Time, closedRetention time.Duration) error {
	if !s.IsOpen() {
		return domain.ErrClosed
	}
	if p.Capacity != nil {
		if *p.Capacity < 0 {
			return domain.NewValidationError("capacity", "must not be negative")
		}
		if *p.Capacity > 0 && *p.Capacity < len(s.Roster) {
			return domain.NewValidationError("capacity", fmt.Sprintf("roster already has %d participants", len(s.Roster)))
		}
		s.Capacity = *p.Capacity
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Metadata != nil {
		if s.Metadata == nil {
			s.Metadata = make(map[string]interface{}, len(p.Metadata))
		}
		for k, v := range p.Metadata {
			s.Metadata[k] = v
		}
	}
	if p.ExpiresAt != nil {
		s.ExpiresAt = p.ExpiresAt.UTC()
	}
	if p.StartAt != nil {
		t := p.StartAt.UTC()
		s.StartAt = &t
	}
	if p.Status != nil && *p.Status == StatusClosed {
		s.MarkClosed(now, closedRetention)
	}
	return nil
}

// MarkClosed closes the session and shortens its lifetime to the retention window.
func (s *Session) MarkClosed(now time.Time, closedRetention time.Duration) {
	if !s.IsOpen() {
		return
	}
	s.Status = StatusClosed
	closedAt := now.UTC()
	s.ClosedAt = &closedAt
	s.ExpiresAt = closedAt.Add(closedRetention)
}
