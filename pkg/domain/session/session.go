package session

import (
	"strings"
	"time"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"

	// IDLength is how many trailing characters of the origin id form the session id.
	IDLength = 8
)

// Session is one recruitment record.
type Session struct {
	ID              string                 `json:"id"`
	OriginID        string                 `json:"origin_id,omitempty"`
	ScopeID         string                 `json:"scope_id"`
	OwnerID         string                 `json:"owner_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	Capacity        int                    `json:"capacity,omitempty"`
	Roster          []string               `json:"roster"`
	Status          Status                 `json:"status"`
	CreatedAt       time.Time              `json:"created_at"`
	ExpiresAt       time.Time              `json:"expires_at"`
	ClosedAt        *time.Time             `json:"closed_at,omitempty"`
	StartAt         *time.Time             `json:"start_at,omitempty"`
	NotifiedAtStart bool                   `json:"notified_at_start"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// DeriveID returns the short shareable id for an origin id.
func DeriveID(originID string) string {
	originID = strings.TrimSpace(originID)
	if len(originID) <= IDLength {
		return originID
	}
	return originID[len(originID)-IDLength:]
}

func (s *Session) IsOpen() bool {
	return s.Status == StatusOpen
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Remaining is the lifetime left at now, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	d := s.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (s *Session) HasMember(participantID string) bool {
	for _, id := range s.Roster {
		if id == participantID {
			return true
		}
	}
	return false
}

func (s *Session) IsFull() bool {
	return s.Capacity > 0 && len(s.Roster) >= s.Capacity
}

// StartReached reports whether the start time has arrived and nobody was told yet.
func (s *Session) StartReached(now time.Time) bool {
	return s.IsOpen() && !s.NotifiedAtStart && s.StartAt != nil && !now.Before(*s.StartAt)
}

// Clone returns a deep copy so callers never share the partition's state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Roster = append([]string{}, s.Roster...)
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		c.ClosedAt = &t
	}
	if s.StartAt != nil {
		t := *s.StartAt
		c.StartAt = &t
	}
	if s.Metadata != nil {
		c.Metadata = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Requester is the already authenticated caller of owner-restricted operations.
type Requester struct {
	ID    string
	Admin bool
}

func (r Requester) CanManage(s *Session) bool {
	return r.Admin || (r.ID != "" && r.ID == s.OwnerID)
}
