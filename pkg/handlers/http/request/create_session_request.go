package request

import (
	"time"

	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
)

type CreateSessionRequest struct {
	ID          string                 `json:"id" validate:"omitempty,max=64,excludesall=:*?[]"`
	OriginID    string                 `json:"origin_id" validate:"required_without=ID"`
	ScopeID     string                 `json:"scope_id" validate:"required,max=64,excludesall=:*?[]"`
	OwnerID     string                 `json:"owner_id"`
	Title       string                 `json:"title" validate:"max=256"`
	Description string                 `json:"description" validate:"max=4096"`
	Capacity    int                    `json:"capacity" validate:"gte=0"`
	Roster      []string               `json:"roster" validate:"unique,dive,required"`
	TTLSeconds  int                    `json:"ttl_seconds" validate:"gte=0"`
	StartAt     *time.Time             `json:"start_at"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func (r *CreateSessionRequest) Validate() error {
	return validate(r)
}

// ToSession builds the record to create. The owner defaults to the caller; only
// admins may create sessions on behalf of someone else.
func (r *CreateSessionRequest) ToSession(requester domainSession.Requester, now time.Time) *domainSession.Session {
	owner := requester.ID
	if r.OwnerID != "" && requester.Admin {
		owner = r.OwnerID
	}
	s := &domainSession.Session{
		ID:          r.ID,
		OriginID:    r.OriginID,
		ScopeID:     r.ScopeID,
		OwnerID:     owner,
		Title:       r.Title,
		Description: r.Description,
		Capacity:    r.Capacity,
		Roster:      r.Roster,
		Metadata:    r.Metadata,
	}
	if r.TTLSeconds > 0 {
		s.ExpiresAt = now.Add(time.Duration(r.TTLSeconds) * time.Second).UTC()
	}
	if r.StartAt != nil {
		t := r.StartAt.UTC()
		s.StartAt = &t
	}
	return s
}
