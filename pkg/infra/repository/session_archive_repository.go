package repository

import (
	"context"
	"fmt"
	"time"

	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ArchivedSession is one row of session_archive.
type ArchivedSession struct {
	ID          uuid.UUID              `gorm:"type:uuid;primaryKey"`
	SessionID   string                 `gorm:"not null"`
	OriginID    string                 `gorm:"column:origin_id"`
	ScopeID     string                 `gorm:"not null"`
	OwnerID     string                 `gorm:"not null"`
	Title       string                 `gorm:"column:title"`
	Description string                 `gorm:"column:description"`
	Capacity    int                    `gorm:"column:capacity"`
	Roster      []string               `gorm:"type:jsonb;serializer:json"`
	Metadata    map[string]interface{} `gorm:"type:jsonb;serializer:json"`
	Status      string                 `gorm:"not null"`
	Reason      string                 `gorm:"not null"`
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ClosedAt    *time.Time
	StartAt     *time.Time
	ArchivedAt  time.Time
}

func (ArchivedSession) TableName() string {
	return "session_archive"
}

func NewArchivedSession(s *domainSession.Session, reason string, now time.Time) *ArchivedSession {
	roster := s.Roster
	if roster == nil {
		roster = []string{}
	}
	return &ArchivedSession{
		ID:          uuid.New(),
		SessionID:   s.ID,
		OriginID:    s.OriginID,
		ScopeID:     s.ScopeID,
		OwnerID:     s.OwnerID,
		Title:       s.Title,
		Description: s.Description,
		Capacity:    s.Capacity,
		Roster:      roster,
		Metadata:    s.Metadata,
		Status:      string(s.Status),
		Reason:      reason,
		CreatedAt:   s.CreatedAt,
		ExpiresAt:   s.ExpiresAt,
		ClosedAt:    s.ClosedAt,
		StartAt:     s.StartAt,
		ArchivedAt:  now.UTC(),
	}
}

type sessionArchiveRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSessionArchiveRepository(db *gorm.DB) domainSession.ArchiveRepository {
	return &sessionArchiveRepository{
		db:  db,
		now: time.Now,
	}
}

func (r *sessionArchiveRepository) Save(ctx context.Context, s *domainSession.Session, reason string) error {
	if err := r.db.WithContext(ctx).Create(NewArchivedSession(s, reason, r.now())).Error; err != nil {
		return fmt.Errorf("failed to archive session %s: %w", s.ID, err)
	}
	return nil
}
