package repository

import (
	"context"
	"testing"
	"time"

	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestNewArchivedSession(t *testing.T) {
	closedAt := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	s := &domainSession.Session{
		ID:       "abcd1234",
		OriginID: "msg-abcd1234",
		ScopeID:  "g1",
		OwnerID:  "owner",
		Title:    "ranked",
		Capacity: 4,
		Status:   domainSession.StatusClosed,
		ClosedAt: &closedAt,
		Metadata: map[string]interface{}{"game": "valorant"},
	}

	row := NewArchivedSession(s, "auto_closed", closedAt)
	assert.Equal(t, "abcd1234", row.SessionID)
	assert.Equal(t, "closed", row.Status)
	assert.Equal(t, "auto_closed", row.Reason)
	assert.Equal(t, []string{}, row.Roster)
	assert.Equal(t, &closedAt, row.ClosedAt)
	assert.Equal(t, "session_archive", row.TableName())
}

func TestSessionArchiveRepository_BuildsInsert(t *testing.T) {
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost dbname=archive"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)

	stmt := db.Session(&gorm.Session{DryRun: true}).
		Create(NewArchivedSession(&domainSession.Session{ID: "abcd1234", ScopeID: "g1", OwnerID: "o"}, "retention_expired", time.Now())).
		Statement
	assert.Contains(t, stmt.SQL.String(), `INSERT INTO "session_archive"`)

	repo := NewSessionArchiveRepository(db)
	assert.NoError(t, repo.Save(context.Background(), &domainSession.Session{ID: "abcd1234", ScopeID: "g1", OwnerID: "o"}, "auto_closed"))
}
