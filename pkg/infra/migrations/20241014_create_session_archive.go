package migrations

import (
	"github.com/NeuralTrust/RecruitGate/pkg/infra/database"
	"gorm.io/gorm"
)

func init() {
	database.RegisterMigration(database.Migration{
		ID:   "20241014_create_session_archive",
		Name: "Create session_archive table for ended recruitment sessions",

		Up: func(db *gorm.DB) error {
			if err := db.Exec(`
				CREATE TABLE IF NOT EXISTS session_archive (
					id          UUID PRIMARY KEY,
					session_id  TEXT NOT NULL,
					origin_id   TEXT,
					scope_id    TEXT NOT NULL,
					owner_id    TEXT NOT NULL,
					title       TEXT,
					description TEXT,
					capacity    INTEGER NOT NULL DEFAULT 0,
					roster      JSONB NOT NULL DEFAULT '[]',
					metadata    JSONB,
					status      TEXT NOT NULL,
					reason      TEXT NOT NULL,
					created_at  TIMESTAMPTZ NOT NULL,
					expires_at  TIMESTAMPTZ NOT NULL,
					closed_at   TIMESTAMPTZ,
					start_at    TIMESTAMPTZ,
					archived_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`).Error; err != nil {
				return err
			}
			return db.Exec(`
				CREATE INDEX IF NOT EXISTS idx_session_archive_scope_created
				ON session_archive (scope_id, created_at DESC);
			`).Error
		},

		Down: func(db *gorm.DB) error {
			return db.Exec(`DROP TABLE IF EXISTS session_archive;`).Error
		},
	})
}
