package roster

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order; schema_version records the last one run.
var migrations = []string{
	`CREATE TABLE identities (
		id         TEXT PRIMARY KEY,
		label      TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE face_images (
		id          TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL REFERENCES identities(id),
		path        TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`,
	`CREATE INDEX idx_face_images_identity ON face_images(identity_id)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&version)
	if err == sql.ErrNoRows {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("failed to seed version table: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE schema_version SET version = ?`, i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
	}
	return nil
}
