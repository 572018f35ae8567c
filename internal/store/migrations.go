package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"filesearch/pkg/types"
)

// CurrentSchemaVersion tracks the database schema version.
const CurrentSchemaVersion = "1.0.0"

// migration is a single forward/backward schema step.
type migration struct {
	Version string
	Up      string
	Down    string
}

// allMigrations contains all database migrations in order.
var allMigrations = []migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- One row per indexed filesystem entry.
CREATE TABLE IF NOT EXISTS files (
    path TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    parent_path TEXT NOT NULL,
    extension TEXT NOT NULL DEFAULT '',
    size_bytes INTEGER NOT NULL DEFAULT 0,
    modified_at TIMESTAMP,
    file_type TEXT NOT NULL,
    content_digest TEXT NOT NULL DEFAULT '',
    access_count INTEGER NOT NULL DEFAULT 0,
    indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_files_extension ON files(extension);
CREATE INDEX IF NOT EXISTS idx_files_parent_path ON files(parent_path);
CREATE INDEX IF NOT EXISTS idx_files_name ON files(name);

-- Tokenized content, one row per file, kept in sync via triggers below.
CREATE VIRTUAL TABLE IF NOT EXISTS content_tokens USING fts5(
    path UNINDEXED,
    tokens,
    tokenize = 'unicode61'
);

CREATE TRIGGER IF NOT EXISTS files_content_ad AFTER DELETE ON files BEGIN
    DELETE FROM content_tokens WHERE path = old.path;
END;
`

const migrationV1Down = `
DROP TRIGGER IF EXISTS files_content_ad;
DROP TABLE IF EXISTS content_tokens;
DROP TABLE IF EXISTS files;
DROP TABLE IF EXISTS schema_version;
`

// applyMigrations runs all pending migrations against db, in order, inside
// a single transaction.
// Downgrades from an unrecognized future version are rejected.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	var currentVersion *semver.Version
	switch {
	case err == sql.ErrNoRows:
		currentVersion = semver.MustParse("0.0.0")
	case err != nil:
		return fmt.Errorf("%w: checking schema_version: %v", types.ErrStoreMigration, err)
	default:
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		switch {
		case err == sql.ErrNoRows, currentVersionStr == "":
			currentVersion = semver.MustParse("0.0.0")
		case err != nil:
			return fmt.Errorf("%w: reading schema_version: %v", types.ErrStoreMigration, err)
		default:
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("%w: invalid current schema version %s: %v", types.ErrStoreMigration, currentVersionStr, err)
			}
		}
	}

	latest := semver.MustParse(CurrentSchemaVersion)
	if currentVersion.GreaterThan(latest) {
		return fmt.Errorf("%w: database schema %s is newer than supported %s", types.ErrStoreMigration, currentVersion, latest)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin migrations: %v", types.ErrStoreMigration, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range allMigrations {
		migrationVersion, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("%w: invalid migration version %s: %v", types.ErrStoreMigration, m.Version, err)
		}
		if !currentVersion.LessThan(migrationVersion) {
			continue
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			return fmt.Errorf("%w: applying migration %s: %v", types.ErrStoreMigration, m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.Version); err != nil {
			return fmt.Errorf("%w: recording migration %s: %v", types.ErrStoreMigration, m.Version, err)
		}
		currentVersion = migrationVersion
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit migrations: %v", types.ErrStoreMigration, err)
	}
	return nil
}
