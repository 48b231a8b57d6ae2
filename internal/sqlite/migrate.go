package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// schemaVersion is stored in PRAGMA user_version. Bump it together with a new entry in migrations.
const schemaVersion = 1

// migrations[i] upgrades the schema from version i to i+1.
//
//nolint:gochecknoglobals // ordered migration list.
var migrations = []string{
	schemaDefinition,
}

// migrate brings the schema to schemaVersion. Every step runs in its own transaction together with the version bump.
func (db *Database) migrate(ctx context.Context) error {
	start := time.Now()
	var current int
	if err := db.ReadWrite.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if current > schemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, schemaVersion)
	}

	for version := current; version < schemaVersion; version++ {
		if err := db.migrateStep(ctx, version); err != nil {
			return fmt.Errorf("migrate to version %d: %w", version+1, err)
		}
	}

	if current < schemaVersion {
		db.logger.LogAttrs(ctx, slog.LevelInfo, "migrated database schema",
			slog.Int("from", current),
			slog.Int("to", schemaVersion),
			slog.Duration("duration", time.Since(start)))
	}
	return nil
}

func (db *Database) migrateStep(ctx context.Context, version int) error {
	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, migrations[version]); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	})
}
