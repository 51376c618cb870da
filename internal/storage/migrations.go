package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Snapshot tables",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					label TEXT NOT NULL,
					position INTEGER NOT NULL DEFAULT 0
				)`,

				`CREATE TABLE IF NOT EXISTS students (
					id TEXT PRIMARY KEY,
					name TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS classes (
					id TEXT PRIMARY KEY,
					name TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS terms (
					id TEXT PRIMARY KEY,
					name TEXT
				)`,

				`CREATE TABLE IF NOT EXISTS enum_values (
					field TEXT NOT NULL,
					value TEXT NOT NULL,
					PRIMARY KEY (field, value)
				)`,

				`CREATE TABLE IF NOT EXISTS records (
					id TEXT PRIMARY KEY,
					student_ref TEXT,
					class_ref TEXT,
					term_ref TEXT,
					class_label TEXT,
					period TEXT,
					migrated BOOLEAN NOT NULL DEFAULT 0,
					action TEXT,
					payment_method TEXT,
					status TEXT,
					paid_up TEXT,
					photo_consent TEXT
				)`,
				`CREATE INDEX idx_records_period ON records(period)`,
				`CREATE INDEX idx_records_class_label ON records(class_label)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Run output tables",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS match_candidates (
					run_id TEXT NOT NULL,
					source_label TEXT NOT NULL,
					category_id TEXT NOT NULL,
					category_label TEXT NOT NULL,
					shared_tokens TEXT,
					confidence INTEGER NOT NULL,
					tier TEXT NOT NULL,
					exact_match BOOLEAN NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_match_candidates_run ON match_candidates(run_id)`,
				`CREATE INDEX idx_match_candidates_label ON match_candidates(source_label)`,

				`CREATE TABLE IF NOT EXISTS audits (
					run_id TEXT NOT NULL,
					record_id TEXT NOT NULL,
					student_ref TEXT,
					period TEXT,
					issues TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_audits_run ON audits(run_id)`,
				`CREATE INDEX idx_audits_period ON audits(period)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
