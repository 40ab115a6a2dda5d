/*
Package storage provides SQLite database migrations and row helpers.

This file contains schema definitions, migration logic, and the text
encodings used for dates and timestamps.
*/
package storage

import (
	"fmt"
	"time"
)

// runMigrations executes database schema migrations.
func (s *SQLiteStorage) runMigrations() error {
	if !s.ready() {
		return nil
	}

	if err := s.createMigrationsTable(); err != nil {
		return err
	}

	version, err := s.getCurrentMigrationVersion()
	if err != nil {
		return err
	}

	migrations := []migration{
		{version: 1, name: "initial_schema", up: s.migration001InitialSchema},
		{version: 2, name: "suggestion_feedback", up: s.migration002Feedback},
	}

	for _, m := range migrations {
		if version < m.version {
			s.logger.Info().Int("version", m.version).Str("name", m.name).Msg("running migration")
			if err := m.up(); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if err := s.setMigrationVersion(m.version, m.name); err != nil {
				return err
			}
		}
	}

	return nil
}

// migration represents a single database migration.
type migration struct {
	version int
	name    string
	up      func() error
}

// createMigrationsTable creates the schema_migrations table.
func (s *SQLiteStorage) createMigrationsTable() error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`
	_, err := s.db.Exec(query)
	return err
}

// getCurrentMigrationVersion returns the highest applied migration version.
func (s *SQLiteStorage) getCurrentMigrationVersion() (int, error) {
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")

	var version int
	if err := row.Scan(&version); err != nil {
		return 0, err
	}

	return version, nil
}

// setMigrationVersion records a migration as applied.
func (s *SQLiteStorage) setMigrationVersion(version int, name string) error {
	_, err := s.db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", version, name)
	return err
}

// migration001InitialSchema creates the event and suggestion tables.
func (s *SQLiteStorage) migration001InitialSchema() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS event (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			location TEXT,
			description TEXT
		)
	`); err != nil {
		return fmt.Errorf("failed to create event table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_event_user
		ON event(user_id)
	`); err != nil {
		return fmt.Errorf("failed to create event user index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS event_suggestion (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			event_name TEXT NOT NULL,
			suggested_date TEXT NOT NULL,
			suggested_time TEXT NOT NULL,
			explanation TEXT,
			similarity_score REAL,
			is_dismissed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create event_suggestion table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_event_suggestion_lookup
		ON event_suggestion(user_id, suggested_date, is_dismissed)
	`); err != nil {
		return fmt.Errorf("failed to create event_suggestion lookup index: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_event_suggestion_created
		ON event_suggestion(created_at)
	`); err != nil {
		return fmt.Errorf("failed to create event_suggestion created index: %w", err)
	}

	return nil
}

// migration002Feedback creates the suggestion_feedback table.
func (s *SQLiteStorage) migration002Feedback() error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS suggestion_feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			suggestion_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			event_name TEXT NOT NULL,
			feedback TEXT NOT NULL,
			threshold REAL NOT NULL,
			timestamp TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create suggestion_feedback table: %w", err)
	}

	return nil
}

// formatTimestamp encodes t as UTC RFC3339 so text comparison orders correctly.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTimestamp decodes formatTimestamp output.
func parseTimestamp(v string) (time.Time, error) {
	return time.Parse(time.RFC3339, v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
