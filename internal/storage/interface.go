/*
Package storage implements the persistent store for calendar history and
event suggestions.

This package provides SQLite-based storage for the events a user has
scheduled, the suggestions generated from them and the feedback given on
dismissal. If the database cannot be opened the store disables itself and
every operation becomes a no-op returning empty results.

The database defaults to ~/.cal-suggest/calendar.db and uses modernc.org/sqlite
(a pure Go, CGo-free implementation).
*/
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/cal-suggest/internal/logging"

	_ "modernc.org/sqlite"
)

// Store defines the persistence operations the suggestion core depends on.
type Store interface {
	// Init opens the database and runs migrations.
	Init() error

	// AddEvent stores a calendar event for a user and returns its id.
	AddEvent(ctx context.Context, userID int64, event HistoricalEvent) (int64, error)

	// FetchHistory returns every event of a user, oldest first.
	FetchHistory(ctx context.Context, userID int64) ([]HistoricalEvent, error)

	// ListUsers returns the ids of users with at least one event.
	ListUsers(ctx context.Context) ([]int64, error)

	// PersistSuggestion stores a suggestion, assigning its id and created_at.
	PersistSuggestion(ctx context.Context, s Suggestion) (Suggestion, error)

	// PersistSuggestions stores a batch of suggestions. Either every row is
	// written or none is.
	PersistSuggestions(ctx context.Context, batch []Suggestion) ([]Suggestion, error)

	// FetchNonDismissed returns live suggestions for a user on a date.
	FetchNonDismissed(ctx context.Context, userID int64, date time.Time) ([]Suggestion, error)

	// GetSuggestion returns a suggestion by id, or nil if it does not exist.
	GetSuggestion(ctx context.Context, id int64) (*Suggestion, error)

	// MarkDismissed flags a suggestion as dismissed.
	MarkDismissed(ctx context.Context, id int64) error

	// DeleteDismissedBefore removes dismissed suggestions created before cutoff.
	DeleteDismissedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// RecordFeedback appends a feedback record.
	RecordFeedback(ctx context.Context, record FeedbackRecord) error

	// LatestThreshold returns the threshold logged with the newest feedback
	// of userID, or of any user for AnyUser. ok is false when none exists.
	LatestThreshold(ctx context.Context, userID int64) (threshold float64, ok bool, err error)

	// Close closes the database connection.
	Close() error
}

// SQLiteStorage implements the Store interface using SQLite.
type SQLiteStorage struct {
	db       *sql.DB
	dbPath   string
	enabled  bool
	mu       sync.Mutex
	initOnce sync.Once
	logger   zerolog.Logger
}

// DefaultPath returns ~/.cal-suggest/calendar.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".cal-suggest", "calendar.db"), nil
}

// NewStorage creates a new SQLite storage instance at dbPath.
//
// An empty path falls back to DefaultPath. If no path can be resolved the
// storage is created disabled.
func NewStorage(dbPath string) *SQLiteStorage {
	logger := logging.With().Str("component", "storage").Logger()

	if dbPath == "" {
		p, err := DefaultPath()
		if err != nil {
			logger.Warn().Err(err).Msg("storage disabled")
			return &SQLiteStorage{enabled: false, logger: logger}
		}
		dbPath = p
	}

	return &SQLiteStorage{
		dbPath:  dbPath,
		enabled: true,
		logger:  logger,
	}
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// Enabled reports whether the storage is usable.
func (s *SQLiteStorage) Enabled() bool {
	return s.enabled && s.db != nil
}

// Init initializes the database and runs migrations.
//
// If initialization fails, storage is disabled and subsequent operations
// become no-ops.
func (s *SQLiteStorage) Init() error {
	if !s.enabled {
		return nil
	}

	var initErr error
	s.initOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(s.dbPath), 0755); err != nil {
			initErr = fmt.Errorf("failed to create db directory: %w", err)
			s.enabled = false
			return
		}

		db, err := sql.Open("sqlite", s.dbPath)
		if err != nil {
			initErr = fmt.Errorf("failed to open database: %w", err)
			s.enabled = false
			s.logger.Warn().Err(initErr).Send()
			return
		}
		// A single connection keeps writers serialized.
		db.SetMaxOpenConns(1)
		s.db = db

		if err := db.Ping(); err != nil {
			initErr = fmt.Errorf("failed to ping database: %w", err)
			s.enabled = false
			s.logger.Warn().Err(initErr).Send()
			return
		}

		if err := s.runMigrations(); err != nil {
			initErr = fmt.Errorf("failed to run migrations: %w", err)
			s.enabled = false
			s.logger.Warn().Err(initErr).Send()
			return
		}
	})

	return initErr
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.db = nil
	return nil
}

// ready reports whether operations should touch the database.
func (s *SQLiteStorage) ready() bool {
	return s.enabled && s.db != nil
}
