package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PersistSuggestion stores a suggestion and returns it with id and created_at set.
func (s *SQLiteStorage) PersistSuggestion(ctx context.Context, sg Suggestion) (Suggestion, error) {
	if !s.ready() {
		return sg, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return insertSuggestion(ctx, s.db, sg)
}

// PersistSuggestions stores a batch in one transaction.
func (s *SQLiteStorage) PersistSuggestions(ctx context.Context, batch []Suggestion) ([]Suggestion, error) {
	if !s.ready() {
		return batch, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stored := make([]Suggestion, 0, len(batch))
	for _, sg := range batch {
		sg, err := insertSuggestion(ctx, tx, sg)
		if err != nil {
			return nil, err
		}
		stored = append(stored, sg)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit suggestions: %w", err)
	}

	return stored, nil
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSuggestion(ctx context.Context, db execer, sg Suggestion) (Suggestion, error) {
	if sg.EventName == "" {
		return sg, errors.New("suggestion has no event name")
	}
	if sg.CreatedAt.IsZero() {
		sg.CreatedAt = time.Now().UTC()
	}
	sg.SuggestedDate = DateOnly(sg.SuggestedDate)

	query := `
		INSERT INTO event_suggestion (user_id, event_name, suggested_date, suggested_time,
		                              explanation, similarity_score, is_dismissed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := db.ExecContext(ctx, query,
		sg.UserID,
		sg.EventName,
		sg.SuggestedDate.Format(DateLayout),
		sg.SuggestedTime,
		sg.Explanation,
		sg.SimilarityScore,
		boolToInt(sg.IsDismissed),
		formatTimestamp(sg.CreatedAt),
	)
	if err != nil {
		return sg, fmt.Errorf("failed to insert suggestion: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return sg, fmt.Errorf("failed to read suggestion id: %w", err)
	}
	sg.ID = id

	return sg, nil
}

// FetchNonDismissed returns live suggestions for a user on a date, best score first.
func (s *SQLiteStorage) FetchNonDismissed(ctx context.Context, userID int64, date time.Time) ([]Suggestion, error) {
	if !s.ready() {
		return []Suggestion{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, user_id, event_name, suggested_date, suggested_time,
		       COALESCE(explanation, ''), COALESCE(similarity_score, 0), is_dismissed, created_at
		FROM event_suggestion
		WHERE user_id = ? AND suggested_date = ? AND is_dismissed = 0
		ORDER BY similarity_score DESC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID, DateOnly(date).Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := []Suggestion{}
	for rows.Next() {
		sg, err := scanSuggestion(rows)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to scan suggestion row")
			continue
		}
		suggestions = append(suggestions, sg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suggestions: %w", err)
	}

	return suggestions, nil
}

// GetSuggestion returns a suggestion by id, or nil if it does not exist.
func (s *SQLiteStorage) GetSuggestion(ctx context.Context, id int64) (*Suggestion, error) {
	if !s.ready() {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, user_id, event_name, suggested_date, suggested_time,
		       COALESCE(explanation, ''), COALESCE(similarity_score, 0), is_dismissed, created_at
		FROM event_suggestion
		WHERE id = ?
	`

	sg, err := scanSuggestion(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion %d: %w", id, err)
	}

	return &sg, nil
}

// MarkDismissed flags a suggestion as dismissed. Unknown ids are ignored.
func (s *SQLiteStorage) MarkDismissed(ctx context.Context, id int64) error {
	if !s.ready() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "UPDATE event_suggestion SET is_dismissed = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to dismiss suggestion %d: %w", id, err)
	}

	return nil
}

// DeleteDismissedBefore removes dismissed suggestions created before cutoff.
func (s *SQLiteStorage) DeleteDismissedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if !s.ready() {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM event_suggestion WHERE is_dismissed = 1 AND created_at < ?",
		formatTimestamp(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge suggestions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged suggestions: %w", err)
	}

	return n, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(row rowScanner) (Suggestion, error) {
	var (
		sg        Suggestion
		date      string
		createdAt string
		dismissed int
	)

	if err := row.Scan(
		&sg.ID,
		&sg.UserID,
		&sg.EventName,
		&date,
		&sg.SuggestedTime,
		&sg.Explanation,
		&sg.SimilarityScore,
		&dismissed,
		&createdAt,
	); err != nil {
		return Suggestion{}, err
	}

	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return Suggestion{}, fmt.Errorf("bad suggested_date %q: %w", date, err)
	}
	sg.SuggestedDate = d

	ts, err := parseTimestamp(createdAt)
	if err != nil {
		return Suggestion{}, fmt.Errorf("bad created_at %q: %w", createdAt, err)
	}
	sg.CreatedAt = ts
	sg.IsDismissed = dismissed == 1

	return sg, nil
}
