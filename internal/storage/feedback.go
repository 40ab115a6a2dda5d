package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RecordFeedback appends a feedback record.
func (s *SQLiteStorage) RecordFeedback(ctx context.Context, record FeedbackRecord) error {
	if !s.ready() {
		return nil
	}

	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO suggestion_feedback (suggestion_id, user_id, event_name, feedback, threshold, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if _, err := s.db.ExecContext(ctx, query,
		record.SuggestionID,
		record.UserID,
		record.EventName,
		record.Feedback,
		record.Threshold,
		formatTimestamp(record.Timestamp),
	); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	return nil
}

// FeedbackSince returns feedback records newer than since, newest first.
func (s *SQLiteStorage) FeedbackSince(ctx context.Context, since time.Time) ([]FeedbackRecord, error) {
	if !s.ready() {
		return []FeedbackRecord{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT suggestion_id, user_id, event_name, feedback, threshold, timestamp
		FROM suggestion_feedback
		WHERE timestamp >= ?
		ORDER BY timestamp DESC, id DESC
	`

	rows, err := s.db.QueryContext(ctx, query, formatTimestamp(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	records := []FeedbackRecord{}
	for rows.Next() {
		var r FeedbackRecord
		var ts string
		if err := rows.Scan(&r.SuggestionID, &r.UserID, &r.EventName, &r.Feedback, &r.Threshold, &ts); err != nil {
			s.logger.Warn().Err(err).Msg("failed to scan feedback row")
			continue
		}
		if r.Timestamp, err = parseTimestamp(ts); err != nil {
			s.logger.Warn().Err(err).Msg("failed to parse feedback timestamp")
			continue
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// LatestThreshold returns the threshold recorded with the newest feedback.
func (s *SQLiteStorage) LatestThreshold(ctx context.Context, userID int64) (float64, bool, error) {
	if !s.ready() {
		return 0, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT threshold FROM suggestion_feedback
		WHERE ? = -1 OR user_id = ?
		ORDER BY id DESC
		LIMIT 1
	`

	var threshold float64
	err := s.db.QueryRowContext(ctx, query, userID, userID).Scan(&threshold)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read latest threshold: %w", err)
	}

	return threshold, true, nil
}
