package storage

import (
	"context"
	"fmt"
)

// AddEvent stores a calendar event for a user.
func (s *SQLiteStorage) AddEvent(ctx context.Context, userID int64, event HistoricalEvent) (int64, error) {
	if !s.ready() {
		return 0, nil
	}

	date := event.Date
	if !event.Day.IsZero() {
		date = DateOnly(event.Day).Format(DateLayout)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO event (user_id, name, date, start_time, end_time, location, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := s.db.ExecContext(ctx, query,
		userID,
		event.Name,
		date,
		event.StartTime,
		event.EndTime,
		event.Location,
		event.Description,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read event id: %w", err)
	}

	return id, nil
}

// FetchHistory returns every event of a user, oldest first.
func (s *SQLiteStorage) FetchHistory(ctx context.Context, userID int64) ([]HistoricalEvent, error) {
	if !s.ready() {
		return []HistoricalEvent{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT id, user_id, name, date, start_time, end_time,
		       COALESCE(location, ''), COALESCE(description, '')
		FROM event
		WHERE user_id = ?
		ORDER BY date ASC, start_time ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	events := []HistoricalEvent{}
	for rows.Next() {
		var e HistoricalEvent
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Name,
			&e.Date,
			&e.StartTime,
			&e.EndTime,
			&e.Location,
			&e.Description,
		); err != nil {
			s.logger.Warn().Err(err).Msg("failed to scan event row")
			continue
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}

	return events, nil
}

// ListUsers returns the ids of users with at least one event.
func (s *SQLiteStorage) ListUsers(ctx context.Context) ([]int64, error) {
	if !s.ready() {
		return []int64{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT user_id FROM event ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		users = append(users, id)
	}

	return users, rows.Err()
}
