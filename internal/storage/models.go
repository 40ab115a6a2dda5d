/*
Package storage provides data models for calendar history and suggestions.

These models represent the events a user has scheduled, the suggestions the
recommender produced from them, and the feedback users gave when dismissing
a suggestion.
*/
package storage

import "time"

const (
	// DateLayout is the on-disk and wire layout of calendar dates.
	DateLayout = "2006-01-02"

	// TimeLayout is the on-disk and wire layout of times of day.
	TimeLayout = "15:04:05"
)

// AnyUser selects rows of every user where a user id filter is accepted.
const AnyUser int64 = -1

// HistoricalEvent is a single scheduled calendar event.
type HistoricalEvent struct {
	// ID is the row id, zero until persisted.
	ID int64 `json:"id,omitempty"`

	// UserID owns the event.
	UserID int64 `json:"user_id,omitempty"`

	// Name is the event title.
	Name string `json:"name"`

	// Date is the calendar date as YYYY-MM-DD.
	Date string `json:"date"`

	// Day is a native date value. When set it takes precedence over Date.
	Day time.Time `json:"-"`

	// StartTime is the start time of day as HH:MM:SS.
	StartTime string `json:"start_time"`

	// EndTime is the end time of day as HH:MM:SS.
	EndTime string `json:"end_time"`

	// Location is optional free text.
	Location string `json:"location,omitempty"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`
}

// IsZero reports whether the event carries no data at all.
func (e HistoricalEvent) IsZero() bool {
	return e.Name == "" && e.Date == "" && e.Day.IsZero() &&
		e.StartTime == "" && e.EndTime == ""
}

// ParseDate resolves the event's calendar date.
func (e HistoricalEvent) ParseDate() (time.Time, error) {
	if !e.Day.IsZero() {
		y, m, d := e.Day.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(DateLayout, e.Date)
}

// Suggestion is a persisted recommendation scoped to a user and a date.
type Suggestion struct {
	// ID is assigned by the store on persist.
	ID int64 `json:"id"`

	UserID    int64  `json:"user_id"`
	EventName string `json:"name"`

	// SuggestedDate is the calendar date the suggestion applies to (UTC midnight).
	SuggestedDate time.Time `json:"date"`

	// SuggestedTime is the start time of day as HH:MM:SS.
	SuggestedTime string `json:"time"`

	Explanation     string  `json:"explanation"`
	SimilarityScore float64 `json:"score"`
	IsDismissed     bool    `json:"is_dismissed"`

	// CreatedAt is assigned by the store on persist when left zero.
	CreatedAt time.Time `json:"created_at"`
}

// AsEvent converts the suggestion back into event-shaped data for
// feedback. The suggested time is used as both start and end.
func (s Suggestion) AsEvent() HistoricalEvent {
	return HistoricalEvent{
		UserID:    s.UserID,
		Name:      s.EventName,
		Date:      s.SuggestedDate.Format(DateLayout),
		StartTime: s.SuggestedTime,
		EndTime:   s.SuggestedTime,
	}
}

// FeedbackRecord logs a user's reaction to a dismissed suggestion.
type FeedbackRecord struct {
	SuggestionID int64     `json:"suggestion_id"`
	UserID       int64     `json:"user_id"`
	EventName    string    `json:"event_name"`
	Feedback     string    `json:"feedback"`
	Threshold    float64   `json:"threshold"`
	Timestamp    time.Time `json:"timestamp"`
}

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
