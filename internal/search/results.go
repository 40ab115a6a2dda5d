/*
Package search implements full-text search over a user's calendar history.

Events are indexed in an in-memory Bleve index keyed by user and event id,
and matched on name, location and description with BM25 scoring.
*/
package search

// EventResult is a single search hit with its relevance score.
type EventResult struct {
	EventID   int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	Name      string  `json:"name"`
	Date      string  `json:"date"`
	StartTime string  `json:"start_time"`
	EndTime   string  `json:"end_time"`
	Location  string  `json:"location,omitempty"`
	Score     float64 `json:"score"`
}
