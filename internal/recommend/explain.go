package recommend

import (
	"strings"
	"time"

	"github.com/khanglvm/cal-suggest/internal/storage"
)

const (
	strongMatchScore = 0.8
	usualMatchScore  = 0.6

	fallbackExplanation = "Recommended based on your past events"
)

// Explain builds the human-readable reason attached to a recommendation.
func Explain(event storage.HistoricalEvent, score float64) string {
	start, err := time.Parse(storage.TimeLayout, event.StartTime)
	if err != nil {
		return fallbackExplanation
	}

	parts := make([]string, 0, 2)
	switch {
	case score > strongMatchScore:
		parts = append(parts, "This event is very similar to your past preferences")
	case score > usualMatchScore:
		parts = append(parts, "This type of event matches your usual schedule")
	}
	parts = append(parts, "You often schedule events around "+start.Format("03:04 PM"))

	return strings.Join(parts, " and ")
}
