package recommend

import (
	"time"

	"github.com/khanglvm/cal-suggest/internal/storage"
)

// FeatureDims is the length of a feature vector.
const FeatureDims = 3

const minutesPerDay = 24 * 60

// FeatureVector encodes an event as time-of-day, day-of-week and duration,
// each normalized by a day (or a week for the weekday).
type FeatureVector [FeatureDims]float64

// IsZero reports whether v is the zero vector used for unparseable events.
func (v FeatureVector) IsZero() bool {
	return v == FeatureVector{}
}

// ExtractFeatures encodes an event. ok is false when the start time, end
// time or date cannot be parsed, in which case the zero vector is returned.
//
// Events crossing midnight yield a negative duration component.
func ExtractFeatures(event storage.HistoricalEvent) (FeatureVector, bool) {
	start, err := time.Parse(storage.TimeLayout, event.StartTime)
	if err != nil {
		return FeatureVector{}, false
	}

	day, err := event.ParseDate()
	if err != nil {
		return FeatureVector{}, false
	}

	end, err := time.Parse(storage.TimeLayout, event.EndTime)
	if err != nil {
		return FeatureVector{}, false
	}

	startMinutes := start.Hour()*60 + start.Minute()
	endMinutes := end.Hour()*60 + end.Minute()

	return FeatureVector{
		float64(startMinutes) / minutesPerDay,
		float64(weekdayIndex(day)) / 7,
		float64(endMinutes-startMinutes) / minutesPerDay,
	}, true
}

// Extract is ExtractFeatures without the ok flag. A zero vector means the
// event could not be parsed, not a midnight event of zero length.
func Extract(event storage.HistoricalEvent) FeatureVector {
	v, _ := ExtractFeatures(event)
	return v
}

// weekdayIndex numbers days from Monday = 0 to Sunday = 6.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
