package recommend

import (
	"testing"

	"github.com/khanglvm/cal-suggest/internal/storage"
)

func TestExplain(t *testing.T) {
	tests := []struct {
		name  string
		start string
		score float64
		want  string
	}{
		{
			name:  "strong match",
			start: "09:00:00",
			score: 0.95,
			want:  "This event is very similar to your past preferences and You often schedule events around 09:00 AM",
		},
		{
			name:  "usual match",
			start: "15:04:00",
			score: 0.7,
			want:  "This type of event matches your usual schedule and You often schedule events around 03:04 PM",
		},
		{
			name:  "boundary is exclusive",
			start: "12:30:00",
			score: 0.8,
			want:  "This type of event matches your usual schedule and You often schedule events around 12:30 PM",
		},
		{
			name:  "generic",
			start: "00:15:00",
			score: 0.5,
			want:  "You often schedule events around 12:15 AM",
		},
		{
			name:  "unparseable start",
			start: "noon",
			score: 0.95,
			want:  "Recommended based on your past events",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Explain(storage.HistoricalEvent{StartTime: tt.start}, tt.score)
			if got != tt.want {
				t.Errorf("Explain() = %q, want %q", got, tt.want)
			}
		})
	}
}
