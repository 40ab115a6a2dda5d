package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDismissal(t *testing.T) {
	tests := []struct {
		feedback string
		label    string
	}{
		{"positive", "positive"},
		{"negative", "negative"},
		{"", "none"},
		{"meh", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			before := testutil.ToFloat64(Dismissals.WithLabelValues(tt.label))
			RecordDismissal(tt.feedback)
			after := testutil.ToFloat64(Dismissals.WithLabelValues(tt.label))

			if after-before != 1 {
				t.Errorf("expected %q counter to grow by 1, got %f", tt.label, after-before)
			}
		})
	}
}

func TestRecordTraining(t *testing.T) {
	before := testutil.ToFloat64(EngineTrainings)
	RecordTraining(3 * time.Millisecond)

	if got := testutil.ToFloat64(EngineTrainings); got-before != 1 {
		t.Errorf("expected trainings to grow by 1, got %f", got-before)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	SuggestionRequests.WithLabelValues(OutcomeGenerated).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "calsuggest_suggestion_requests_total") {
		t.Error("expected suggestion request counter in output")
	}
}
