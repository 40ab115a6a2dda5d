/*
Package recommend scores a user's past calendar events to propose events
for a given day.

An Engine is trained on a user's full history, then asked for the events
that best represent that history on the target weekday. Feedback on
dismissed suggestions appends to the corpus and nudges the acceptance
threshold. The engine never returns errors: bad input degrades to zero
vectors, skipped candidates or empty results.
*/
package recommend

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/cal-suggest/internal/logging"
	"github.com/khanglvm/cal-suggest/internal/metrics"
	"github.com/khanglvm/cal-suggest/internal/storage"
)

const (
	// DefaultThreshold is the initial similarity threshold.
	DefaultThreshold = 0.7

	// DefaultLimit is the number of recommendations returned when no limit is given.
	DefaultLimit = 3

	// MinThreshold and MaxThreshold bound feedback adjustments.
	MinThreshold = 0.6
	MaxThreshold = 0.9

	// thresholdStep is the adjustment per feedback event.
	thresholdStep = 0.02
)

// Feedback values understood by UpdateModel.
const (
	FeedbackPositive = "positive"
	FeedbackNegative = "negative"
)

// Recommendation is one scored historical event.
type Recommendation struct {
	Event       storage.HistoricalEvent
	Score       float64
	Explanation string
}

// Engine holds the trained corpus and threshold. It is safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	scaler    scaler
	features  []FeatureVector
	events    []storage.HistoricalEvent
	threshold float64
	logger    zerolog.Logger
}

// New creates an untrained engine. A threshold outside [0, 1] falls back
// to DefaultThreshold.
func New(threshold float64) *Engine {
	if threshold < 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Engine{
		threshold: threshold,
		logger:    logging.With().Str("component", "recommend").Logger(),
	}
}

// Threshold returns the current similarity threshold.
func (e *Engine) Threshold() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.threshold
}

// SetThreshold restores a previously adjusted threshold. Values outside
// [0, 1] are ignored.
func (e *Engine) SetThreshold(threshold float64) {
	if threshold < 0 || threshold > 1 {
		return
	}
	e.mu.Lock()
	e.threshold = threshold
	e.mu.Unlock()
	metrics.SimilarityThreshold.Set(threshold)
}

// Size returns the number of events in the corpus.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.events)
}

// Trained reports whether the engine has a corpus to score against.
func (e *Engine) Trained() bool {
	return e.Size() > 0
}

// Train replaces the corpus with history and refits the scaler on it.
// An empty history leaves the engine unchanged.
func (e *Engine) Train(history []storage.HistoricalEvent) {
	if len(history) == 0 {
		e.logger.Debug().Msg("no historical events provided for training")
		return
	}

	start := time.Now()

	raw := make([]FeatureVector, len(history))
	malformed := 0
	for i, event := range history {
		v, ok := ExtractFeatures(event)
		if !ok {
			malformed++
		}
		raw[i] = v
	}

	var fitted scaler
	fitted.fit(raw)

	features := make([]FeatureVector, len(raw))
	for i, v := range raw {
		features[i] = fitted.transform(v)
	}

	events := make([]storage.HistoricalEvent, len(history))
	copy(events, history)

	e.mu.Lock()
	e.scaler = fitted
	e.features = features
	e.events = events
	e.mu.Unlock()

	elapsed := time.Since(start)
	metrics.RecordTraining(elapsed)

	evt := e.logger.Debug().Int("events", len(history)).Dur("took", elapsed)
	if malformed > 0 {
		evt = e.logger.Warn().Int("events", len(history)).Int("malformed", malformed).Dur("took", elapsed)
	}
	evt.Msg("engine trained")
}

// GetRecommendations returns up to limit events from the corpus that fall
// on the same weekday as target and whose cohesion score is above the
// threshold, best first. A limit of zero or less uses DefaultLimit.
func (e *Engine) GetRecommendations(userID int64, target time.Time, limit int) []Recommendation {
	if limit <= 0 {
		limit = DefaultLimit
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.events) == 0 {
		return []Recommendation{}
	}

	weekday := weekdayIndex(target)
	recs := make([]Recommendation, 0)

	for i, event := range e.events {
		day, err := event.ParseDate()
		if err != nil {
			e.logger.Debug().Int64("user_id", userID).Str("event", event.Name).Msg("skipping event with unparseable date")
			continue
		}
		if weekdayIndex(day) != weekday {
			continue
		}

		score := e.corpusCohesion(i)
		if score <= e.threshold {
			continue
		}

		recs = append(recs, Recommendation{
			Event:       event,
			Score:       score,
			Explanation: Explain(event, score),
		})
	}

	sort.SliceStable(recs, func(a, b int) bool {
		return recs[a].Score > recs[b].Score
	})

	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// corpusCohesion is the mean closeness of vector i to every vector in the
// corpus, itself included. It does not look at the target date.
//
// Must be called with mu held.
func (e *Engine) corpusCohesion(i int) float64 {
	if len(e.features) == 0 {
		return 0
	}

	fi := e.features[i]
	total := 0.0
	for _, fj := range e.features {
		dist := 0.0
		for d := range fi {
			diff := fi[d] - fj[d]
			if diff < 0 {
				diff = -diff
			}
			dist += diff
		}
		total += 1 - dist/FeatureDims
	}

	return total / float64(len(e.features))
}

// UpdateModel appends event to the corpus using the current scaler, then
// applies feedback to the threshold. An untrained engine fits its scaler
// on this single event. The scaler is never refit here; call Train for that.
func (e *Engine) UpdateModel(event storage.HistoricalEvent, feedback string) {
	if event.IsZero() {
		return
	}

	v, ok := ExtractFeatures(event)
	if !ok {
		e.logger.Warn().Str("event", event.Name).Msg("feedback event could not be parsed, using zero features")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.scaler.ready {
		e.scaler.fit([]FeatureVector{v})
	}
	e.features = append(e.features, e.scaler.transform(v))
	e.events = append(e.events, event)

	previous := e.threshold
	switch feedback {
	case FeedbackPositive:
		e.threshold = max(MinThreshold, e.threshold-thresholdStep)
	case FeedbackNegative:
		e.threshold = min(MaxThreshold, e.threshold+thresholdStep)
	}

	metrics.SimilarityThreshold.Set(e.threshold)

	e.logger.Debug().
		Str("feedback", feedback).
		Float64("threshold_before", previous).
		Float64("threshold", e.threshold).
		Int("corpus", len(e.events)).
		Msg("engine updated")
}
