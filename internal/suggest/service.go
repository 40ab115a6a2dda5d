/*
Package suggest orchestrates per-user, per-date event suggestions.

A Service answers from persisted suggestions when it can and otherwise
trains a recommendation engine on the user's history, persists what it
recommends and returns the stored rows. Dismissals mark rows and feed
sentiment back into the engine; the resulting threshold is logged with the
feedback and restored from that log the first time an engine is used, so
adjustments outlive the process. Store failures are logged and turn into
empty results; nothing here returns an error to the caller.
*/
package suggest

import (
	"context"
	"sync"
	"time"

	"github.com/khanglvm/cal-suggest/internal/logging"
	"github.com/khanglvm/cal-suggest/internal/metrics"
	"github.com/khanglvm/cal-suggest/internal/recommend"
	"github.com/khanglvm/cal-suggest/internal/storage"
)

const (
	// DefaultRefreshInterval is how long a refresh stays current.
	DefaultRefreshInterval = 24 * time.Hour

	// DefaultRetention is how long dismissed suggestions are kept.
	DefaultRetention = 7 * 24 * time.Hour
)

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	Threshold       float64
	Limit           int
	RefreshInterval time.Duration
	Retention       time.Duration

	// PerUserModels gives every user their own engine instead of sharing one.
	PerUserModels bool

	// Tracker, if set, receives a record for every dismissal with feedback.
	Tracker *Tracker

	// WarmOnRefresh makes Run compute today's suggestions for every user
	// with history after each refresh.
	WarmOnRefresh bool

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service is the suggestion lifecycle over a store and a recommendation engine.
type Service struct {
	store   storage.Store
	tracker *Tracker
	opts    Options

	// genMu serializes train + recommend so a shared engine is not
	// retrained by another request between the two steps.
	genMu sync.Mutex

	mu          sync.Mutex
	engine      *recommend.Engine
	engines     map[int64]*recommend.Engine
	lastRefresh time.Time

	// seedMu guards seeded, keyed by user id or storage.AnyUser for the
	// shared engine.
	seedMu sync.Mutex
	seeded map[int64]bool
}

// NewService creates a Service over store.
func NewService(store storage.Store, opts Options) *Service {
	if opts.Threshold == 0 {
		opts.Threshold = recommend.DefaultThreshold
	}
	if opts.Limit <= 0 {
		opts.Limit = recommend.DefaultLimit
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		store:   store,
		tracker: opts.Tracker,
		opts:    opts,
		engines: make(map[int64]*recommend.Engine),
		seeded:  make(map[int64]bool),
	}
	if !opts.PerUserModels {
		s.engine = recommend.New(opts.Threshold)
	}
	metrics.SimilarityThreshold.Set(opts.Threshold)

	return s
}

// Engine returns the engine serving userID.
func (s *Service) Engine(userID int64) *recommend.Engine {
	if !s.opts.PerUserModels {
		return s.engine
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	engine, ok := s.engines[userID]
	if !ok {
		engine = recommend.New(s.opts.Threshold)
		s.engines[userID] = engine
	}
	return engine
}

// engineFor returns the engine serving userID after restoring its threshold
// from the feedback log on first use. A failed lookup is retried on the
// next call.
func (s *Service) engineFor(ctx context.Context, userID int64) *recommend.Engine {
	engine := s.Engine(userID)

	key := storage.AnyUser
	if s.opts.PerUserModels {
		key = userID
	}

	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	if s.seeded[key] {
		return engine
	}

	threshold, ok, err := s.store.LatestThreshold(ctx, key)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("component", "suggest").Msg("failed to restore threshold")
		return engine
	}
	s.seeded[key] = true

	if ok {
		engine.SetThreshold(threshold)
		logging.Ctx(ctx).Debug().
			Str("component", "suggest").
			Int64("user_id", userID).
			Float64("threshold", threshold).
			Msg("restored threshold from feedback log")
	}
	return engine
}

// GetSuggestions returns the live suggestions for a user on date, computing
// and persisting new ones when none are stored.
func (s *Service) GetSuggestions(ctx context.Context, userID int64, date time.Time) []storage.Suggestion {
	ctx = logging.EnsureCorrelationID(ctx)
	log := logging.Ctx(ctx).With().
		Str("component", "suggest").
		Int64("user_id", userID).
		Str("date", date.Format(storage.DateLayout)).
		Logger()

	if s.ShouldRefresh() {
		s.RefreshSuggestions(ctx)
	}

	day := storage.DateOnly(date)

	cached, err := s.store.FetchNonDismissed(ctx, userID, day)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch cached suggestions")
		metrics.SuggestionRequests.WithLabelValues(metrics.OutcomeStoreError).Inc()
		return []storage.Suggestion{}
	}
	if len(cached) > 0 {
		log.Debug().Int("count", len(cached)).Msg("serving cached suggestions")
		metrics.SuggestionRequests.WithLabelValues(metrics.OutcomeCacheHit).Inc()
		return cached
	}

	history, err := s.store.FetchHistory(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to fetch event history")
		metrics.SuggestionRequests.WithLabelValues(metrics.OutcomeStoreError).Inc()
		return []storage.Suggestion{}
	}
	if len(history) == 0 {
		metrics.SuggestionRequests.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return []storage.Suggestion{}
	}

	recs := s.recommend(ctx, userID, day, history)
	if len(recs) == 0 {
		log.Debug().Int("history", len(history)).Msg("no event passed the similarity threshold")
		metrics.SuggestionRequests.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return []storage.Suggestion{}
	}

	now := s.opts.Now()
	batch := make([]storage.Suggestion, 0, len(recs))
	for _, rec := range recs {
		batch = append(batch, storage.Suggestion{
			UserID:          userID,
			EventName:       rec.Event.Name,
			SuggestedDate:   day,
			SuggestedTime:   rec.Event.StartTime,
			Explanation:     rec.Explanation,
			SimilarityScore: rec.Score,
			CreatedAt:       now,
		})
	}
	if _, err := s.store.PersistSuggestions(ctx, batch); err != nil {
		log.Warn().Err(err).Int("count", len(batch)).Msg("failed to persist suggestions")
		metrics.SuggestionRequests.WithLabelValues(metrics.OutcomeStoreError).Inc()
		return []storage.Suggestion{}
	}
	metrics.SuggestionsPersisted.Add(float64(len(batch)))

	fresh, err := s.store.FetchNonDismissed(ctx, userID, day)
	if err != nil {
		log.Warn().Err(err).Msg("failed to re-read persisted suggestions")
		metrics.SuggestionRequests.WithLabelValues(metrics.OutcomeStoreError).Inc()
		return []storage.Suggestion{}
	}

	log.Info().Int("count", len(fresh)).Int("history", len(history)).Msg("generated suggestions")
	metrics.SuggestionRequests.WithLabelValues(metrics.OutcomeGenerated).Inc()
	return fresh
}

func (s *Service) recommend(ctx context.Context, userID int64, day time.Time, history []storage.HistoricalEvent) []recommend.Recommendation {
	engine := s.engineFor(ctx, userID)

	s.genMu.Lock()
	defer s.genMu.Unlock()

	engine.Train(history)
	return engine.GetRecommendations(userID, day, s.opts.Limit)
}

// DismissSuggestion marks a suggestion dismissed. A non-empty feedback is
// forwarded to the engine and logged. It reports whether the suggestion
// exists; dismissing an already dismissed suggestion is harmless.
func (s *Service) DismissSuggestion(ctx context.Context, id int64, feedback string) bool {
	ctx = logging.EnsureCorrelationID(ctx)
	log := logging.Ctx(ctx).With().
		Str("component", "suggest").
		Int64("suggestion_id", id).
		Logger()

	sug, err := s.store.GetSuggestion(ctx, id)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load suggestion")
		return false
	}
	if sug == nil {
		log.Debug().Msg("dismiss for unknown suggestion ignored")
		return false
	}

	if err := s.store.MarkDismissed(ctx, id); err != nil {
		log.Warn().Err(err).Msg("failed to mark suggestion dismissed")
		return false
	}
	metrics.RecordDismissal(feedback)

	if feedback == "" {
		return true
	}

	engine := s.engineFor(ctx, sug.UserID)
	engine.UpdateModel(sug.AsEvent(), feedback)

	if s.tracker != nil {
		s.tracker.Track(storage.FeedbackRecord{
			SuggestionID: id,
			UserID:       sug.UserID,
			EventName:    sug.EventName,
			Feedback:     feedback,
			Threshold:    engine.Threshold(),
			Timestamp:    s.opts.Now(),
		})
	}

	log.Info().Str("feedback", feedback).Float64("threshold", engine.Threshold()).Msg("suggestion dismissed")
	return true
}
