package suggest

import (
	"context"
	"time"

	"github.com/khanglvm/cal-suggest/internal/logging"
	"github.com/khanglvm/cal-suggest/internal/metrics"
)

// ShouldRefresh reports whether a refresh has never run or the last one is
// older than the refresh interval.
func (s *Service) ShouldRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRefresh.IsZero() {
		return true
	}
	return s.opts.Now().Sub(s.lastRefresh) > s.opts.RefreshInterval
}

// LastRefresh returns when RefreshSuggestions last ran.
func (s *Service) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

// RefreshSuggestions records the refresh time and deletes dismissed
// suggestions older than the retention window. The purge runs on every
// call regardless of ShouldRefresh. It returns the number of rows removed.
func (s *Service) RefreshSuggestions(ctx context.Context) int64 {
	now := s.opts.Now()

	s.mu.Lock()
	s.lastRefresh = now
	s.mu.Unlock()

	cutoff := now.Add(-s.opts.Retention)
	n, err := s.store.DeleteDismissedBefore(ctx, cutoff)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("component", "suggest").Msg("failed to purge dismissed suggestions")
		return 0
	}

	metrics.PurgedSuggestions.Add(float64(n))
	if n > 0 {
		logging.Ctx(ctx).Info().
			Str("component", "suggest").
			Int64("purged", n).
			Time("cutoff", cutoff).
			Msg("purged dismissed suggestions")
	}
	return n
}

// WarmSuggestions computes suggestions on date for every user with history
// and returns how many users were served. Users with cached suggestions
// are a cache hit and cost one read.
func (s *Service) WarmSuggestions(ctx context.Context, date time.Time) int {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("component", "suggest").Msg("failed to list users for warm-up")
		return 0
	}

	for _, userID := range users {
		if ctx.Err() != nil {
			return 0
		}
		s.GetSuggestions(ctx, userID, date)
	}
	return len(users)
}

// Run refreshes immediately and then once per refresh interval until ctx
// is cancelled. With WarmOnRefresh each refresh is followed by
// WarmSuggestions for the current day.
func (s *Service) Run(ctx context.Context) {
	s.cycle(ctx)

	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	ctx = logging.EnsureCorrelationID(ctx)
	s.RefreshSuggestions(ctx)
	if s.opts.WarmOnRefresh {
		n := s.WarmSuggestions(ctx, s.opts.Now())
		logging.Ctx(ctx).Debug().Str("component", "suggest").Int("users", n).Msg("warmed suggestions")
	}
}
