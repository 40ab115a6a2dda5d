package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/khanglvm/cal-suggest/internal/logging"
	"github.com/khanglvm/cal-suggest/internal/metrics"
)

// BreakerSettings tunes the circuit breaker around a Store.
type BreakerSettings struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint32

	// OpenTimeout is how long the circuit stays open before probing again.
	OpenTimeout time.Duration
}

// BreakerStore wraps a Store with a circuit breaker so a failing database
// is skipped quickly instead of being hit on every request.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[any]
	name  string
}

// NewBreakerStore wraps inner with a circuit breaker.
func NewBreakerStore(inner Store, settings BreakerSettings) *BreakerStore {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}

	name := "suggestion-store"
	metrics.BreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	})

	return &BreakerStore{inner: inner, cb: cb, name: name}
}

// State returns the current breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStore) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.BreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.BreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	default:
		metrics.BreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return result, err
}

// castResult type-asserts a breaker result.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// Init initializes the wrapped store.
func (b *BreakerStore) Init() error {
	return b.inner.Init()
}

// Close closes the wrapped store.
func (b *BreakerStore) Close() error {
	return b.inner.Close()
}

func (b *BreakerStore) AddEvent(ctx context.Context, userID int64, event HistoricalEvent) (int64, error) {
	return castResult[int64](b.execute(func() (any, error) {
		return b.inner.AddEvent(ctx, userID, event)
	}))
}

func (b *BreakerStore) FetchHistory(ctx context.Context, userID int64) ([]HistoricalEvent, error) {
	return castResult[[]HistoricalEvent](b.execute(func() (any, error) {
		return b.inner.FetchHistory(ctx, userID)
	}))
}

func (b *BreakerStore) ListUsers(ctx context.Context) ([]int64, error) {
	return castResult[[]int64](b.execute(func() (any, error) {
		return b.inner.ListUsers(ctx)
	}))
}

func (b *BreakerStore) PersistSuggestion(ctx context.Context, s Suggestion) (Suggestion, error) {
	return castResult[Suggestion](b.execute(func() (any, error) {
		return b.inner.PersistSuggestion(ctx, s)
	}))
}

func (b *BreakerStore) PersistSuggestions(ctx context.Context, batch []Suggestion) ([]Suggestion, error) {
	return castResult[[]Suggestion](b.execute(func() (any, error) {
		return b.inner.PersistSuggestions(ctx, batch)
	}))
}

func (b *BreakerStore) FetchNonDismissed(ctx context.Context, userID int64, date time.Time) ([]Suggestion, error) {
	return castResult[[]Suggestion](b.execute(func() (any, error) {
		return b.inner.FetchNonDismissed(ctx, userID, date)
	}))
}

func (b *BreakerStore) GetSuggestion(ctx context.Context, id int64) (*Suggestion, error) {
	return castResult[*Suggestion](b.execute(func() (any, error) {
		return b.inner.GetSuggestion(ctx, id)
	}))
}

func (b *BreakerStore) MarkDismissed(ctx context.Context, id int64) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.MarkDismissed(ctx, id)
	})
	return err
}

func (b *BreakerStore) DeleteDismissedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return castResult[int64](b.execute(func() (any, error) {
		return b.inner.DeleteDismissedBefore(ctx, cutoff)
	}))
}

func (b *BreakerStore) RecordFeedback(ctx context.Context, record FeedbackRecord) error {
	_, err := b.execute(func() (any, error) {
		return nil, b.inner.RecordFeedback(ctx, record)
	})
	return err
}

type latestThreshold struct {
	value float64
	ok    bool
}

func (b *BreakerStore) LatestThreshold(ctx context.Context, userID int64) (float64, bool, error) {
	res, err := castResult[latestThreshold](b.execute(func() (any, error) {
		v, ok, err := b.inner.LatestThreshold(ctx, userID)
		return latestThreshold{value: v, ok: ok}, err
	}))
	return res.value, res.ok, err
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
