package suggest

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/khanglvm/cal-suggest/internal/storage"
)

var errStoreDown = errors.New("store down")

// mockStore is an in-memory storage.Store for tests.
type mockStore struct {
	mu          sync.Mutex
	events      map[int64][]storage.HistoricalEvent
	suggestions map[int64]*storage.Suggestion
	feedback    []storage.FeedbackRecord
	nextID      int64

	historyCalls int
	persistCalls int
	purgeCutoffs []time.Time

	// failFetch, failHistory, failPersist and failThreshold inject store errors.
	failFetch     bool
	failHistory   bool
	failPersist   bool
	failThreshold bool

	// failPersistRow fails the next batch at this 1-based row, once.
	failPersistRow int
}

func newMockStore() *mockStore {
	return &mockStore{
		events:      make(map[int64][]storage.HistoricalEvent),
		suggestions: make(map[int64]*storage.Suggestion),
	}
}

func (m *mockStore) Init() error  { return nil }
func (m *mockStore) Close() error { return nil }

func (m *mockStore) AddEvent(ctx context.Context, userID int64, event storage.HistoricalEvent) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	event.ID = m.nextID
	event.UserID = userID
	m.events[userID] = append(m.events[userID], event)
	return event.ID, nil
}

func (m *mockStore) FetchHistory(ctx context.Context, userID int64) ([]storage.HistoricalEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls++
	if m.failHistory {
		return nil, errStoreDown
	}
	return append([]storage.HistoricalEvent(nil), m.events[userID]...), nil
}

func (m *mockStore) ListUsers(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]int64, 0, len(m.events))
	for id := range m.events {
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users, nil
}

func (m *mockStore) PersistSuggestion(ctx context.Context, s storage.Suggestion) (storage.Suggestion, error) {
	stored, err := m.PersistSuggestions(ctx, []storage.Suggestion{s})
	if err != nil {
		return s, err
	}
	return stored[0], nil
}

// PersistSuggestions writes all rows or none, like a transaction.
func (m *mockStore) PersistSuggestions(ctx context.Context, batch []storage.Suggestion) ([]storage.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPersist {
		return nil, errStoreDown
	}

	stored := make([]storage.Suggestion, 0, len(batch))
	for i, s := range batch {
		if m.failPersistRow == i+1 {
			m.failPersistRow = 0
			for _, written := range stored {
				delete(m.suggestions, written.ID)
			}
			return nil, errStoreDown
		}
		m.persistCalls++
		m.nextID++
		s.ID = m.nextID
		s.SuggestedDate = storage.DateOnly(s.SuggestedDate)
		if s.CreatedAt.IsZero() {
			s.CreatedAt = time.Now()
		}
		row := s
		m.suggestions[s.ID] = &row
		stored = append(stored, s)
	}
	return stored, nil
}

func (m *mockStore) FetchNonDismissed(ctx context.Context, userID int64, date time.Time) ([]storage.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFetch {
		return nil, errStoreDown
	}
	day := storage.DateOnly(date)
	var out []storage.Suggestion
	for _, s := range m.suggestions {
		if s.UserID == userID && s.SuggestedDate.Equal(day) && !s.IsDismissed {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SimilarityScore != out[j].SimilarityScore {
			return out[i].SimilarityScore > out[j].SimilarityScore
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockStore) GetSuggestion(ctx context.Context, id int64) (*storage.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.suggestions[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *mockStore) MarkDismissed(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.suggestions[id]; ok {
		s.IsDismissed = true
	}
	return nil
}

func (m *mockStore) DeleteDismissedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeCutoffs = append(m.purgeCutoffs, cutoff)
	var n int64
	for id, s := range m.suggestions {
		if s.IsDismissed && s.CreatedAt.Before(cutoff) {
			delete(m.suggestions, id)
			n++
		}
	}
	return n, nil
}

func (m *mockStore) RecordFeedback(ctx context.Context, record storage.FeedbackRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedback = append(m.feedback, record)
	return nil
}

func (m *mockStore) LatestThreshold(ctx context.Context, userID int64) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failThreshold {
		return 0, false, errStoreDown
	}
	for i := len(m.feedback) - 1; i >= 0; i-- {
		if userID == storage.AnyUser || m.feedback[i].UserID == userID {
			return m.feedback[i].Threshold, true, nil
		}
	}
	return 0, false, nil
}

func (m *mockStore) feedbackCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.feedback)
}

func (m *mockStore) stats() (history, persist int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyCalls, m.persistCalls
}
