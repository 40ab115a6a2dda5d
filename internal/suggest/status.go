package suggest

import (
	"sort"
	"time"

	"github.com/khanglvm/cal-suggest/internal/recommend"
	"github.com/khanglvm/cal-suggest/internal/storage"
)

// Status is a point-in-time view of a Service.
type Status struct {
	LastRefresh    time.Time      `json:"last_refresh"`
	QueuedFeedback int            `json:"queued_feedback"`
	Engines        []EngineStatus `json:"engines"`
}

// EngineStatus describes one engine. UserID is storage.AnyUser for the
// shared engine.
type EngineStatus struct {
	UserID    int64   `json:"user_id"`
	Trained   bool    `json:"trained"`
	Events    int     `json:"events"`
	Threshold float64 `json:"threshold"`
}

// Status reports refresh time, pending feedback writes and engine state.
func (s *Service) Status() Status {
	st := Status{LastRefresh: s.LastRefresh()}
	if s.tracker != nil {
		st.QueuedFeedback = s.tracker.QueueSize()
	}

	s.mu.Lock()
	if s.engine != nil {
		st.Engines = append(st.Engines, engineStatus(storage.AnyUser, s.engine))
	}
	for userID, engine := range s.engines {
		st.Engines = append(st.Engines, engineStatus(userID, engine))
	}
	s.mu.Unlock()

	sort.Slice(st.Engines, func(i, j int) bool {
		return st.Engines[i].UserID < st.Engines[j].UserID
	})
	return st
}

func engineStatus(userID int64, e *recommend.Engine) EngineStatus {
	return EngineStatus{
		UserID:    userID,
		Trained:   e.Trained(),
		Events:    e.Size(),
		Threshold: e.Threshold(),
	}
}
