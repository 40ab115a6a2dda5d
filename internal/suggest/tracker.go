package suggest

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/cal-suggest/internal/logging"
	"github.com/khanglvm/cal-suggest/internal/storage"
)

const (
	// feedbackQueueSize is the buffer size for the record queue.
	// If full, records are dropped (non-blocking).
	feedbackQueueSize = 1000

	// batchFlushSize is the number of records that triggers an immediate flush.
	batchFlushSize = 10

	// flushInterval is how often pending records are flushed.
	flushInterval = 50 * time.Millisecond
)

// FeedbackRecorder is the slice of the store the tracker writes to.
type FeedbackRecorder interface {
	RecordFeedback(ctx context.Context, record storage.FeedbackRecord) error
}

// Tracker writes dismissal feedback in the background so dismissing never
// waits on the database.
type Tracker struct {
	recorder FeedbackRecorder
	queue    chan storage.FeedbackRecord
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	enabled  bool
	mu       sync.RWMutex
	logger   zerolog.Logger
}

// NewTracker starts a tracker writing to recorder.
func NewTracker(recorder FeedbackRecorder) *Tracker {
	t := &Tracker{
		recorder: recorder,
		queue:    make(chan storage.FeedbackRecord, feedbackQueueSize),
		stopChan: make(chan struct{}),
		enabled:  recorder != nil,
		logger:   logging.With().Str("component", "feedback-tracker").Logger(),
	}

	t.wg.Add(1)
	go t.processRecords()

	return t
}

// Track queues a record without blocking. A full queue drops it.
func (t *Tracker) Track(record storage.FeedbackRecord) {
	if !t.IsEnabled() {
		return
	}

	select {
	case t.queue <- record:
	default:
		t.logger.Warn().Int64("suggestion_id", record.SuggestionID).Msg("feedback queue full, dropping record")
	}
}

// Stop flushes pending records and stops the background goroutine.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// Disable makes Track a no-op.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// IsEnabled returns whether tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// QueueSize returns the number of records waiting to be written.
func (t *Tracker) QueueSize() int {
	return len(t.queue)
}

func (t *Tracker) processRecords() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]storage.FeedbackRecord, 0, batchFlushSize)

	for {
		select {
		case record := <-t.queue:
			batch = append(batch, record)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = make([]storage.FeedbackRecord, 0, batchFlushSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = make([]storage.FeedbackRecord, 0, batchFlushSize)
			}

		case <-t.stopChan:
			// Drain whatever is still queued.
			for {
				select {
				case record := <-t.queue:
					batch = append(batch, record)
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

func (t *Tracker) flush(records []storage.FeedbackRecord) {
	if len(records) == 0 {
		return
	}

	ctx := context.Background()
	for _, record := range records {
		if err := t.recorder.RecordFeedback(ctx, record); err != nil {
			t.logger.Warn().Err(err).Int64("suggestion_id", record.SuggestionID).Msg("failed to record feedback")
		}
	}
}
