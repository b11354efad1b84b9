package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"carbon-scribe/onboarding-tracker/internal/onboarding"
)

const (
	// writeTimeout bounds the writes for one change event
	writeTimeout = 5 * time.Second
	queueSize    = 64
)

// Recorder writes tracker change events to a Repository. Events are queued
// and written by a background goroutine so a slow database never holds up
// a mutation.
type Recorder struct {
	repo       Repository
	sessionKey string
	logger     *zap.Logger

	mu     sync.Mutex
	closed bool
	queue  chan onboarding.ChangeEvent
	done   chan struct{}
}

// NewRecorder creates a recorder for one session and starts its writer.
// Call Close to flush and stop it.
func NewRecorder(repo Repository, sessionKey string, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{
		repo:       repo,
		sessionKey: sessionKey,
		logger:     logger,
		queue:      make(chan onboarding.ChangeEvent, queueSize),
		done:       make(chan struct{}),
	}
	go r.run()
	return r
}

// Attach subscribes the recorder to t and returns the unsubscribe function
func (r *Recorder) Attach(t *onboarding.Tracker) func() {
	return t.Subscribe(r.Record)
}

// Record queues an event. When the queue is full or the recorder is closed
// the event is dropped and logged.
func (r *Recorder) Record(event onboarding.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Warn("Audit recorder is closed, dropping event",
			zap.String("session_key", r.sessionKey),
			zap.String("kind", string(event.Kind)))
		return
	}
	select {
	case r.queue <- event:
	default:
		r.logger.Warn("Audit queue full, dropping event",
			zap.String("session_key", r.sessionKey),
			zap.String("kind", string(event.Kind)))
	}
}

// Close stops accepting events and waits for queued ones to be written
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Recorder) run() {
	defer close(r.done)
	for event := range r.queue {
		r.write(event)
	}
}

// write stores one entry per changed step. Failures are logged only.
func (r *Recorder) write(event onboarding.ChangeEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	for _, entry := range EntriesFor(r.sessionKey, event) {
		if err := r.repo.Create(ctx, entry); err != nil {
			r.logger.Error("Failed to record audit entry",
				zap.String("session_key", r.sessionKey),
				zap.String("step_id", entry.StepID),
				zap.String("action", entry.Action),
				zap.Error(err))
		}
	}
}
