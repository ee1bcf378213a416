// Package history records the outcome of finished games.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Outcome is how a game ended.
type Outcome string

// Game outcomes.
const (
	OutcomeWon    Outcome = "won"
	OutcomeTimeUp Outcome = "time_up"
	OutcomeQuit   Outcome = "quit"
)

// Result describes one finished game.
type Result struct {
	SessionID  string
	Puzzle     string
	Outcome    Outcome
	WordsFound int
	WordsTotal int
	StartedAt  time.Time
	EndedAt    time.Time
}

// Duration returns how long the game lasted.
func (r Result) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// Recorder accepts finished-game results. Record must not block the caller.
type Recorder interface {
	Record(r Result)
}

// Store persists results.
type Store interface {
	SaveResult(ctx context.Context, r Result) error
}

// Nop is a Recorder that discards results.
type Nop struct{}

// Record discards r.
func (Nop) Record(Result) {}

// ErrRecorderClosed is returned by Close when called twice.
var ErrRecorderClosed = errors.New("recorder closed")

// AsyncRecorder queues results in a buffered channel and writes them to a
// Store from a single worker goroutine.
type AsyncRecorder struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.RWMutex
	queue  chan Result
	closed bool
	done   chan struct{}
}

// NewAsyncRecorder creates a recorder with the given buffer size and starts its worker.
//
// Precondition: store and logger must be non-nil; buffer must be >= 1.
// Postcondition: The worker runs until Close is called.
func NewAsyncRecorder(store Store, buffer int, logger *zap.Logger) *AsyncRecorder {
	if buffer < 1 {
		buffer = 1
	}
	r := &AsyncRecorder{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
		queue:   make(chan Result, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Record enqueues res. When the buffer is full or the recorder is closed the
// result is dropped and a warning is logged.
func (r *AsyncRecorder) Record(res Result) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.logger.Warn("history recorder closed, dropping result",
			zap.String("session_id", res.SessionID),
		)
		return
	}
	select {
	case r.queue <- res:
	default:
		r.logger.Warn("history buffer full, dropping result",
			zap.String("session_id", res.SessionID),
			zap.String("outcome", string(res.Outcome)),
		)
	}
}

func (r *AsyncRecorder) run() {
	defer close(r.done)
	for res := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.store.SaveResult(ctx, res)
		cancel()
		if err != nil {
			r.logger.Error("saving game result",
				zap.String("session_id", res.SessionID),
				zap.String("outcome", string(res.Outcome)),
				zap.Error(err),
			)
			continue
		}
		r.logger.Debug("game result saved",
			zap.String("session_id", res.SessionID),
			zap.String("outcome", string(res.Outcome)),
			zap.Duration("duration", res.Duration()),
		)
	}
}

// Close stops accepting results and waits for queued ones to be written or ctx to end.
//
// Postcondition: Returns nil once the queue is drained, ctx.Err() on timeout,
// or ErrRecorderClosed if already closed.
func (r *AsyncRecorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRecorderClosed
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
