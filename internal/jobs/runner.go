package jobs

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRunnerClosed is returned when dispatching after shutdown began.
var ErrRunnerClosed = errors.New("runner is shut down")

// Runner schedules each job's pipeline as an independent goroutine.
// Submitters never wait on dispatched work; Shutdown drains in-flight
// jobs up to a bounded timeout.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewRunner creates a runner whose jobs stop when ctx is canceled.
func NewRunner(ctx context.Context) *Runner {
	runCtx, cancel := context.WithCancel(ctx)
	return &Runner{ctx: runCtx, cancel: cancel}
}

// Dispatch runs fn on its own goroutine and returns immediately.
func (r *Runner) Dispatch(fn func(ctx context.Context)) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRunnerClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		fn(r.ctx)
	}()
	return nil
}

// Shutdown rejects new dispatches and waits up to timeout for running
// jobs to finish. It reports whether the drain completed in time.
func (r *Runner) Shutdown(timeout time.Duration) bool {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	doneCh := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}
