// Package task runs blocking store operations on a bounded pool and hands
// back futures that can be awaited or cancelled.
package task

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// ErrShutdown is returned by futures submitted after Shutdown began.
var ErrShutdown = errors.New("task runner is shut down")

// Runner bounds how many submitted functions run at once.
type Runner struct {
	sem    *semaphore.Weighted
	group  errgroup.Group
	logger zerolog.Logger

	mu       sync.Mutex
	closed   bool
	inFlight map[uint64]context.CancelFunc
	nextID   uint64
}

// NewRunner returns a runner executing at most workers functions at a time.
// A non-positive value is treated as one.
func NewRunner(workers int, logger zerolog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		sem:      semaphore.NewWeighted(int64(workers)),
		logger:   logger,
		inFlight: make(map[uint64]context.CancelFunc),
	}
}

// Future is the pending result of a submitted function.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	value  T
	err    error
}

// Wait blocks until the task finishes or ctx is done. Giving up on the wait
// does not cancel the task.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel cancels the context passed to the task. A task still queued for a
// worker finishes with context.Canceled without running.
func (f *Future[T]) Cancel() { f.cancel() }

// Done is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

func (f *Future[T]) finish(v T, err error) {
	f.value, f.err = v, err
	close(f.done)
}

// Submit schedules fn on r. The task's context derives from ctx, so
// cancelling ctx cancels the task as well.
func Submit[T any](r *Runner, ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	tctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancel()
		var zero T
		f.finish(zero, ErrShutdown)
		return f
	}
	id := r.nextID
	r.nextID++
	r.inFlight[id] = cancel
	// Go is called under the lock so Shutdown cannot start Wait before the
	// group counter is incremented.
	r.group.Go(func() error {
		defer r.release(id)
		var zero T
		if err := r.sem.Acquire(tctx, 1); err != nil {
			f.finish(zero, err)
			return nil
		}
		defer r.sem.Release(1)

		v, err := fn(tctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Debug().Err(err).Uint64("task", id).Msg("task failed")
		}
		f.finish(v, err)
		return nil
	})
	r.mu.Unlock()
	return f
}

func (r *Runner) release(id uint64) {
	r.mu.Lock()
	cancel := r.inFlight[id]
	delete(r.inFlight, id)
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Pending reports how many submitted tasks have not finished.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inFlight)
}

// Shutdown stops accepting work and waits for in-flight tasks. When ctx
// ends first the remaining tasks are cancelled and ctx.Err() is returned
// once they have stopped.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.mu.Lock()
		for _, cancel := range r.inFlight {
			cancel()
		}
		r.mu.Unlock()
		<-done
		return ctx.Err()
	}
}

// All waits for every future in order and returns the values, or the first
// error encountered.
func All[T any](ctx context.Context, futures []*Future[T]) ([]T, error) {
	out := make([]T, 0, len(futures))
	for _, f := range futures {
		v, err := f.Wait(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
