// Package substrate owns the background goroutines that perform network I/O
// on behalf of an add-in instance.
//
// Host calls are synchronous: a host-invoked operation blocks its caller while
// the work runs on the runtime (Block). The runtime never waits on the host.
package substrate

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned when work is submitted to a closed runtime.
var ErrClosed = errors.New("runtime is closed")

// Runtime is a set of tracked background tasks sharing one root context.
type Runtime struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	closed bool
}

// New creates a runtime whose tasks live until Close.
func New() *Runtime {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runtime{
		ctx:    ctx,
		cancel: cancel,
		group:  new(errgroup.Group),
	}
}

// Context returns the root context; it is cancelled by Close.
func (r *Runtime) Context() context.Context {
	return r.ctx
}

// Go spawns a tracked background task.
// A task error is reported by Close; it does not stop other tasks.
func (r *Runtime) Go(task func(ctx context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.group.Go(func() error {
		if err := task(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return nil
}

// Block runs fn on a runtime goroutine and waits for it to finish.
// If ctx ends first, Block returns ctx.Err() and fn keeps running to completion
// in the background.
func (r *Runtime) Block(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	if err := r.Go(func(rctx context.Context) error {
		done <- fn(rctx)
		return nil
	}); err != nil {
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels the root context and waits for every task to return.
func (r *Runtime) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	return r.group.Wait()
}
