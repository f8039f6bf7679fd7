package worker

import (
	"context"
	"sync"
)

// Future holds the eventual result of a queued task.
type Future[T any] struct {
	done      chan struct{}
	mu        sync.Mutex
	resolved  bool
	value     T
	err       error
	listeners []func(T, error)
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that is already complete.
func Resolved[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(value, err)
	return f
}

func (f *Future[T]) resolve(value T, err error) {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return
	}
	f.resolved = true
	f.value = value
	f.err = err
	listeners := f.listeners
	f.listeners = nil
	f.mu.Unlock()

	for _, l := range listeners {
		l(value, err)
	}
	// Listeners have run by the time Await returns
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the task finished or ctx is done. Giving up on the
// wait does not cancel the task.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then registers fn to run with the result. If the future is already
// complete fn runs immediately on the calling goroutine, otherwise on the
// worker that completes it.
func (f *Future[T]) Then(fn func(T, error)) {
	f.mu.Lock()
	if f.resolved {
		value, err := f.value, f.err
		f.mu.Unlock()
		fn(value, err)
		return
	}
	f.listeners = append(f.listeners, fn)
	f.mu.Unlock()
}
