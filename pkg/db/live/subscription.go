package live

import (
	"context"
)

// Update carries one snapshot of a live query result.
type Update[T any] struct {
	Value T
	Err   error
}

// QueryFunc produces the current result of a live query.
type QueryFunc[T any] func(ctx context.Context) (T, error)

// Subscription re-runs its query whenever one of its tables changes and
// delivers the result on C. Only the newest undelivered snapshot is kept.
type Subscription[T any] struct {
	out    chan Update[T]
	cancel context.CancelFunc
	done   chan struct{}
}

// Subscribe starts a subscription that delivers the current result at once
// and again after every notification for one of tables. It stops when ctx
// is done, Close is called or the hub is closed.
func Subscribe[T any](ctx context.Context, hub *Hub, query QueryFunc[T], tables ...string) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)

	s := &Subscription[T]{
		out:    make(chan Update[T], 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	// A closed hub yields a single snapshot
	var dirty <-chan struct{}
	id, e, ok := hub.register(tables)
	if ok {
		dirty = e.dirty
	}

	go s.run(ctx, query, dirty)

	go func() {
		<-s.done
		if ok {
			hub.unregister(id)
		}
	}()

	return s
}

// C returns the delivery channel. It is closed when the subscription ends.
func (s *Subscription[T]) C() <-chan Update[T] {
	return s.out
}

// Next waits for the next snapshot. The boolean is false once the
// subscription has ended or ctx is done.
func (s *Subscription[T]) Next(ctx context.Context) (Update[T], bool) {
	select {
	case u, ok := <-s.out:
		return u, ok
	case <-ctx.Done():
		return Update[T]{Err: ctx.Err()}, false
	}
}

// Close stops the subscription and waits for its goroutine to exit.
func (s *Subscription[T]) Close() {
	s.cancel()
	<-s.done
}

func (s *Subscription[T]) run(ctx context.Context, query QueryFunc[T], dirty <-chan struct{}) {
	defer close(s.done)
	defer close(s.out)

	for {
		value, err := query(ctx)
		if ctx.Err() != nil {
			return
		}
		s.publish(Update[T]{Value: value, Err: err})

		if dirty == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case _, ok := <-dirty:
			if !ok {
				return
			}
		}
	}
}

func (s *Subscription[T]) publish(u Update[T]) {
	for {
		select {
		case s.out <- u:
			return
		default:
		}

		// Drop the stale snapshot the consumer has not picked up yet
		select {
		case <-s.out:
		default:
		}
	}
}
