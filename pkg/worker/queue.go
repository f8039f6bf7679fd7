package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mwantia/memobox/pkg/log"
	"github.com/panjf2000/ants/v2"
)

// ErrQueueClosed resolves futures submitted after Close.
var ErrQueueClosed = errors.New("queue closed")

type job struct {
	run  func()
	fail func(error)
}

// Queue runs tasks on a bounded ants pool. A single dispatcher hands tasks
// to the pool in submission order, so tasks start in that order; with one
// worker they also finish in it. Submitting never blocks the caller.
type Queue struct {
	name string
	pool *ants.Pool
	log  log.LoggerService

	mu      sync.Mutex
	pending []job
	closed  bool
	signal  chan struct{}
	stopped chan struct{}
	running sync.WaitGroup
}

func NewQueue(name string, workers int, logger log.LoggerService) (*Queue, error) {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	q := &Queue{
		name:    name,
		log:     logger,
		signal:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}

	pool, err := ants.NewPool(workers, ants.WithPanicHandler(func(p any) {
		q.log.Error("Task on queue '%s' panicked: %v", q.name, p)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	q.pool = pool

	go q.dispatch()
	return q, nil
}

func (q *Queue) Name() string {
	return q.name
}

// Workers returns the pool capacity.
func (q *Queue) Workers() int {
	return q.pool.Cap()
}

func (q *Queue) enqueue(j job) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		j.fail(ErrQueueClosed)
		return
	}
	q.pending = append(q.pending, j)
	q.mu.Unlock()

	q.wake()
}

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *Queue) dispatch() {
	defer close(q.stopped)

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.signal
			continue
		}
		j := q.pending[0]
		q.pending[0] = job{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.running.Add(1)
		// Submit blocks while all workers are busy
		err := q.pool.Submit(func() {
			defer q.running.Done()
			j.run()
		})
		if err != nil {
			q.running.Done()
			j.fail(fmt.Errorf("queue '%s': %w", q.name, err))
		}
	}
}

// Close stops accepting tasks, waits for queued and running tasks to finish
// and releases the pool. If ctx ends first the pool is released anyway.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	q.wake()

	drained := make(chan struct{})
	go func() {
		<-q.stopped
		q.running.Wait()
		close(drained)
	}()

	defer q.pool.Release()

	select {
	case <-drained:
		q.log.Debug("Queue '%s' drained", q.name)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue '%s' did not drain: %w", q.name, ctx.Err())
	}
}

// Submit queues fn on q and returns its future. fn receives ctx without
// its cancellation, since submitted tasks always run to completion.
func Submit[T any](ctx context.Context, q *Queue, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()
	taskCtx := context.WithoutCancel(ctx)

	q.enqueue(job{
		run: func() {
			defer func() {
				if p := recover(); p != nil {
					var zero T
					f.resolve(zero, fmt.Errorf("task panicked: %v", p))
				}
			}()

			value, err := fn(taskCtx)
			f.resolve(value, err)
		},
		fail: func(err error) {
			var zero T
			f.resolve(zero, err)
		},
	})

	return f
}

// Go queues fn without a future. Failures are logged.
func (q *Queue) Go(ctx context.Context, what string, fn func(ctx context.Context) error) {
	Submit(ctx, q, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	}).Then(func(_ struct{}, err error) {
		if err != nil {
			q.log.Warn("Background task '%s' on queue '%s' failed: %v", what, q.name, err)
		}
	})
}
