package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrTaskTimeout      = errors.New("task exceeded timeout")
	ErrTaskPanicked     = errors.New("task panicked")
	ErrPoolClosed       = errors.New("worker pool closed")
	ErrSchedulingFailed = errors.New("batch scheduling failed")
)

type Task[T any] func(ctx context.Context) (T, error)

// Result is delivered once per submitted task. Index is the submission order.
type Result[T any] struct {
	Index    int
	Value    T
	Err      error
	Duration time.Duration
}

type queuedTask[T any] struct {
	index int
	run   Task[T]
}

// WorkerPool runs tasks on a fixed number of workers. Each task gets its own
// deadline; a task that overruns it is reported as ErrTaskTimeout and its goroutine
// is abandoned, so the worker can move on without waiting for it.
type WorkerPool[T any] struct {
	workers int
	timeout time.Duration
	tasks   chan queuedTask[T]
	wg      sync.WaitGroup

	mu     sync.Mutex
	next   int
	closed bool
}

func NewWorkerPool[T any](workers, buffer int, timeout time.Duration) *WorkerPool[T] {
	if workers <= 0 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	return &WorkerPool[T]{
		workers: workers,
		timeout: timeout,
		tasks:   make(chan queuedTask[T], buffer),
	}
}

// Submit queues t and returns its index. It blocks while the buffer is full.
func (p *WorkerPool[T]) Submit(t Task[T]) (int, error) {
	if p == nil || t == nil {
		return 0, ErrPoolClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPoolClosed
	}
	idx := p.next
	p.next++
	p.tasks <- queuedTask[T]{index: idx, run: t}
	return idx, nil
}

func (p *WorkerPool[T]) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.tasks)
}

// Run starts the workers. The returned channel closes after every worker exits,
// either because the task queue was closed and drained or ctx was cancelled.
func (p *WorkerPool[T]) Run(ctx context.Context) <-chan Result[T] {
	buf := cap(p.tasks)
	if buf < p.workers {
		buf = p.workers
	}
	out := make(chan Result[T], buf)

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-p.tasks:
					if !ok {
						return
					}
					start := time.Now()
					v, err := p.exec(ctx, t.run)
					select {
					case <-ctx.Done():
						return
					case out <- Result[T]{Index: t.index, Value: v, Err: err, Duration: time.Since(start)}:
					}
				}
			}
		}()
	}

	go func() {
		p.wg.Wait()
		close(out)
	}()

	return out
}

func (p *WorkerPool[T]) exec(ctx context.Context, run Task[T]) (T, error) {
	var zero T

	tctx, cancel := ctx, context.CancelFunc(func() {})
	if p.timeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, p.timeout)
	}
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrTaskPanicked, r)}
			}
		}()
		v, err := run(tctx)
		done <- outcome{v: v, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("%w after %s: %v", ErrTaskTimeout, p.timeout, o.err)
		}
		return o.v, o.err
	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", ErrTaskTimeout, p.timeout)
	}
}
