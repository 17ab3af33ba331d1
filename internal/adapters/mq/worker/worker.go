// Package worker runs a page's event loop: a single goroutine executing
// queued tasks one at a time, so document state is never touched
// concurrently.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/signupdesk/internal/adapters/mq/queue"
	"github.com/okian/signupdesk/pkg/logger"
	"github.com/okian/signupdesk/pkg/metrics"
)

const (
	defaultShutdownTimeout = 5 * time.Second
)

// Sentinel kinds for loop errors.
var (
	ErrStopped    = errors.New("event loop stopped")
	ErrReentrant  = errors.New("event loop task waited on its own loop")
	ErrTaskPanics = errors.New("event loop task panicked")
)

// Queue defines how the loop receives tasks.
type Queue interface {
	Enqueue(ctx context.Context, t queue.Task) bool
	Dequeue(ctx context.Context) <-chan queue.Task
	Close() error
	IsClosed() bool
}

type loopKey struct{}

// Loop executes tasks sequentially on one goroutine.
type Loop struct {
	queue           Queue
	name            string
	shutdownTimeout time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	shutdown  chan struct{}
	done      chan struct{}

	logger logger.Logger
}

// NewLoop creates a loop reading from q. Call Start before Do.
func NewLoop(q Queue, opts ...Option) *Loop {
	l := &Loop{
		queue:           q,
		name:            "ui",
		shutdownTimeout: defaultShutdownTimeout,
		shutdown:        make(chan struct{}),
		done:            make(chan struct{}),
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the loop goroutine once.
func (l *Loop) Start(ctx context.Context) {
	l.startOnce.Do(func() {
		metrics.IncPagesOpen()
		go l.run(ctx)
	})
}

func (l *Loop) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		// Callers waiting for queue room must not outlive the loop.
		_ = l.queue.Close()
		metrics.DecPagesOpen()
		close(l.done)
	}()

	taskCtx := context.WithValue(ctx, loopKey{}, l)
	tasks := l.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			l.execute(taskCtx, t)
		}
	}
}

func (l *Loop) execute(ctx context.Context, t queue.Task) { //nolint:gocritic // Task arrives by value from the channel
	start := time.Now()
	defer func() {
		metrics.RecordUITask(float64(time.Since(start).Microseconds()) / 1000)
	}()
	t.Run(ctx)
}

// Do runs fn on the loop and waits for it to finish. Calling Do from a
// task of the same loop returns ErrReentrant instead of deadlocking.
func (l *Loop) Do(ctx context.Context, name string, fn func(ctx context.Context)) error {
	if owner, _ := ctx.Value(loopKey{}).(*Loop); owner == l {
		return fmt.Errorf("%w: %s", ErrReentrant, name)
	}

	finished := make(chan error, 1)
	task := queue.Task{Name: name, Run: func(taskCtx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error(taskCtx, "task panicked", logger.String("task", name), logger.Any("panic", r))
				finished <- fmt.Errorf("%w: %s: %v", ErrTaskPanics, name, r)
			}
		}()
		fn(taskCtx)
		finished <- nil
	}}

	select {
	case <-l.done:
		return fmt.Errorf("%w: %s", ErrStopped, name)
	default:
	}
	// Enqueue waits while the queue is full; it fails only once the queue
	// is closed or ctx ends.
	if !l.queue.Enqueue(ctx, task) {
		if l.queue.IsClosed() {
			return fmt.Errorf("%w: %s", ErrStopped, name)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrStopped, name)
	}

	select {
	case err := <-finished:
		return err
	case <-l.done:
		// The loop may have run the task just before stopping.
		select {
		case err := <-finished:
			return err
		default:
			return fmt.Errorf("%w: %s", ErrStopped, name)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the loop goroutine has exited.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Shutdown closes the queue, lets queued tasks drain and waits for the
// loop to exit or ctx to expire.
func (l *Loop) Shutdown(ctx context.Context) error {
	if err := l.queue.Close(); err != nil {
		l.logger.Warn(ctx, "error closing queue", logger.Error(err))
	}

	ctx, cancel := context.WithTimeout(ctx, l.shutdownTimeout)
	defer cancel()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.stopOnce.Do(func() { close(l.shutdown) })
		l.logger.Warn(ctx, "event loop shutdown timed out", logger.String("loop", l.name))
		return fmt.Errorf("event loop shutdown timed out: %w", ctx.Err())
	}
}

// Stop ends the loop without draining queued tasks.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.shutdown) })
	_ = l.queue.Close()
}
