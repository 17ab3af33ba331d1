// Package queue holds the bounded task queue feeding a page's event loop.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/signupdesk/pkg/metrics"
)

const (
	defaultQueueCapacity = 64
)

// Task is one unit of work for the event loop.
type Task struct {
	// Name labels the task in logs.
	Name string
	// Run executes on the loop goroutine.
	Run func(ctx context.Context)
	// Enqueued is set by Enqueue.
	Enqueued time.Time
}

// Queue provides blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a task, waiting for room while the queue is full. It
	// returns false when the queue is closed or ctx is done first.
	Enqueue(ctx context.Context, t Task) bool

	// Dequeue returns a channel delivering tasks in FIFO order. The channel
	// closes once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Task

	// Len returns the current number of queued tasks.
	Len(ctx context.Context) int

	// Close stops accepting tasks.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	tasks     chan Task
	capacity  int
	mu        sync.RWMutex
	closed    bool
	closing   chan struct{}
	closeOnce sync.Once
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		closing:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.tasks = make(chan Task, q.capacity)
	return q
}

// Enqueue adds a task to the queue. A full queue makes the caller wait
// until the loop takes a task, the queue closes or ctx ends.
func (q *InMemoryQueue) Enqueue(ctx context.Context, t Task) bool { //nolint:gocritic // Task is passed by value into the channel
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordUITaskError("queue_closed")
		return false
	}

	t.Enqueued = time.Now()
	if ctx.Err() != nil {
		metrics.RecordUITaskError("context_cancelled")
		return false
	}

	select {
	case q.tasks <- t:
		metrics.UpdateUIQueueSize(len(q.tasks))
		return true
	default:
		metrics.RecordUITaskError("queue_full_wait")
	}

	select {
	case q.tasks <- t:
		metrics.UpdateUIQueueSize(len(q.tasks))
		return true
	case <-q.closing:
		metrics.RecordUITaskError("queue_closed")
		return false
	case <-ctx.Done():
		metrics.RecordUITaskError("context_cancelled")
		return false
	}
}

// Dequeue returns a channel that will receive tasks as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Task {
	out := make(chan Task)
	go func() {
		defer close(out)
		for t := range q.tasks {
			select {
			case out <- t:
				metrics.UpdateUIQueueSize(len(q.tasks))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued tasks.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.tasks)
}

// Close gracefully shuts down the queue. Queued tasks are still delivered;
// callers waiting for room give up.
func (q *InMemoryQueue) Close() error {
	// Waiting enqueuers hold the read lock until released here.
	q.closeOnce.Do(func() { close(q.closing) })

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.tasks)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
