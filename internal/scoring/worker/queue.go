// Package worker moves scoring off the submission path: a job queue of
// application ids and a pool that drains it through the orchestrator.
package worker

import (
	"context"
	"errors"
	"sync"

	"fintrust/pkg/platform/sentinel"
)

// ErrQueueClosed is returned by Dequeue once a closed queue is drained.
var ErrQueueClosed = errors.New("scoring queue closed")

// Queue carries application ids awaiting scoring. Enqueue must not block the
// caller; Dequeue blocks until a job arrives or ctx ends.
type Queue interface {
	Enqueue(ctx context.Context, applicationID string) error
	Dequeue(ctx context.Context) (string, error)
}

// MemoryQueue is a bounded in-process queue.
type MemoryQueue struct {
	jobs      chan string
	closeOnce sync.Once
	closed    chan struct{}
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1
	}
	return &MemoryQueue{
		jobs:   make(chan string, size),
		closed: make(chan struct{}),
	}
}

// Enqueue returns sentinel.ErrUnavailable when the buffer is full or closed.
func (q *MemoryQueue) Enqueue(_ context.Context, applicationID string) error {
	select {
	case <-q.closed:
		return sentinel.ErrUnavailable
	default:
	}
	select {
	case q.jobs <- applicationID:
		return nil
	default:
		return sentinel.ErrUnavailable
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (string, error) {
	select {
	case id := <-q.jobs:
		return id, nil
	default:
	}
	select {
	case id := <-q.jobs:
		return id, nil
	case <-q.closed:
		select {
		case id := <-q.jobs:
			return id, nil
		default:
			return "", ErrQueueClosed
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Len reports buffered jobs.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}

// Close stops new jobs; buffered ones can still be dequeued.
func (q *MemoryQueue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
