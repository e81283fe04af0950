// Package intake feeds textual commands into the supervisor: a bounded FIFO
// queue plus sources that fill it from a named pipe or any line reader.
package intake

import (
	"context"
	"errors"
	"sync"
)

// DefaultCapacity is the queue size used by the daemon.
const DefaultCapacity = 32

// ErrQueueClosed is returned by Send after Close.
var ErrQueueClosed = errors.New("intake: queue closed")

// Sink accepts commands. Send blocks while the sink is full.
type Sink interface {
	Send(ctx context.Context, cmd string) error
}

// Queue is a bounded, ordered command queue with any number of producers
// and one consumer. Close may be called while producers are blocked.
type Queue struct {
	ch      chan string
	closing chan struct{}
	once    sync.Once

	mu     sync.RWMutex
	closed bool
}

// NewQueue creates a queue holding up to capacity pending commands.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		ch:      make(chan string, capacity),
		closing: make(chan struct{}),
	}
}

// Send enqueues cmd, blocking while the queue is full.
func (q *Queue) Send(ctx context.Context, cmd string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ch <- cmd:
		return nil
	case <-q.closing:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C is the consumer side. It is closed after Close once buffered commands
// have been drained.
func (q *Queue) C() <-chan string {
	return q.ch
}

// Close signals end of stream. Blocked producers return ErrQueueClosed.
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.closing)
		q.mu.Lock()
		q.closed = true
		close(q.ch)
		q.mu.Unlock()
	})
}

// Len returns the number of buffered commands.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
