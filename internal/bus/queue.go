package bus

import (
	"context"
	"sync"

	"tradebook/internal/schema"
	"tradebook/pkg/exception"

	"github.com/yanun0323/pkg/sys"
)

// Notification announces one accepted fill with its enriched trade.
type Notification struct {
	Seq      uint64               `json:"seq"`
	RecvTime int64                `json:"recvTime"` // epoch ms
	Trade    schema.EnrichedTrade `json:"trade"`
}

// Queue is a bounded, non-blocking notification queue.
type Queue struct {
	mu     sync.RWMutex
	ch     chan Notification
	closed bool
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Notification, capacity)}
}

// TryPublish enqueues a notification without blocking.
func (q *Queue) TryPublish(n Notification) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return exception.ErrQueueClosed
	}
	select {
	case q.ch <- n:
		return nil
	default:
		return exception.ErrQueueFull
	}
}

// Len returns the number of queued notifications.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops the queue from accepting new notifications. Queued ones are
// still delivered by Run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// Run consumes notifications until the context is done, the process shuts
// down or the queue is closed and drained.
func (q *Queue) Run(ctx context.Context, handler func(Notification)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sys.Shutdown():
			return
		case n, ok := <-q.ch:
			if !ok {
				return
			}
			handler(n)
		}
	}
}
