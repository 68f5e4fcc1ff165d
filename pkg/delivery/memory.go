package delivery

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"

	"agentdesk/pkg/telemetry"
)

const fallbackQueueCapacity = 1024

// MemoryQueue is the bounded in-memory stand-in used in non-production
// environments with no configured backend. Not durable: pending jobs are
// lost on process exit.
type MemoryQueue struct {
	ch       chan *Item
	capacity int
	// mu keeps Enqueue's channel send and Close's close(ch) mutually
	// exclusive, so a racing enqueue cannot send on a closed channel
	mu      sync.RWMutex
	closed  bool
	dropped uint64
}

// NewMemoryQueue creates a bounded queue of the given capacity (>0).
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = fallbackQueueCapacity
	}
	return &MemoryQueue{ch: make(chan *Item, capacity), capacity: capacity}
}

func (q *MemoryQueue) Enqueue(_ context.Context, name string, payload []byte) (string, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return "", ErrQueueClosed
	}
	id := uuid.NewString()

	// copy the payload into a pooled buffer so the caller may reuse its
	// slice; the buffer is returned on Ack
	var bb *bytebufferpool.ByteBuffer
	var p []byte
	if len(payload) > 0 {
		bb = bytebufferpool.Get()
		bb.B = append(bb.B[:0], payload...)
		p = bb.B[:len(payload)]
	}

	it := &Item{ID: id, Name: name, Payload: p}
	it.ack = func() error {
		if bb != nil {
			bytebufferpool.Put(bb)
		}
		telemetry.QueueDepth.Dec()
		return nil
	}

	select {
	case q.ch <- it:
		telemetry.QueueEnqueued.Inc()
		telemetry.QueueDepth.Inc()
		return id, nil
	default:
		if bb != nil {
			bytebufferpool.Put(bb)
		}
		atomic.AddUint64(&q.dropped, 1)
		telemetry.QueueDropped.Inc()
		return "", ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Item, error) {
	select {
	case it, ok := <-q.ch:
		if !ok {
			return nil, ErrQueueClosed
		}
		return it, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes the queue channel and drains remaining items, releasing
// their pooled buffers.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
	for it := range q.ch {
		_ = it.Ack()
	}
	return nil
}

// Len returns the current number of pending items.
func (q *MemoryQueue) Len() int { return len(q.ch) }

// Dropped returns the number of jobs rejected due to a full queue.
func (q *MemoryQueue) Dropped() uint64 { return atomic.LoadUint64(&q.dropped) }
