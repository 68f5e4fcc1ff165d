package delivery

import (
	"context"
	"errors"
)

// ErrQueueFull is returned by Enqueue when a bounded backend is at
// capacity.
var ErrQueueFull = errors.New("delivery queue full")

// ErrQueueClosed is returned when the queue has shut down.
var ErrQueueClosed = errors.New("delivery queue closed")

// Item is one dequeued job. The consumer MUST call Ack exactly once after
// processing; un-acked items are redelivered by durable backends.
type Item struct {
	ID      string
	Name    string
	Payload []byte

	ack func() error
}

// Ack marks the item processed and releases backend resources.
func (it *Item) Ack() error {
	if it.ack == nil {
		return nil
	}
	f := it.ack
	it.ack = nil
	return f()
}

// Queue is the minimal durable-queue contract. Any broker- or
// storage-backed queue satisfies it, including the in-memory stand-in used
// when nothing is configured outside production.
type Queue interface {
	// Enqueue accepts a named job payload and returns a handle id.
	// Fire-and-forget from the producer's point of view.
	Enqueue(ctx context.Context, name string, payload []byte) (string, error)
	// Dequeue blocks until an item is available or ctx is done.
	Dequeue(ctx context.Context) (*Item, error)
	Close() error
}
