package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"

	"agentdesk/pkg/logger"
	"agentdesk/pkg/store"
	"agentdesk/pkg/telemetry"
)

// envelope is the on-disk job record: the payload plus the job name the
// dispatcher needs.
type envelope struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// PebbleQueue is the durable storage-backed queue. Every job is written to
// the store before it is visible to a consumer and deleted only on Ack, so
// jobs survive process restarts; anything pending at startup is recovered
// and redelivered.
type PebbleQueue struct {
	ch     chan *Item
	closed int32
}

// NewPebbleQueue opens the durable queue, recovering any jobs left pending
// by a previous process.
func NewPebbleQueue(capacity int) (*PebbleQueue, error) {
	if !store.Ready() {
		return nil, fmt.Errorf("delivery: store not opened")
	}
	if capacity <= 0 {
		capacity = fallbackQueueCapacity
	}
	q := &PebbleQueue{ch: make(chan *Item, capacity)}

	recovered := 0
	err := store.ScanJobs(func(key string, payload []byte) bool {
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			logger.Warn("delivery_job_corrupt", "key", key, "error", err)
			return true
		}
		if q.offer(key, env) {
			recovered++
			return true
		}
		// channel full; the rest stays durable and surfaces next start
		return false
	})
	if err != nil {
		return nil, err
	}
	if recovered > 0 {
		logger.Info("delivery_jobs_recovered", "count", recovered)
		telemetry.QueueDepth.Add(float64(recovered))
	}
	return q, nil
}

// offer builds an Item whose Ack deletes the durable record.
func (q *PebbleQueue) offer(key string, env envelope) bool {
	it := &Item{ID: env.ID, Name: env.Name, Payload: env.Payload}
	it.ack = func() error {
		telemetry.QueueDepth.Dec()
		return store.DeleteJob(key)
	}
	select {
	case q.ch <- it:
		return true
	default:
		return false
	}
}

func (q *PebbleQueue) Enqueue(_ context.Context, name string, payload []byte) (string, error) {
	if atomic.LoadInt32(&q.closed) == 1 {
		return "", ErrQueueClosed
	}
	env := envelope{ID: uuid.NewString(), Name: name, Payload: append([]byte(nil), payload...)}
	b, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	key, err := store.SaveJob(env.ID, b)
	if err != nil {
		telemetry.QueueDropped.Inc()
		return "", err
	}
	telemetry.QueueEnqueued.Inc()
	if q.offer(key, env) {
		telemetry.QueueDepth.Inc()
	} else {
		// durable but not in memory; it will be recovered on restart
		logger.Warn("delivery_queue_saturated", "job", env.ID)
	}
	return env.ID, nil
}

func (q *PebbleQueue) Dequeue(ctx context.Context) (*Item, error) {
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

// Close stops delivery of further items. Pending jobs stay durable.
func (q *PebbleQueue) Close() error {
	if atomic.CompareAndSwapInt32(&q.closed, 0, 1) {
		close(q.ch)
	}
	return nil
}
