package delivery

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"

	"agentdesk/pkg/logger"
	"agentdesk/pkg/mail"
	"agentdesk/pkg/models"
	"agentdesk/pkg/store"
	"agentdesk/pkg/telemetry"
)

// DefaultConcurrency is the worker pool size when none is configured.
const DefaultConcurrency = 5

// ReplyStore is the slice of persistence the worker needs: load the reply
// a job references and advance its delivery status. A missing reply is
// signalled with store.ErrReplyNotFound.
type ReplyStore interface {
	GetReply(replyID string) (*models.TicketReply, error)
	MarkReplyDelivery(replyID string, status models.DeliveryStatus, provider, providerMsgID, deliveryErr string) error
}

// Worker consumes delivery jobs and sends them through the mail transport.
// Jobs are mutually independent (each touches exactly one reply), so the
// pool needs no cross-job coordination. A failed send is terminal for that
// reply: the outcome is recorded on the reply and the job is never
// re-enqueued.
type Worker struct {
	Queue       Queue
	Replies     ReplyStore
	Transport   mail.Transport
	Concurrency int
	// Limiter throttles outbound sends across the pool; nil means no
	// throttle.
	Limiter *rate.Limiter
}

// Run blocks, consuming jobs until ctx is cancelled or the queue closes.
// There is no cancellation of an in-flight send: once dequeued a job runs
// to completion.
func (w *Worker) Run(ctx context.Context) {
	n := w.Concurrency
	if n <= 0 {
		n = DefaultConcurrency
	}
	logger.Info("delivery_worker_started", "concurrency", n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				it, err := w.Queue.Dequeue(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, ErrQueueClosed) {
						return
					}
					logger.Error("delivery_dequeue_failed", "error", err)
					return
				}
				w.process(ctx, it)
			}
		}()
	}
	wg.Wait()
	logger.Info("delivery_worker_stopped")
}

// process handles one dequeued item end to end and acks it. Every path
// acks: redelivery is for crashes, not for handled failures.
func (w *Worker) process(ctx context.Context, it *Item) {
	// once dequeued, a job runs to completion. The deferred ack fires on
	// every return, so shutdown cancellation must not short-circuit the
	// limiter wait or the send: that would delete the job record with the
	// reply still queued and zero delivery attempts.
	ctx = context.WithoutCancel(ctx)

	defer func() {
		if err := it.Ack(); err != nil {
			logger.Error("delivery_ack_failed", "job", it.ID, "error", err)
		}
	}()

	if it.Name != JobDeliverReply {
		logger.Warn("delivery_unknown_job", "job", it.ID, "name", it.Name)
		return
	}
	job, err := DecodeJob(it.Payload)
	if err != nil {
		logger.Error("delivery_job_decode_failed", "job", it.ID, "error", err)
		return
	}

	reply, err := w.Replies.GetReply(job.ReplyID)
	if err != nil {
		if errors.Is(err, store.ErrReplyNotFound) {
			// the referenced reply no longer exists; silent no-op
			telemetry.Deliveries.WithLabelValues("skipped").Inc()
			return
		}
		logger.Error("delivery_reply_load_failed", "reply", job.ReplyID, "error", err)
		return
	}
	if reply.DeliveryStatus == models.DeliverySent || reply.DeliveryStatus == models.DeliveryFailed {
		// redelivered job for an already-settled reply
		telemetry.Deliveries.WithLabelValues("skipped").Inc()
		return
	}

	if w.Limiter != nil {
		if err := w.Limiter.Wait(ctx); err != nil {
			// only reachable with a zero-burst limiter; deliver anyway
			// rather than settle the job without a send
			logger.Error("delivery_rate_wait_failed", "job", it.ID, "error", err)
		}
	}

	receipt, sendErr := w.Transport.Send(ctx, job.To, job.Subject, job.Body)
	if sendErr != nil || receipt.Status == "failed" {
		msg := receipt.Error
		if msg == "" && sendErr != nil {
			msg = sendErr.Error()
		}
		if err := w.Replies.MarkReplyDelivery(job.ReplyID, models.DeliveryFailed, receipt.Provider, "", msg); err != nil {
			logger.Error("delivery_status_write_failed", "reply", job.ReplyID, "error", err)
		}
		telemetry.Deliveries.WithLabelValues("failed").Inc()
		logger.Warn("delivery_failed", "reply", job.ReplyID, "provider", receipt.Provider, "error", msg)
		return
	}

	// a provider-side "queued" receipt counts as sent: the message left
	// this process and the provider owns it from here
	if err := w.Replies.MarkReplyDelivery(job.ReplyID, models.DeliverySent, receipt.Provider, receipt.ProviderMessageID, ""); err != nil {
		logger.Error("delivery_status_write_failed", "reply", job.ReplyID, "error", err)
		return
	}
	telemetry.Deliveries.WithLabelValues("sent").Inc()
	logger.Info("delivery_sent", "reply", job.ReplyID, "provider", receipt.Provider, "provider_status", receipt.Status, "message_id", receipt.ProviderMessageID)
}
