package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"agentdesk/pkg/mail"
	"agentdesk/pkg/models"
	"agentdesk/pkg/store"
)

type fakeReplies struct {
	mu      sync.Mutex
	replies map[string]*models.TicketReply
	marks   []string
}

func newFakeReplies(rs ...*models.TicketReply) *fakeReplies {
	f := &fakeReplies{replies: map[string]*models.TicketReply{}}
	for _, r := range rs {
		f.replies[r.ID] = r
	}
	return f
}

func (f *fakeReplies) GetReply(id string) (*models.TicketReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.replies[id]
	if !ok {
		return nil, store.ErrReplyNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReplies) MarkReplyDelivery(id string, status models.DeliveryStatus, provider, msgID, deliveryErr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.replies[id]
	if !ok {
		return store.ErrReplyNotFound
	}
	if !models.DeliveryAdvances(r.DeliveryStatus, status) {
		return errors.New("delivery status moved backwards")
	}
	r.DeliveryStatus = status
	r.DeliveryError = deliveryErr
	f.marks = append(f.marks, id+":"+string(status))
	return nil
}

func (f *fakeReplies) status(id string) models.DeliveryStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.replies[id]; ok {
		return r.DeliveryStatus
	}
	return ""
}

func (f *fakeReplies) markCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.marks)
}

type fakeTransport struct {
	mu      sync.Mutex
	sent    []string
	receipt mail.Receipt
	err     error
}

func (t *fakeTransport) Send(_ context.Context, to, subject, body string) (mail.Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, to)
	return t.receipt, t.err
}

func (t *fakeTransport) sendCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

// runWorker drains the queue in the background and returns a stop func.
func runWorker(t *testing.T, w *Worker) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("worker did not stop")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached")
}

func enqueueJob(t *testing.T, q Queue, job Job) {
	t.Helper()
	payload, err := job.Encode()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, err := q.Enqueue(context.Background(), JobDeliverReply, payload); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
}

func TestWorkerMarksSent(t *testing.T) {
	replies := newFakeReplies(&models.TicketReply{ID: "r1", DeliveryStatus: models.DeliveryQueued})
	tr := &fakeTransport{receipt: mail.Receipt{Status: "sent", Provider: "smtp", ProviderMessageID: "mid-1"}}
	q := NewMemoryQueue(8)
	defer q.Close()

	w := &Worker{Queue: q, Replies: replies, Transport: tr, Concurrency: 2}
	stop := runWorker(t, w)
	defer stop()

	enqueueJob(t, q, Job{ReplyID: "r1", To: "c@example.com", Subject: "Re: hi", Body: "hello"})
	waitFor(t, func() bool { return replies.status("r1") == models.DeliverySent })
	if tr.sendCount() != 1 {
		t.Fatalf("send count = %d, want 1", tr.sendCount())
	}
}

func TestWorkerMarksFailedAndNeverRetries(t *testing.T) {
	replies := newFakeReplies(&models.TicketReply{ID: "r1", DeliveryStatus: models.DeliveryQueued})
	tr := &fakeTransport{err: errors.New("smtp: connection refused")}
	q := NewMemoryQueue(8)
	defer q.Close()

	w := &Worker{Queue: q, Replies: replies, Transport: tr, Concurrency: 1}
	stop := runWorker(t, w)

	enqueueJob(t, q, Job{ReplyID: "r1", To: "c@example.com", Subject: "Re: hi", Body: "hello"})
	waitFor(t, func() bool { return replies.status("r1") == models.DeliveryFailed })
	time.Sleep(50 * time.Millisecond)
	stop()

	if tr.sendCount() != 1 {
		t.Fatalf("failed job was retried: %d sends", tr.sendCount())
	}
	if q.Len() != 0 {
		t.Fatalf("failed job re-enqueued")
	}
}

func TestWorkerMissingReplyIsSilentNoop(t *testing.T) {
	replies := newFakeReplies()
	tr := &fakeTransport{receipt: mail.Receipt{Status: "sent"}}
	q := NewMemoryQueue(8)
	defer q.Close()

	w := &Worker{Queue: q, Replies: replies, Transport: tr, Concurrency: 1}
	stop := runWorker(t, w)

	enqueueJob(t, q, Job{ReplyID: "ghost", To: "c@example.com", Subject: "s", Body: "b"})
	waitFor(t, func() bool { return q.Len() == 0 })
	time.Sleep(50 * time.Millisecond)
	stop()

	if tr.sendCount() != 0 {
		t.Fatalf("transport invoked for a missing reply")
	}
	if replies.markCount() != 0 {
		t.Fatalf("status written for a missing reply")
	}
}

func TestWorkerSkipsSettledReply(t *testing.T) {
	replies := newFakeReplies(&models.TicketReply{ID: "r1", DeliveryStatus: models.DeliverySent})
	tr := &fakeTransport{receipt: mail.Receipt{Status: "sent"}}
	q := NewMemoryQueue(8)
	defer q.Close()

	w := &Worker{Queue: q, Replies: replies, Transport: tr, Concurrency: 1}
	stop := runWorker(t, w)

	enqueueJob(t, q, Job{ReplyID: "r1", To: "c@example.com", Subject: "s", Body: "b"})
	waitFor(t, func() bool { return q.Len() == 0 })
	time.Sleep(50 * time.Millisecond)
	stop()

	if tr.sendCount() != 0 {
		t.Fatalf("redelivered job re-sent a settled reply")
	}
	if replies.status("r1") != models.DeliverySent {
		t.Fatalf("settled status changed")
	}
}

// A job dequeued just as shutdown cancels the worker context must still
// run to completion: the deferred ack settles the durable record, so
// bailing out before the send would leave the reply queued forever with
// zero delivery attempts.
func TestWorkerFinishesJobDuringShutdown(t *testing.T) {
	dir := t.TempDir()
	if err := store.Open(dir, 0); err != nil {
		t.Fatalf("store open failed: %v", err)
	}
	defer store.Close()

	q, err := NewPebbleQueue(4)
	if err != nil {
		t.Fatalf("queue open failed: %v", err)
	}
	defer q.Close()

	replies := newFakeReplies(&models.TicketReply{ID: "r1", DeliveryStatus: models.DeliveryQueued})
	tr := &fakeTransport{receipt: mail.Receipt{Status: "sent", Provider: "smtp", ProviderMessageID: "mid-1"}}
	lim := rate.NewLimiter(rate.Every(time.Millisecond), 1)
	lim.Allow() // burst spent: the next send has to wait
	w := &Worker{Queue: q, Replies: replies, Transport: tr, Limiter: lim}

	enqueueJob(t, q, Job{ReplyID: "r1", To: "c@example.com", Subject: "Re: hi", Body: "hello"})
	it, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.process(ctx, it)

	if tr.sendCount() != 1 {
		t.Fatalf("send count = %d, want 1", tr.sendCount())
	}
	if replies.status("r1") != models.DeliverySent {
		t.Fatalf("reply status = %q, want sent", replies.status("r1"))
	}
	pending := 0
	if err := store.ScanJobs(func(string, []byte) bool { pending++; return true }); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if pending != 0 {
		t.Fatalf("%d job records left after completion", pending)
	}
}

// A provider "queued" receipt is a successful handoff and recorded as sent.
func TestWorkerTreatsProviderQueuedAsSent(t *testing.T) {
	replies := newFakeReplies(&models.TicketReply{ID: "r1", DeliveryStatus: models.DeliveryQueued})
	tr := &fakeTransport{receipt: mail.Receipt{Status: "queued", Provider: "ses", ProviderMessageID: "mid-9"}}
	q := NewMemoryQueue(8)
	defer q.Close()

	w := &Worker{Queue: q, Replies: replies, Transport: tr, Concurrency: 1}
	stop := runWorker(t, w)
	defer stop()

	enqueueJob(t, q, Job{ReplyID: "r1", To: "c@example.com", Subject: "Re: hi", Body: "hello"})
	waitFor(t, func() bool { return replies.status("r1") == models.DeliverySent })
}

func TestWorkerIgnoresUnknownJobNames(t *testing.T) {
	replies := newFakeReplies()
	tr := &fakeTransport{}
	q := NewMemoryQueue(8)
	defer q.Close()

	w := &Worker{Queue: q, Replies: replies, Transport: tr, Concurrency: 1}
	stop := runWorker(t, w)

	if _, err := q.Enqueue(context.Background(), "reindex_search", []byte("{}")); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	waitFor(t, func() bool { return q.Len() == 0 })
	time.Sleep(50 * time.Millisecond)
	stop()

	if tr.sendCount() != 0 {
		t.Fatalf("unknown job reached the transport")
	}
}
