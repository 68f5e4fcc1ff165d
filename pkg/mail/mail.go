// Package mail defines the outbound email contract the delivery worker
// sends through.
package mail

import "context"

// Receipt is the provider's answer to one send. A "queued" status means
// the provider accepted the message for asynchronous delivery; the
// delivery worker records it as sent, since the handoff out of this
// process succeeded.
type Receipt struct {
	Status            string // "sent", "queued" or "failed"
	Provider          string
	ProviderMessageID string
	Error             string
}

// Transport sends one message. Implementations decide their own timeouts;
// the queue layer imposes none of its own.
type Transport interface {
	Send(ctx context.Context, to, subject, text string) (Receipt, error)
}
