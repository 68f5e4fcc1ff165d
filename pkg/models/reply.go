package models

// DeliveryStatus is the reply delivery state. It is monotonic:
// "" -> queued -> sent|failed, never regressing. The delivery worker is the
// only writer of the terminal states and writes them exactly once.
type DeliveryStatus string

const (
	DeliveryNone   DeliveryStatus = ""
	DeliveryQueued DeliveryStatus = "queued"
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// deliveryRank orders statuses for monotonicity checks.
var deliveryRank = map[DeliveryStatus]int{
	DeliveryNone:   0,
	DeliveryQueued: 1,
	DeliverySent:   2,
	DeliveryFailed: 2,
}

// DeliveryAdvances reports whether moving from to next is a legal
// (forward) delivery-status transition.
func DeliveryAdvances(from, next DeliveryStatus) bool {
	return deliveryRank[next] > deliveryRank[from]
}

type ReplyAuthor string

const (
	AuthorHuman ReplyAuthor = "human"
	AuthorAI    ReplyAuthor = "ai"
)

// TicketReply is a reply authored against a ticket. AI-drafted replies are
// created by the triage engine; the delivery fields are mutated exactly
// once by the delivery worker.
type TicketReply struct {
	ID       string      `json:"id"`
	TicketID string      `json:"ticket_id"`
	TenantID string      `json:"tenant_id"`
	Author   ReplyAuthor `json:"author"`
	Body     string      `json:"body"`

	DeliveryStatus    DeliveryStatus `json:"delivery_status,omitempty"`
	Provider          string         `json:"provider,omitempty"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	DeliveredTS       int64          `json:"delivered_ts,omitempty"`
	DeliveryError     string         `json:"delivery_error,omitempty"`

	CreatedTS int64 `json:"created_ts,omitempty"`
}
