package models

// TicketStatus is the ticket lifecycle state. Triage only ever moves a
// ticket between open, triaged, awaiting_reply and auto_resolved; closed
// tickets are never reopened or re-statused as a side effect of triage.
type TicketStatus string

const (
	TicketOpen          TicketStatus = "open"
	TicketTriaged       TicketStatus = "triaged"
	TicketAwaitingReply TicketStatus = "awaiting_reply"
	TicketAutoResolved  TicketStatus = "auto_resolved"
	TicketClosed        TicketStatus = "closed"
)

type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

type TicketCategory string

const (
	CategoryBilling        TicketCategory = "billing"
	CategoryBug            TicketCategory = "bug"
	CategoryFeatureRequest TicketCategory = "feature_request"
	CategoryGeneral        TicketCategory = "general"
)

// DraftReply is the snapshot of the most recent AI-drafted reply kept on
// the ticket itself for display; the authoritative copy is the TicketReply.
type DraftReply struct {
	Body       string  `json:"body"`
	Confidence float64 `json:"confidence"`
}

// Ticket is a tenant-scoped support request. Created on intake; mutated by
// the triage engine and by human reply actions; never deleted here.
type Ticket struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id"`
	Subject       string         `json:"subject"`
	Body          string         `json:"body"`
	Channel       string         `json:"channel,omitempty"`
	Status        TicketStatus   `json:"status"`
	Priority      TicketPriority `json:"priority,omitempty"`
	Category      TicketCategory `json:"category,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	AssigneeID    string         `json:"assignee_id,omitempty"`
	AITriaged     bool           `json:"ai_triaged,omitempty"`
	Draft         *DraftReply    `json:"draft,omitempty"`
	// Created/Updated timestamps (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
	UpdatedTS int64 `json:"updated_ts,omitempty"`
}

// ValidCategory reports whether c is one of the fixed triage categories.
func ValidCategory(c TicketCategory) bool {
	switch c {
	case CategoryBilling, CategoryBug, CategoryFeatureRequest, CategoryGeneral:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the fixed triage priorities.
func ValidPriority(p TicketPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
