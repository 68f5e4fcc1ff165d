// Package reasoning wraps the remote reasoning service behind the four
// triage operations and supplies the local deterministic fallback tier.
package reasoning

import (
	"context"

	"agentdesk/pkg/models"
)

// TicketContent is the ticket text every stage consumes.
type TicketContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ClassifyResult is the classification stage output. Confidence is only
// set when the reasoning tier supplied one.
type ClassifyResult struct {
	Category   models.TicketCategory `json:"category"`
	Reason     string                `json:"reason,omitempty"`
	Confidence *float64              `json:"confidence,omitempty"`
}

// PrioritizeResult is the priority stage output.
type PrioritizeResult struct {
	Priority   models.TicketPriority `json:"priority"`
	Reason     string                `json:"reason,omitempty"`
	Confidence *float64              `json:"confidence,omitempty"`
}

// AssigneeResult is the assignee-suggestion stage output. An empty
// AssigneeID means no suggestion.
type AssigneeResult struct {
	AssigneeID string `json:"assignee_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// DraftResult is the reply-draft stage output.
type DraftResult struct {
	ReplyBody  string   `json:"reply_body"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Service is the reasoning contract the orchestrator consumes. Every
// operation may fail with ErrUnavailable (no credential, or cooldown
// armed) or a *ReasoningError (transport, parse, rate limit).
type Service interface {
	Classify(ctx context.Context, tc TicketContent) (ClassifyResult, error)
	Prioritize(ctx context.Context, tc TicketContent, category models.TicketCategory) (PrioritizeResult, error)
	SuggestAssignee(ctx context.Context, tc TicketContent, category models.TicketCategory, priority models.TicketPriority, team []models.Member) (AssigneeResult, error)
	DraftReply(ctx context.Context, tc TicketContent, category models.TicketCategory, priority models.TicketPriority, customerName string) (DraftResult, error)
}
