package triage

import (
	"agentdesk/pkg/models"
	"agentdesk/pkg/reasoning"
)

// Score derives the run confidence. When the reasoning tier supplied its
// own value (draft stage first, then classification) that wins; otherwise
// a fixed table stands in as an explicit heuristic proxy, not a calibrated
// probability.
func Score(class reasoning.ClassifyResult, prio reasoning.PrioritizeResult, draft reasoning.DraftResult) float64 {
	if draft.Confidence != nil {
		return clamp01(*draft.Confidence)
	}
	if class.Confidence != nil {
		return clamp01(*class.Confidence)
	}
	switch {
	case class.Category == models.CategoryBilling:
		return 0.6
	case prio.Priority == models.PriorityHigh:
		return 0.9
	case prio.Priority == models.PriorityMedium:
		return 0.8
	}
	return 0.75
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ShouldAutoSend is the autonomous-send gate: every condition must hold
// for an AI-drafted reply to go out without human review.
func ShouldAutoSend(tenant *models.Tenant, confidence float64, category models.TicketCategory, hasEmail bool) bool {
	if tenant == nil || !tenant.AutoReplyEnabled {
		return false
	}
	if tenant.AutoReplyThreshold == nil {
		return false
	}
	if confidence < *tenant.AutoReplyThreshold {
		return false
	}
	if !tenant.SafeCategory(category) {
		return false
	}
	return hasEmail
}
