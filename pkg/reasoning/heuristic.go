package reasoning

import (
	"fmt"
	"strings"

	"agentdesk/pkg/models"
)

// Fallback is the local deterministic tier. Its operations are pure, total
// and synchronous: they never fail and never block, so the pipeline always
// has a result even with no credential configured or during cooldown.
type Fallback struct{}

var billingWords = []string{"invoice", "billing", "charge", "refund", "payment", "subscription"}
var bugWords = []string{"bug", "crash", "error", "broken", "fail", "exception"}
var featureWords = []string{"feature", "idea", "request", "suggestion", "improvement"}

var urgentWords = []string{"urgent", "asap", "immediately", "critical", "outage", "down", "emergency"}
var lowWords = []string{"whenever", "no rush", "minor", "someday", "low priority"}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// Classify buckets the ticket by keyword, defaulting to general.
func (Fallback) Classify(tc TicketContent) ClassifyResult {
	text := strings.ToLower(tc.Subject + " " + tc.Body)
	switch {
	case containsAny(text, billingWords):
		return ClassifyResult{Category: models.CategoryBilling, Reason: "matched billing keywords"}
	case containsAny(text, bugWords):
		return ClassifyResult{Category: models.CategoryBug, Reason: "matched bug keywords"}
	case containsAny(text, featureWords):
		return ClassifyResult{Category: models.CategoryFeatureRequest, Reason: "matched feature keywords"}
	}
	return ClassifyResult{Category: models.CategoryGeneral, Reason: "no keyword match"}
}

// Prioritize maps urgency keywords to high/low, defaulting to medium.
func (Fallback) Prioritize(tc TicketContent, _ models.TicketCategory) PrioritizeResult {
	text := strings.ToLower(tc.Subject + " " + tc.Body)
	switch {
	case containsAny(text, urgentWords):
		return PrioritizeResult{Priority: models.PriorityHigh, Reason: "matched urgency keywords"}
	case containsAny(text, lowWords):
		return PrioritizeResult{Priority: models.PriorityLow, Reason: "matched low-urgency keywords"}
	}
	return PrioritizeResult{Priority: models.PriorityMedium, Reason: "no urgency signal"}
}

// SuggestAssignee picks the first member of the supplied team list, or no
// one when the list is empty.
func (Fallback) SuggestAssignee(_ TicketContent, _ models.TicketCategory, _ models.TicketPriority, team []models.Member) AssigneeResult {
	if len(team) == 0 {
		return AssigneeResult{Reason: "no team members available"}
	}
	return AssigneeResult{AssigneeID: team[0].ID, Reason: "first available team member"}
}

const replySignoff = "\n\nBest regards,\nThe Support Team"

var replyTemplates = map[models.TicketCategory]string{
	models.CategoryBilling:        "Thanks for reaching out about your billing question. We have opened a ticket and a member of our billing team will review your account and follow up shortly.",
	models.CategoryBug:            "Thanks for the report. We have logged the issue and our engineers will investigate. We will follow up as soon as we know more.",
	models.CategoryFeatureRequest: "Thanks for the suggestion! We have recorded it for our product team to review alongside other requests.",
	models.CategoryGeneral:        "Thanks for getting in touch. We have received your request and will get back to you as soon as possible.",
}

// DraftReply returns the fixed template for the category with a greeting
// and constant sign-off.
func (Fallback) DraftReply(_ TicketContent, category models.TicketCategory, _ models.TicketPriority, customerName string) DraftResult {
	tpl, ok := replyTemplates[category]
	if !ok {
		tpl = replyTemplates[models.CategoryGeneral]
	}
	greeting := "Hello,"
	if customerName != "" {
		greeting = fmt.Sprintf("Hello %s,", customerName)
	}
	return DraftResult{ReplyBody: greeting + "\n\n" + tpl + replySignoff}
}
