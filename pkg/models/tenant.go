package models

// Tenant carries the per-tenant autonomous-reply policy. Read-only for the
// triage engine; ownership of the rest of the tenant record lives elsewhere.
type Tenant struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	AutoReplyEnabled bool   `json:"auto_reply_enabled"`
	// AutoReplyThreshold is the minimum confidence required for an
	// autonomous send. nil means the tenant never opted in to a threshold
	// and the send gate always fails.
	AutoReplyThreshold *float64 `json:"auto_reply_threshold,omitempty"`
	// SafeCategories is the set of categories the tenant allows to be
	// answered without human review.
	SafeCategories []string `json:"safe_categories,omitempty"`
}

// SafeCategory reports whether cat is in the tenant's safe set.
func (t *Tenant) SafeCategory(cat TicketCategory) bool {
	for _, c := range t.SafeCategories {
		if c == string(cat) {
			return true
		}
	}
	return false
}

// Member is a team directory entry used for assignee suggestion.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}
