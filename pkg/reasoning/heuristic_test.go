package reasoning

import (
	"strings"
	"testing"

	"agentdesk/pkg/models"
)

func TestFallbackClassify(t *testing.T) {
	var f Fallback
	cases := []struct {
		subject, body string
		want          models.TicketCategory
	}{
		{"Billing question", "I was charged twice on my invoice", models.CategoryBilling},
		{"App crash", "I hit an error on login", models.CategoryBug},
		{"Feature idea", "a suggestion for the dashboard", models.CategoryFeatureRequest},
		{"How do I export data?", "just wondering", models.CategoryGeneral},
		{"INVOICE problem", "", models.CategoryBilling}, // case-insensitive
	}
	for _, c := range cases {
		got := f.Classify(TicketContent{Subject: c.subject, Body: c.body})
		if got.Category != c.want {
			t.Fatalf("classify(%q): got %q want %q", c.subject, got.Category, c.want)
		}
		if !models.ValidCategory(got.Category) {
			t.Fatalf("classify produced invalid category %q", got.Category)
		}
	}
}

func TestFallbackPrioritize(t *testing.T) {
	var f Fallback
	cases := []struct {
		text string
		want models.TicketPriority
	}{
		{"this is URGENT, production is down", models.PriorityHigh},
		{"minor nit, no rush", models.PriorityLow},
		{"question about exports", models.PriorityMedium},
	}
	for _, c := range cases {
		got := f.Prioritize(TicketContent{Body: c.text}, models.CategoryGeneral)
		if got.Priority != c.want {
			t.Fatalf("prioritize(%q): got %q want %q", c.text, got.Priority, c.want)
		}
	}
}

func TestFallbackSuggestAssignee(t *testing.T) {
	var f Fallback
	team := []models.Member{{ID: "m1", Name: "Ada"}, {ID: "m2", Name: "Lin"}}
	got := f.SuggestAssignee(TicketContent{}, models.CategoryBug, models.PriorityHigh, team)
	if got.AssigneeID != "m1" {
		t.Fatalf("expected first member, got %q", got.AssigneeID)
	}
	empty := f.SuggestAssignee(TicketContent{}, models.CategoryBug, models.PriorityHigh, nil)
	if empty.AssigneeID != "" {
		t.Fatalf("expected no suggestion for empty team, got %q", empty.AssigneeID)
	}
}

func TestFallbackDraftReply(t *testing.T) {
	var f Fallback
	for _, cat := range []models.TicketCategory{models.CategoryBilling, models.CategoryBug, models.CategoryFeatureRequest, models.CategoryGeneral} {
		got := f.DraftReply(TicketContent{}, cat, models.PriorityMedium, "Sam")
		if strings.TrimSpace(got.ReplyBody) == "" {
			t.Fatalf("empty reply body for %q", cat)
		}
		if !strings.Contains(got.ReplyBody, "Hello Sam,") {
			t.Fatalf("greeting missing for %q: %q", cat, got.ReplyBody)
		}
		if !strings.Contains(got.ReplyBody, "Best regards") {
			t.Fatalf("sign-off missing for %q", cat)
		}
	}
}
