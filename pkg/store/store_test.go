package store

import (
	"errors"
	"testing"

	"agentdesk/pkg/logger"
	"agentdesk/pkg/models"
)

func init() { logger.Init() }

func openTestStore(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir(), 0); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func TestTenantRoundTrip(t *testing.T) {
	openTestStore(t)

	if _, err := GetTenant("t1"); !errors.Is(err, ErrTenantNotFound) {
		t.Fatalf("expected ErrTenantNotFound, got %v", err)
	}

	thr := 0.8
	in := models.Tenant{
		ID:                 "t1",
		Name:               "Acme",
		AutoReplyEnabled:   true,
		AutoReplyThreshold: &thr,
		SafeCategories:     []string{string(models.CategoryGeneral)},
	}
	if err := SaveTenant(in); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := GetTenant("t1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "Acme" || !got.AutoReplyEnabled {
		t.Fatalf("tenant mismatch: %+v", got)
	}
	if got.AutoReplyThreshold == nil || *got.AutoReplyThreshold != 0.8 {
		t.Fatalf("threshold did not survive: %+v", got.AutoReplyThreshold)
	}
}

func TestMembersListInIDOrder(t *testing.T) {
	openTestStore(t)

	for _, m := range []models.Member{
		{ID: "m3", Name: "Cara"},
		{ID: "m1", Name: "Ada"},
		{ID: "m2", Name: "Ben"},
	} {
		if err := SaveMember("t1", m); err != nil {
			t.Fatalf("save member failed: %v", err)
		}
	}
	// another tenant's directory must not leak in
	if err := SaveMember("t2", models.Member{ID: "m1", Name: "Zed"}); err != nil {
		t.Fatalf("save member failed: %v", err)
	}

	got, err := ListMembers("t1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("member count = %d, want 3", len(got))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if got[i].ID != want {
			t.Fatalf("member[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestTicketRoundTrip(t *testing.T) {
	openTestStore(t)

	if _, err := GetTicket("t1", "tk1"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}

	in := models.Ticket{
		ID:            "tk1",
		TenantID:      "t1",
		Subject:       "cannot log in",
		Body:          "help",
		CustomerEmail: "c@example.com",
		Status:        models.TicketOpen,
	}
	if err := SaveTicket(in); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, err := GetTicket("t1", "tk1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Subject != in.Subject || got.Status != models.TicketOpen {
		t.Fatalf("ticket mismatch: %+v", got)
	}

	// saves replace in full
	got.Status = models.TicketTriaged
	got.Category = models.CategoryBug
	if err := SaveTicket(*got); err != nil {
		t.Fatalf("resave failed: %v", err)
	}
	again, err := GetTicket("t1", "tk1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if again.Status != models.TicketTriaged || again.Category != models.CategoryBug {
		t.Fatalf("update lost: %+v", again)
	}
}

func TestRunsListChronologically(t *testing.T) {
	openTestStore(t)

	for _, r := range []models.WorkflowRun{
		{ID: "r2", TenantID: "t1", TicketID: "tk1", Type: models.WorkflowTicketTriage, Status: models.RunSucceeded, StartedTS: 2000},
		{ID: "r1", TenantID: "t1", TicketID: "tk1", Type: models.WorkflowTicketTriage, Status: models.RunFailed, StartedTS: 1000},
	} {
		if err := SaveRun(r); err != nil {
			t.Fatalf("save run failed: %v", err)
		}
	}

	got, err := ListRuns("t1", "tk1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r2" {
		t.Fatalf("runs out of order: %+v", got)
	}
}

func TestRunResaveOverwritesInPlace(t *testing.T) {
	openTestStore(t)

	r := models.WorkflowRun{ID: "r1", TenantID: "t1", TicketID: "tk1", Status: models.RunRunning, StartedTS: 1000}
	if err := SaveRun(r); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	r.Status = models.RunSucceeded
	r.EndedTS = 5000
	if err := SaveRun(r); err != nil {
		t.Fatalf("resave failed: %v", err)
	}

	got, err := ListRuns("t1", "tk1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("status transition duplicated the run: %d records", len(got))
	}
	if got[0].Status != models.RunSucceeded || got[0].EndedTS != 5000 {
		t.Fatalf("transition lost: %+v", got[0])
	}
}

func TestStepsListInPersistOrder(t *testing.T) {
	openTestStore(t)

	ts := int64(1000)
	for _, stage := range models.Stages {
		s := models.WorkflowStep{RunID: "r1", Stage: stage, Tier: models.TierFallback, TS: ts}
		ts++
		if err := SaveStep(s); err != nil {
			t.Fatalf("save step failed: %v", err)
		}
	}
	// a second run's steps must not interleave
	if err := SaveStep(models.WorkflowStep{RunID: "r2", Stage: models.StageClassification, TS: 500}); err != nil {
		t.Fatalf("save step failed: %v", err)
	}

	got, err := ListSteps("r1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != len(models.Stages) {
		t.Fatalf("step count = %d, want %d", len(got), len(models.Stages))
	}
	for i, stage := range models.Stages {
		if got[i].Stage != stage {
			t.Fatalf("step[%d] = %s, want %s", i, got[i].Stage, stage)
		}
	}
}

func TestMarkReplyDeliveryIsMonotonic(t *testing.T) {
	openTestStore(t)

	if err := MarkReplyDelivery("ghost", models.DeliverySent, "smtp", "", ""); !errors.Is(err, ErrReplyNotFound) {
		t.Fatalf("expected ErrReplyNotFound, got %v", err)
	}

	r := models.TicketReply{ID: "r1", TicketID: "tk1", TenantID: "t1", Author: models.AuthorAI, Body: "hello", DeliveryStatus: models.DeliveryQueued}
	if err := SaveReply(r); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := MarkReplyDelivery("r1", models.DeliverySent, "smtp", "mid-1", ""); err != nil {
		t.Fatalf("queued->sent rejected: %v", err)
	}
	got, err := GetReply("r1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.DeliveryStatus != models.DeliverySent || got.ProviderMessageID != "mid-1" {
		t.Fatalf("sent write lost: %+v", got)
	}
	if got.DeliveredTS == 0 {
		t.Fatalf("DeliveredTS not stamped")
	}

	// terminal states never regress
	if err := MarkReplyDelivery("r1", models.DeliveryQueued, "", "", ""); err == nil {
		t.Fatalf("sent->queued accepted")
	}
	if err := MarkReplyDelivery("r1", models.DeliveryFailed, "smtp", "", "late failure"); err == nil {
		t.Fatalf("sent->failed accepted")
	}
	again, _ := GetReply("r1")
	if again.DeliveryStatus != models.DeliverySent {
		t.Fatalf("terminal state regressed to %q", again.DeliveryStatus)
	}
}

func TestScanRunsBeforeAndDeleteRun(t *testing.T) {
	openTestStore(t)

	old := models.WorkflowRun{ID: "r1", TenantID: "t1", TicketID: "tk1", StartedTS: 1000}
	fresh := models.WorkflowRun{ID: "r2", TenantID: "t1", TicketID: "tk1", StartedTS: 9000}
	for _, r := range []models.WorkflowRun{old, fresh} {
		if err := SaveRun(r); err != nil {
			t.Fatalf("save run failed: %v", err)
		}
	}
	if err := SaveStep(models.WorkflowStep{RunID: "r1", Stage: models.StageClassification, TS: 1001}); err != nil {
		t.Fatalf("save step failed: %v", err)
	}

	var seen []string
	err := ScanRunsBefore(5000, func(r models.WorkflowRun) bool {
		seen = append(seen, r.ID)
		return true
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(seen) != 1 || seen[0] != "r1" {
		t.Fatalf("cutoff not honored: %v", seen)
	}

	if err := DeleteRun(old); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	runs, err := ListRuns("t1", "tk1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "r2" {
		t.Fatalf("wrong runs survived: %+v", runs)
	}
	steps, err := ListSteps("r1")
	if err != nil {
		t.Fatalf("list steps failed: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("orphan steps left behind: %d", len(steps))
	}
}

func TestJobsSurviveUntilDeleted(t *testing.T) {
	openTestStore(t)

	key, err := SaveJob("j1", []byte(`{"id":"j1"}`))
	if err != nil {
		t.Fatalf("save job failed: %v", err)
	}
	var keys []string
	if err := ScanJobs(func(k string, _ []byte) bool {
		keys = append(keys, k)
		return true
	}); err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != key {
		t.Fatalf("job not visible: %v", keys)
	}

	if err := DeleteJob(key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	count := 0
	if err := ScanJobs(func(string, []byte) bool { count++; return true }); err != nil {
		t.Fatalf("rescan failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("deleted job still visible")
	}
}
