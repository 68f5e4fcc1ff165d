package retention

import (
	"context"
	"testing"
	"time"

	"agentdesk/pkg/config"
	"agentdesk/pkg/logger"
	"agentdesk/pkg/models"
	"agentdesk/pkg/store"
)

func init() { logger.Init() }

func openTestStore(t *testing.T) {
	t.Helper()
	if err := store.Open(t.TempDir(), 0); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
}

func TestPurgeOnceDeletesOnlyExpiredFinishedRuns(t *testing.T) {
	openTestStore(t)
	now := time.Now().UTC().UnixNano()
	week := int64(7 * 24 * time.Hour)

	runs := []models.WorkflowRun{
		{ID: "old-done", TenantID: "t1", TicketID: "tk1", Status: models.RunSucceeded, StartedTS: now - 10*week},
		{ID: "old-failed", TenantID: "t1", TicketID: "tk2", Status: models.RunFailed, StartedTS: now - 10*week},
		{ID: "old-running", TenantID: "t1", TicketID: "tk3", Status: models.RunRunning, StartedTS: now - 10*week},
		{ID: "fresh", TenantID: "t1", TicketID: "tk4", Status: models.RunSucceeded, StartedTS: now - week/7},
	}
	for _, r := range runs {
		if err := store.SaveRun(r); err != nil {
			t.Fatalf("save run failed: %v", err)
		}
	}
	if err := store.SaveStep(models.WorkflowStep{RunID: "old-done", Stage: models.StageClassification, TS: now - 10*week}); err != nil {
		t.Fatalf("save step failed: %v", err)
	}

	deleted, err := PurgeOnce(30 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("deleted = %d, want 2", deleted)
	}

	for _, tc := range []struct {
		ticket string
		want   int
	}{
		{"tk1", 0}, {"tk2", 0}, {"tk3", 1}, {"tk4", 1},
	} {
		got, err := store.ListRuns("t1", tc.ticket)
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if len(got) != tc.want {
			t.Fatalf("ticket %s: %d runs, want %d", tc.ticket, len(got), tc.want)
		}
	}

	steps, err := store.ListSteps("old-done")
	if err != nil {
		t.Fatalf("list steps failed: %v", err)
	}
	if len(steps) != 0 {
		t.Fatalf("purged run left %d steps behind", len(steps))
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	cfg := &config.Config{}
	cancel, err := Start(context.Background(), cfg)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	cancel()
}

func TestStartRejectsBadCron(t *testing.T) {
	cfg := &config.Config{}
	cfg.Retention.Enabled = true
	cfg.Retention.Period = "30d"
	cfg.Retention.Cron = "every tuesday"
	if _, err := Start(context.Background(), cfg); err == nil {
		t.Fatalf("invalid cron accepted")
	}
}
