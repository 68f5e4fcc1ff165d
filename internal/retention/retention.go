package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"agentdesk/pkg/config"
	"agentdesk/pkg/logger"
	"agentdesk/pkg/models"
	"agentdesk/pkg/store"
)

// defaultCron runs the purge daily at 02:00.
const defaultCron = "0 2 * * *"

// Start starts the workflow-run purge scheduler if enabled. Returns a
// cancel func; a disabled or periodless config yields a no-op cancel.
func Start(ctx context.Context, cfg *config.Config) (context.CancelFunc, error) {
	if !cfg.Retention.Enabled {
		logger.Info("retention_disabled")
		return func() {}, nil
	}
	period, err := cfg.RetentionPeriod()
	if err != nil {
		return nil, err
	}
	if period <= 0 {
		logger.Info("retention_disabled", "reason", "no period configured")
		return func() {}, nil
	}

	cronExpr := cfg.Retention.Cron
	if cronExpr == "" {
		cronExpr = defaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("retention_invalid_cron", "cron", cfg.Retention.Cron)
		return nil, fmt.Errorf("invalid retention cron expression: %s", cfg.Retention.Cron)
	}

	logger.Info("retention_enabled", "cron", cronExpr, "period", period.String())
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, period)
	return cancel, nil
}

// runScheduler computes the next cron tick with gronx and sleeps until it,
// purging once per tick.
func runScheduler(ctx context.Context, cronExpr string, period time.Duration) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("retention_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if _, err := PurgeOnce(period); err != nil {
				logger.Error("retention_run_error", "error", err)
			}
		case <-ctx.Done():
			logger.Info("retention_scheduler_stopping")
			return
		}
	}
}

// PurgeOnce deletes finished workflow runs (and their steps) that started
// more than period ago. Running runs are kept regardless of age so an
// in-flight triage is never pulled out from under the engine. Returns the
// number of runs deleted.
func PurgeOnce(period time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-period).UnixNano()

	var expired []models.WorkflowRun
	err := store.ScanRunsBefore(cutoff, func(r models.WorkflowRun) bool {
		if r.Status == models.RunRunning {
			return true
		}
		expired = append(expired, r)
		return true
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, r := range expired {
		if err := store.DeleteRun(r); err != nil {
			logger.Error("retention_delete_failed", "run", r.ID, "error", err)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		logger.Info("retention_runs_purged", "count", deleted)
	}
	return deleted, nil
}
