// Package triage runs the four-stage decision pipeline for one ticket:
// classify, prioritize, suggest an assignee, draft a reply. Each stage is
// served by the remote reasoning tier when possible and by the local
// heuristic tier otherwise; a stage failure never aborts the run.
package triage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"agentdesk/pkg/delivery"
	"agentdesk/pkg/logger"
	"agentdesk/pkg/models"
	"agentdesk/pkg/reasoning"
	"agentdesk/pkg/redact"
	"agentdesk/pkg/telemetry"
)

// Store is the persistence the engine consumes. The pebble store
// implements it; tests use fakes.
type Store interface {
	GetTicket(tenantID, ticketID string) (*models.Ticket, error)
	SaveTicket(t models.Ticket) error
	GetTenant(tenantID string) (*models.Tenant, error)
	ListMembers(tenantID string) ([]models.Member, error)
	SaveRun(r models.WorkflowRun) error
	ListRuns(tenantID, ticketID string) ([]models.WorkflowRun, error)
	SaveStep(s models.WorkflowStep) error
	ListSteps(runID string) ([]models.WorkflowStep, error)
	SaveReply(r models.TicketReply) error
}

// Enqueuer is the producer side of the delivery queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, payload []byte) (string, error)
}

// Engine orchestrates triage runs.
type Engine struct {
	Store    Store
	Reasoner reasoning.Service
	Queue    Enqueuer

	// Now overrides the clock (tests).
	Now func() time.Time

	fallback reasoning.Fallback
}

// Result is what a successful run hands back to the caller.
type Result struct {
	Run    models.WorkflowRun  `json:"run"`
	Ticket models.Ticket       `json:"ticket"`
	Reply  *models.TicketReply `json:"ai_reply,omitempty"`
}

// RunWithSteps pairs a run with its audit steps for display.
type RunWithSteps struct {
	Run   models.WorkflowRun    `json:"run"`
	Steps []models.WorkflowStep `json:"steps"`
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// RunTriage executes the pipeline for one ticket. Concurrent invocations
// for the same ticket are not mutually excluded: last writer wins. The run
// record always reaches a terminal state; on failure the error is recorded
// on the run and returned.
func (e *Engine) RunTriage(ctx context.Context, tenantID, ticketID, initiatorID string) (*Result, error) {
	run := models.WorkflowRun{
		ID:          uuid.NewString(),
		TenantID:    tenantID,
		TicketID:    ticketID,
		Type:        models.WorkflowTicketTriage,
		Status:      models.RunRunning,
		InitiatorID: initiatorID,
		StartedTS:   e.now().UnixNano(),
	}
	if err := e.Store.SaveRun(run); err != nil {
		return nil, err
	}

	res, err := e.execute(ctx, &run)
	if err != nil {
		run.Status = models.RunFailed
		run.Error = err.Error()
		run.EndedTS = e.now().UnixNano()
		if serr := e.Store.SaveRun(run); serr != nil {
			logger.Error("run_fail_write_failed", "run", run.ID, "error", serr)
		}
		telemetry.TriageRuns.WithLabelValues(string(models.RunFailed)).Inc()
		logger.Error("triage_run_failed", "run", run.ID, "ticket", ticketID, "error", err)
		return nil, err
	}

	run.Status = models.RunSucceeded
	run.EndedTS = e.now().UnixNano()
	if err := e.Store.SaveRun(run); err != nil {
		// the pipeline already applied its effects; surface the write
		// failure but do not undo anything
		return nil, err
	}
	telemetry.TriageRuns.WithLabelValues(string(models.RunSucceeded)).Inc()
	res.Run = run
	return res, nil
}

// execute is steps 2-8 of the pipeline. Any error returned here fails the
// whole run.
func (e *Engine) execute(ctx context.Context, run *models.WorkflowRun) (*Result, error) {
	ticket, err := e.Store.GetTicket(run.TenantID, run.TicketID)
	if err != nil {
		return nil, err
	}
	tenant, err := e.Store.GetTenant(run.TenantID)
	if err != nil {
		return nil, err
	}
	team, err := e.Store.ListMembers(run.TenantID)
	if err != nil {
		return nil, err
	}

	tc := reasoning.TicketContent{Subject: ticket.Subject, Body: ticket.Body}

	// stage 1: classification
	class, tier := e.classify(ctx, tc)
	if err := e.recordStep(run.ID, models.StageClassification, tier, tc, class); err != nil {
		return nil, err
	}

	// stage 2: priority
	prio, tier2 := e.prioritize(ctx, tc, class.Category)
	if err := e.recordStep(run.ID, models.StagePriority, tier2, map[string]any{
		"subject": ticket.Subject, "body": ticket.Body, "category": class.Category,
	}, prio); err != nil {
		return nil, err
	}

	// stage 3: assignee suggestion
	assignee, tier3 := e.suggestAssignee(ctx, tc, class.Category, prio.Priority, team)
	if err := e.recordStep(run.ID, models.StageAssignee, tier3, map[string]any{
		"category": class.Category, "priority": prio.Priority, "team": memberIDs(team),
	}, assignee); err != nil {
		return nil, err
	}

	// stage 4: reply draft
	draft, tier4 := e.draftReply(ctx, tc, class.Category, prio.Priority, ticket.CustomerName)
	if err := e.recordStep(run.ID, models.StageReplyDraft, tier4, map[string]any{
		"category": class.Category, "priority": prio.Priority, "customer_name": ticket.CustomerName,
	}, draft); err != nil {
		return nil, err
	}

	confidence := Score(class, prio, draft)
	body := redact.Sanitize(draft.ReplyBody)

	// apply triage results to the ticket; a closed ticket keeps its status
	ticket.Category = class.Category
	ticket.Priority = prio.Priority
	if assignee.AssigneeID != "" {
		ticket.AssigneeID = assignee.AssigneeID
	}
	ticket.AITriaged = true
	ticket.Draft = &models.DraftReply{Body: body, Confidence: confidence}
	if ticket.Status != models.TicketClosed {
		ticket.Status = models.TicketTriaged
	}
	ticket.UpdatedTS = e.now().UnixNano()
	if err := e.Store.SaveTicket(*ticket); err != nil {
		return nil, err
	}

	reply := models.TicketReply{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		TenantID:  ticket.TenantID,
		Author:    models.AuthorAI,
		Body:      body,
		CreatedTS: e.now().UnixNano(),
	}
	if err := e.Store.SaveReply(reply); err != nil {
		return nil, err
	}

	if ShouldAutoSend(tenant, confidence, class.Category, ticket.CustomerEmail != "") {
		reply.DeliveryStatus = models.DeliveryQueued
		if err := e.Store.SaveReply(reply); err != nil {
			return nil, err
		}
		e.enqueueDelivery(ctx, ticket, &reply)
		if ticket.Status != models.TicketClosed {
			ticket.Status = models.TicketAutoResolved
		}
		telemetry.AutoSends.WithLabelValues("pass").Inc()
	} else {
		if ticket.Status != models.TicketClosed {
			ticket.Status = models.TicketAwaitingReply
		}
		telemetry.AutoSends.WithLabelValues("hold").Inc()
	}
	if err := e.Store.SaveTicket(*ticket); err != nil {
		return nil, err
	}

	logger.Info("triage_completed", "run", run.ID, "ticket", ticket.ID,
		"category", class.Category, "priority", prio.Priority,
		"confidence", confidence, "status", ticket.Status)
	return &Result{Ticket: *ticket, Reply: &reply}, nil
}

// enqueueDelivery hands the approved reply to the queue. Fire-and-forget:
// an enqueue failure is logged, never fails the run.
func (e *Engine) enqueueDelivery(ctx context.Context, ticket *models.Ticket, reply *models.TicketReply) {
	job := delivery.Job{
		ReplyID: reply.ID,
		To:      ticket.CustomerEmail,
		Subject: "Re: " + ticket.Subject,
		Body:    reply.Body,
	}
	payload, err := job.Encode()
	if err != nil {
		logger.Error("delivery_job_encode_failed", "reply", reply.ID, "error", err)
		return
	}
	if _, err := e.Queue.Enqueue(ctx, delivery.JobDeliverReply, payload); err != nil {
		logger.Error("delivery_enqueue_failed", "reply", reply.ID, "error", err)
		return
	}
	logger.Info("delivery_enqueued", "reply", reply.ID, "to", ticket.CustomerEmail)
}

// recordStep persists one write-once audit step. Input and output are
// JSON snapshots; Tier records which tier produced the output.
func (e *Engine) recordStep(runID string, stage models.Stage, tier models.StepTier, input, output any) error {
	in, err := json.Marshal(input)
	if err != nil {
		return err
	}
	out, err := json.Marshal(output)
	if err != nil {
		return err
	}
	return e.Store.SaveStep(models.WorkflowStep{
		ID:     uuid.NewString(),
		RunID:  runID,
		Stage:  stage,
		Tier:   tier,
		Input:  in,
		Output: out,
		TS:     e.now().UnixNano(),
	})
}

// stageFallback logs and counts a stage falling back to the heuristic
// tier. ErrUnavailable is the expected degraded path and only worth a
// debug line.
func stageFallback(stage models.Stage, err error) {
	telemetry.StageFallbacks.WithLabelValues(string(stage)).Inc()
	if errors.Is(err, reasoning.ErrUnavailable) {
		logger.Debug("stage_fallback", "stage", stage, "reason", "unavailable")
		return
	}
	logger.Warn("stage_fallback", "stage", stage, "error", err)
}

func (e *Engine) classify(ctx context.Context, tc reasoning.TicketContent) (reasoning.ClassifyResult, models.StepTier) {
	res, err := e.Reasoner.Classify(ctx, tc)
	if err != nil {
		stageFallback(models.StageClassification, err)
		return e.fallback.Classify(tc), models.TierFallback
	}
	return res, models.TierReasoning
}

func (e *Engine) prioritize(ctx context.Context, tc reasoning.TicketContent, cat models.TicketCategory) (reasoning.PrioritizeResult, models.StepTier) {
	res, err := e.Reasoner.Prioritize(ctx, tc, cat)
	if err != nil {
		stageFallback(models.StagePriority, err)
		return e.fallback.Prioritize(tc, cat), models.TierFallback
	}
	return res, models.TierReasoning
}

func (e *Engine) suggestAssignee(ctx context.Context, tc reasoning.TicketContent, cat models.TicketCategory, prio models.TicketPriority, team []models.Member) (reasoning.AssigneeResult, models.StepTier) {
	res, err := e.Reasoner.SuggestAssignee(ctx, tc, cat, prio, team)
	if err != nil {
		stageFallback(models.StageAssignee, err)
		return e.fallback.SuggestAssignee(tc, cat, prio, team), models.TierFallback
	}
	return res, models.TierReasoning
}

func (e *Engine) draftReply(ctx context.Context, tc reasoning.TicketContent, cat models.TicketCategory, prio models.TicketPriority, customerName string) (reasoning.DraftResult, models.StepTier) {
	res, err := e.Reasoner.DraftReply(ctx, tc, cat, prio, customerName)
	if err != nil {
		stageFallback(models.StageReplyDraft, err)
		return e.fallback.DraftReply(tc, cat, prio, customerName), models.TierFallback
	}
	return res, models.TierReasoning
}

func memberIDs(team []models.Member) []string {
	ids := make([]string, 0, len(team))
	for _, m := range team {
		ids = append(ids, m.ID)
	}
	return ids
}

// ListRuns returns a ticket's runs with their steps, ordered by start
// time, for audit display.
func (e *Engine) ListRuns(_ context.Context, tenantID, ticketID string) ([]RunWithSteps, error) {
	runs, err := e.Store.ListRuns(tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	out := make([]RunWithSteps, 0, len(runs))
	for _, r := range runs {
		steps, err := e.Store.ListSteps(r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RunWithSteps{Run: r, Steps: steps})
	}
	return out, nil
}
