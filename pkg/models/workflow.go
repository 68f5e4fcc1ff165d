package models

import "encoding/json"

// WorkflowType identifies the pipeline that produced a run. Only one type
// exists today.
const WorkflowTicketTriage = "ticket_triage"

// RunStatus is the workflow run state machine: running is the initial
// state, succeeded and failed are terminal and set exactly once. A failed
// run is never auto-resumed; re-invocation starts a fresh run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Stage names the four canonical pipeline stages. A succeeded run has
// exactly one step per stage, in this order.
type Stage string

const (
	StageClassification Stage = "classification"
	StagePriority       Stage = "priority"
	StageAssignee       Stage = "assignee_suggestion"
	StageReplyDraft     Stage = "reply_draft"
)

// Stages lists the canonical stage order.
var Stages = []Stage{StageClassification, StagePriority, StageAssignee, StageReplyDraft}

// StepTier records which tier produced a step's output.
type StepTier string

const (
	TierReasoning StepTier = "reasoning"
	TierFallback  StepTier = "fallback"
)

// WorkflowRun is the audit record for one triage invocation.
type WorkflowRun struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	TicketID    string    `json:"ticket_id"`
	Type        string    `json:"type"`
	Status      RunStatus `json:"status"`
	InitiatorID string    `json:"initiator_id,omitempty"`
	StartedTS   int64     `json:"started_ts"`
	EndedTS     int64     `json:"ended_ts,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// WorkflowStep is the write-once audit record for one stage of one run.
// Input and Output are opaque JSON snapshots of what the stage consumed and
// produced; Tier records provenance (reasoning vs fallback) explicitly.
type WorkflowStep struct {
	ID     string          `json:"id"`
	RunID  string          `json:"run_id"`
	Stage  Stage           `json:"stage"`
	Tier   StepTier        `json:"tier"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	TS     int64           `json:"ts"`
}
