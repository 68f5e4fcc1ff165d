package store

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"agentdesk/pkg/models"
)

// seq reduces key collisions when records share a nanosecond timestamp.
var seq uint64

func nextSeq() uint64 { return atomic.AddUint64(&seq, 1) }

// Key formats:
//   run:<tenantID>:<ticketID>:<padded_started_ns>-<runID>
//   step:<runID>:<padded_ts_ns>-<seq>
//   reply:<replyID>

func runKey(r models.WorkflowRun) string {
	return fmt.Sprintf("run:%s:%s:%020d-%s", r.TenantID, r.TicketID, r.StartedTS, r.ID)
}

func replyKey(replyID string) string { return "reply:" + replyID }

// SaveRun upserts a workflow run. The key embeds the start timestamp so a
// ticket's runs list in chronological order; saving the same run again
// (status transition) overwrites in place.
func SaveRun(r models.WorkflowRun) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}
	return set(runKey(r), b)
}

// ListRuns returns all runs for a ticket ordered by start time.
func ListRuns(tenantID, ticketID string) ([]models.WorkflowRun, error) {
	var out []models.WorkflowRun
	prefix := "run:" + tenantID + ":" + ticketID + ":"
	err := scanPrefix(prefix, func(_ string, v []byte) bool {
		var r models.WorkflowRun
		if json.Unmarshal(v, &r) == nil {
			out = append(out, r)
		}
		return true
	})
	return out, err
}

// SaveStep appends a write-once step record for a run.
func SaveStep(s models.WorkflowStep) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal step: %w", err)
	}
	key := fmt.Sprintf("step:%s:%020d-%06d", s.RunID, s.TS, nextSeq())
	return set(key, b)
}

// ListSteps returns a run's steps in the order they were persisted.
func ListSteps(runID string) ([]models.WorkflowStep, error) {
	var out []models.WorkflowStep
	err := scanPrefix("step:"+runID+":", func(_ string, v []byte) bool {
		var s models.WorkflowStep
		if json.Unmarshal(v, &s) == nil {
			out = append(out, s)
		}
		return true
	})
	return out, err
}

// SaveReply upserts a ticket reply.
func SaveReply(r models.TicketReply) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	return set(replyKey(r.ID), b)
}

// GetReply loads a reply by id; ErrReplyNotFound when absent.
func GetReply(replyID string) (*models.TicketReply, error) {
	v, ok, err := get(replyKey(replyID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReplyNotFound
	}
	var r models.TicketReply
	if err := json.Unmarshal(v, &r); err != nil {
		return nil, fmt.Errorf("invalid reply JSON: %w", err)
	}
	return &r, nil
}

// MarkReplyDelivery advances a reply's delivery status. Regressions are
// rejected so a late or duplicate write can never undo a terminal state.
func MarkReplyDelivery(replyID string, status models.DeliveryStatus, provider, providerMsgID, deliveryErr string) error {
	r, err := GetReply(replyID)
	if err != nil {
		return err
	}
	if !models.DeliveryAdvances(r.DeliveryStatus, status) {
		return fmt.Errorf("delivery status may not move %q -> %q", r.DeliveryStatus, status)
	}
	r.DeliveryStatus = status
	r.Provider = provider
	r.ProviderMessageID = providerMsgID
	r.DeliveryError = deliveryErr
	if status == models.DeliverySent {
		r.DeliveredTS = time.Now().UTC().UnixNano()
	}
	return SaveReply(*r)
}

// ScanRunsBefore calls fn for every run (any tenant) that started before
// cutoff. Used by the retention sweeper.
func ScanRunsBefore(cutoff int64, fn func(models.WorkflowRun) bool) error {
	return scanPrefix("run:", func(_ string, v []byte) bool {
		var r models.WorkflowRun
		if json.Unmarshal(v, &r) != nil {
			return true
		}
		if r.StartedTS >= cutoff {
			return true
		}
		return fn(r)
	})
}

// DeleteRun removes a run record and all of its steps.
func DeleteRun(r models.WorkflowRun) error {
	var stepKeys []string
	if err := scanPrefix("step:"+r.ID+":", func(k string, _ []byte) bool {
		stepKeys = append(stepKeys, k)
		return true
	}); err != nil {
		return err
	}
	for _, k := range stepKeys {
		if err := del(k); err != nil {
			return err
		}
	}
	return del(runKey(r))
}
