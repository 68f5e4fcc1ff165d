// Package delivery durably decouples "approved to send" from "actually
// sent". Jobs are delivered at least once, never exactly once: a crash
// after a successful send but before the ack can cause a duplicate send on
// redelivery, which is the accepted tradeoff.
package delivery

import "encoding/json"

// JobDeliverReply is the only job name the worker understands.
const JobDeliverReply = "deliver_reply"

// Job is the immutable queue message. Its JSON shape is the one persisted
// cross-process format and must stay stable: producer and consumer may run
// at different deploy versions.
type Job struct {
	ReplyID string `json:"replyId"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Encode marshals the job for the queue.
func (j Job) Encode() ([]byte, error) { return json.Marshal(j) }

// DecodeJob parses a queue payload.
func DecodeJob(payload []byte) (Job, error) {
	var j Job
	err := json.Unmarshal(payload, &j)
	return j, err
}
