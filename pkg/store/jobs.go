package store

import (
	"fmt"
	"time"
)

// Job keys:
//   job:<padded_enqueue_ns>-<seq>:<jobID>
//
// Jobs are immutable queue messages. A job key exists from enqueue until
// the worker acks it; a crash in between leaves the key in place so the
// job is redelivered on the next start (at-least-once).

func jobKey(enqTS int64, n uint64, jobID string) string {
	return fmt.Sprintf("job:%020d-%06d:%s", enqTS, n, jobID)
}

// SaveJob durably persists a job payload and returns its storage key.
func SaveJob(jobID string, payload []byte) (string, error) {
	key := jobKey(time.Now().UTC().UnixNano(), nextSeq(), jobID)
	if err := set(key, payload); err != nil {
		return "", err
	}
	return key, nil
}

// DeleteJob removes an acked job by storage key.
func DeleteJob(key string) error { return del(key) }

// ScanJobs calls fn with every pending job in enqueue order.
func ScanJobs(fn func(key string, payload []byte) bool) error {
	return scanPrefix("job:", fn)
}
