package reasoning

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable means the reasoning tier cannot be attempted at all: no
// credential is configured, or the cooldown is armed. Callers fall back per
// stage; this is expected and not logged as an error.
var ErrUnavailable = errors.New("reasoning service unavailable")

// ReasoningError is a transport, status or parse failure from the remote
// service. RateLimited failures additionally arm the adapter cooldown.
type ReasoningError struct {
	Op          string
	Status      int
	Msg         string
	RateLimited bool
	Err         error
}

func (e *ReasoningError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reasoning %s: %v", e.Op, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("reasoning %s: status %d: %s", e.Op, e.Status, e.Msg)
	}
	return fmt.Sprintf("reasoning %s: %s", e.Op, e.Msg)
}

func (e *ReasoningError) Unwrap() error { return e.Err }

// rateLimitText matches provider messages that signal quota exhaustion
// without a 429 status.
var rateLimitText = []string{"rate limit", "rate_limit", "too many requests", "quota"}

// looksRateLimited classifies a failure as rate limiting from its status
// code or message text.
func looksRateLimited(status int, msg string) bool {
	if status == 429 {
		return true
	}
	m := strings.ToLower(msg)
	for _, s := range rateLimitText {
		if strings.Contains(m, s) {
			return true
		}
	}
	return false
}

// IsRateLimited reports whether err is a rate-limited reasoning failure.
func IsRateLimited(err error) bool {
	var re *ReasoningError
	return errors.As(err, &re) && re.RateLimited
}
