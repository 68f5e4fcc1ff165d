package reasoning

import (
	"sync"
	"time"
)

// CooldownWindow is how long the adapter refuses remote calls after a
// rate-limited failure.
const CooldownWindow = 5 * time.Minute

// Cooldown is a clock-gated circuit breaker shared by all users of one
// adapter instance. It represents upstream health, a process-level
// property, so the daemon constructs exactly one. It is not persisted;
// a restart clears it.
type Cooldown struct {
	mu    sync.Mutex
	now   func() time.Time
	until time.Time
}

// NewCooldown returns a cooldown gate using the given clock. A nil clock
// uses time.Now; tests inject their own to control the window.
func NewCooldown(now func() time.Time) *Cooldown {
	if now == nil {
		now = time.Now
	}
	return &Cooldown{now: now}
}

// Arm starts (or restarts) the cooldown window.
func (c *Cooldown) Arm() {
	c.mu.Lock()
	c.until = c.now().Add(CooldownWindow)
	c.mu.Unlock()
}

// Active reports whether the cooldown window is still open.
func (c *Cooldown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.until)
}
