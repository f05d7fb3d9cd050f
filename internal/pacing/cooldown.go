package pacing

import (
	"sync"
	"time"
)

// Cooldown is a small breaker over consecutive unsuccessful sends. Once the
// threshold is reached it asks for one pause; any success closes it again.
// A zero threshold never trips.
type Cooldown struct {
	mu               sync.Mutex
	consecutiveFails int
	failThreshold    int
	pause            time.Duration
	tripped          bool
}

func NewCooldown(threshold int, pause time.Duration) *Cooldown {
	return &Cooldown{failThreshold: threshold, pause: pause}
}

func (c *Cooldown) OnSuccess() {
	c.mu.Lock()
	c.consecutiveFails = 0
	c.tripped = false
	c.mu.Unlock()
}

func (c *Cooldown) OnFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failThreshold <= 0 {
		return
	}

	c.consecutiveFails++
	if c.consecutiveFails >= c.failThreshold {
		c.tripped = true
	}
}

// Take reports the pause owed before the next attempt and resets the
// counter so the next pause needs another full streak of failures.
func (c *Cooldown) Take() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tripped || c.pause <= 0 {
		return 0, false
	}

	c.tripped = false
	c.consecutiveFails = 0

	return c.pause, true
}

func (c *Cooldown) ConsecutiveFails() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.consecutiveFails
}
