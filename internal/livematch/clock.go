package livematch

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MatchClock is the countdown for one live match. It is owned by the
// scorekeeping session and passed by handle into the scoring flow and the
// synchronizer; observers never write to it, they run their own local
// countdown seeded from the last pushed value.
type MatchClock struct {
	clock clockwork.Clock

	mu        sync.Mutex
	total     time.Duration
	running   bool
	deadline  time.Time
	remaining time.Duration
}

// NewMatchClock creates a paused clock holding the full match duration.
func NewMatchClock(clock clockwork.Clock, total time.Duration) *MatchClock {
	return &MatchClock{
		clock:     clock,
		total:     total,
		remaining: total,
	}
}

// Start begins or resumes the countdown.
func (c *MatchClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return
	}
	c.deadline = c.clock.Now().Add(c.remaining)
	c.running = true
}

// Pause freezes the countdown, preserving the remaining time.
func (c *MatchClock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.remaining = c.remainingLocked()
	c.running = false
}

// Reset stops the clock and reloads it with a new full duration.
func (c *MatchClock) Reset(total time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total = total
	c.remaining = total
	c.running = false
}

// SecondsLeft returns the whole seconds remaining, never negative.
func (c *MatchClock) SecondsLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	rem := c.remaining
	if c.running {
		rem = c.remainingLocked()
	}
	return int(rem.Seconds())
}

// TotalSeconds returns the configured match duration in whole seconds.
func (c *MatchClock) TotalSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(c.total.Seconds())
}

// Elapsed returns whole seconds played so far.
func (c *MatchClock) Elapsed() int {
	return c.TotalSeconds() - c.SecondsLeft()
}

// Expired reports whether the countdown has reached zero.
func (c *MatchClock) Expired() bool {
	return c.SecondsLeft() <= 0
}

func (c *MatchClock) remainingLocked() time.Duration {
	rem := c.deadline.Sub(c.clock.Now())
	if rem < 0 {
		return 0
	}
	return rem
}
