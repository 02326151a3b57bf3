package combat

import (
	"sort"
	"time"
)

// Cooldowns maps skill id to the time left before it may be used again.
//
// Invariant: every stored duration is > 0; entries are removed on the
// Advance call that brings them to zero.
type Cooldowns struct {
	remaining map[string]time.Duration
}

// NewCooldowns returns an empty Cooldowns.
func NewCooldowns() *Cooldowns {
	return &Cooldowns{remaining: make(map[string]time.Duration)}
}

// Start puts id on cooldown for d. A non-positive d clears it.
func (c *Cooldowns) Start(id string, d time.Duration) {
	if d <= 0 {
		delete(c.remaining, id)
		return
	}
	c.remaining[id] = d
}

// Remaining returns the time left for id, or false when it is ready.
func (c *Cooldowns) Remaining(id string) (time.Duration, bool) {
	d, ok := c.remaining[id]
	return d, ok
}

// Active reports whether id is on cooldown.
func (c *Cooldowns) Active(id string) bool {
	_, ok := c.remaining[id]
	return ok
}

// Clear removes every cooldown.
func (c *Cooldowns) Clear() {
	clear(c.remaining)
}

// Len returns the number of skills on cooldown.
func (c *Cooldowns) Len() int { return len(c.remaining) }

// Advance subtracts dt from every entry and returns, sorted, the ids that
// expired on this call.
func (c *Cooldowns) Advance(dt time.Duration) []string {
	var expired []string
	for id, d := range c.remaining {
		d -= dt
		if d <= 0 {
			expired = append(expired, id)
			delete(c.remaining, id)
			continue
		}
		c.remaining[id] = d
	}
	sort.Strings(expired)
	return expired
}
