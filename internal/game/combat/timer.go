package combat

import "time"

// Countdown is a one-shot timer advanced by the simulation tick. It owns no
// goroutine; dropping it cancels it.
type Countdown struct {
	remaining time.Duration
}

// NewCountdown returns a Countdown that fires after d.
func NewCountdown(d time.Duration) *Countdown {
	if d < 0 {
		d = 0
	}
	return &Countdown{remaining: d}
}

// Remaining returns the time left, never negative.
func (c *Countdown) Remaining() time.Duration { return c.remaining }

// Advance subtracts dt and reports whether the countdown reached zero on
// this call.
//
// Postcondition: Remaining() >= 0.
func (c *Countdown) Advance(dt time.Duration) bool {
	if c.remaining <= 0 {
		return false
	}
	c.remaining -= dt
	if c.remaining <= 0 {
		c.remaining = 0
		return true
	}
	return false
}

// Reset rearms the countdown to d.
func (c *Countdown) Reset(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.remaining = d
}

// Interval fires repeatedly every period. Used for regeneration and
// condition ticks.
type Interval struct {
	period  time.Duration
	elapsed time.Duration
}

// NewInterval returns an Interval with the given period.
//
// Precondition: period > 0.
func NewInterval(period time.Duration) *Interval {
	if period <= 0 {
		panic("combat.NewInterval: period must be > 0")
	}
	return &Interval{period: period}
}

// Period returns the configured period.
func (i *Interval) Period() time.Duration { return i.period }

// Advance adds dt and returns how many whole periods elapsed.
func (i *Interval) Advance(dt time.Duration) int {
	if dt <= 0 {
		return 0
	}
	i.elapsed += dt
	n := int(i.elapsed / i.period)
	i.elapsed -= time.Duration(n) * i.period
	return n
}
