package gameserver

import (
	"context"
	"time"
)

// Ticker calls fn once per interval with the wall-clock time elapsed since
// the previous call.
//
// Invariant: fn is never invoked concurrently with itself.
type Ticker struct {
	interval time.Duration
	fn       func(dt time.Duration)
	now      func() time.Time
}

// NewTicker returns a ticker that fires every interval.
//
// Precondition: interval must be > 0 and fn must be non-nil.
func NewTicker(interval time.Duration, fn func(dt time.Duration)) *Ticker {
	if interval <= 0 {
		panic("gameserver.NewTicker: interval must be > 0")
	}
	if fn == nil {
		panic("gameserver.NewTicker: fn must not be nil")
	}
	return &Ticker{interval: interval, fn: fn, now: time.Now}
}

// Run fires ticks until ctx is cancelled.
//
// Postcondition: returns ctx.Err().
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	last := t.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := t.now()
			t.fn(now.Sub(last))
			last = now
		}
	}
}
