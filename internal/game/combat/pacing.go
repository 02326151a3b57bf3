package combat

import "time"

// QueuedAttack is a follow-up attack or skill use waiting for pacing to
// expire. Tokens are re-resolved on resubmission because the target may
// have moved or died in the meantime.
type QueuedAttack struct {
	Skill  string
	Target string
}

// Pacing is the "has attacked" marker. Its presence blocks immediate action.
//
// Invariant: at most one QueuedAttack; queuing replaces.
type Pacing struct {
	Timer  *Countdown
	Queued *QueuedAttack
}

// NewPacing returns a Pacing marker that elapses after d.
func NewPacing(d time.Duration) *Pacing {
	return &Pacing{Timer: NewCountdown(d)}
}

// Queue stores q, replacing any earlier queued attack. Reports whether an
// earlier one was replaced.
func (p *Pacing) Queue(q QueuedAttack) bool {
	replaced := p.Queued != nil
	p.Queued = &q
	return replaced
}
