// Package effect defines the closed vocabulary a skill or condition may use
// to change the world: lifecycle phases, the Action sum type, and
// data-described effect programs that expand into Actions without a script.
package effect

import "fmt"

// Phase is a named point in a skill or condition lifecycle.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseUse
	PhaseMiss
	PhaseDodge
	PhaseBlock
	PhaseHit
	PhaseEnd
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{PhaseInit, PhaseUse, PhaseMiss, PhaseDodge, PhaseBlock, PhaseHit, PhaseEnd}

var phaseNames = [...]string{"init", "use", "miss", "dodge", "block", "hit", "end"}

// String returns the lower-case phase name.
func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Hook returns the script entry point for p, e.g. "on_hit".
func (p Phase) Hook() string { return "on_" + p.String() }

// ParsePhase accepts "hit" or "on_hit".
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if s == p.String() || s == p.Hook() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}
