package combat

import "github.com/cory-johannsen/skirmish/internal/game/dice"

// HitOutcome is the result of one hit resolution.
type HitOutcome int

const (
	Hit HitOutcome = iota
	Dodged
	Blocked
)

// String returns a human-readable outcome label.
func (o HitOutcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Dodged:
		return "dodged"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Guard carries the defender's manual dodge/block preparation bonuses.
type Guard struct {
	Dodge int
	Block int
}

// HitResult holds the audit trail for one ResolveHit call.
type HitResult struct {
	Outcome        HitOutcome
	Quality        int
	DodgeThreshold int
	BlockThreshold int
}

// ResolveHit rolls an attack quality (hit roll + attacker's stat) against
// the defender's dodge and block thresholds. One defense roll feeds both
// thresholds. Ties favor the defender.
//
// Precondition: rules.HitRoll must be a parsed expression; r must be non-nil.
// Postcondition: Dodged iff Quality <= DodgeThreshold; Blocked iff Quality
// <= BlockThreshold and not Dodged; Hit otherwise.
func ResolveHit(attacker Stats, stat StatKind, defender Stats, guard Guard, rules Rules, r dice.Roller) HitResult {
	quality := r.Roll(rules.HitRoll).Total() + attacker.Get(stat)
	defense := r.Roll(rules.HitRoll).Total()

	res := HitResult{
		Quality:        quality,
		DodgeThreshold: defense + defender.Attributes.Dexterity + defender.Defense.Dodge + guard.Dodge,
		BlockThreshold: defense + defender.Attributes.Strength + defender.Defense.Block + guard.Block,
	}
	switch {
	case res.Quality <= res.DodgeThreshold:
		res.Outcome = Dodged
	case res.Quality <= res.BlockThreshold:
		res.Outcome = Blocked
	default:
		res.Outcome = Hit
	}
	return res
}
