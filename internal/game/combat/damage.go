package combat

import "github.com/cory-johannsen/skirmish/internal/game/dice"

// Rules holds the tunable constants of the combat numerics.
type Rules struct {
	HitRoll              dice.Expression
	CritRoll             dice.Expression
	CritDamageRoll       dice.Expression
	ResistanceRoll       dice.Expression
	BaseCritThreshold    int
	CritThresholdFloor   int
	BaseCritStrikeDamage int
}

// DefaultRules returns the stock numerics: 2d10 hit rolls, a d20 crit check
// against 20 floored at 5, and a d20 resistance roll.
func DefaultRules() Rules {
	return Rules{
		HitRoll:              dice.MustParse("2d10"),
		CritRoll:             dice.MustParse("1d20"),
		CritDamageRoll:       dice.MustParse("1d6"),
		ResistanceRoll:       dice.MustParse("1d20"),
		BaseCritThreshold:    20,
		CritThresholdFloor:   5,
		BaseCritStrikeDamage: 2,
	}
}

// CritThreshold returns max(base − critChance, floor).
func CritThreshold(base, critChance, floor int) int {
	if t := base - critChance; t > floor {
		return t
	}
	return floor
}

// EffectiveDifficulty returns floor(base + level × 0.5).
func EffectiveDifficulty(base, level int) int {
	// Work in halves so odd negative totals still floor.
	total := 2*base + level
	if total < 0 && total%2 != 0 {
		return total/2 - 1
	}
	return total / 2
}

// MitigationPercent buckets the resistance excess over difficulty.
//
// Postcondition: excess < 0 → 0; 0–4 → 25; 5–8 → 50; 9–12 → 75; ≥ 13 → 100.
func MitigationPercent(excess int) int {
	switch {
	case excess < 0:
		return 0
	case excess <= 4:
		return 25
	case excess <= 8:
		return 50
	case excess <= 12:
		return 75
	default:
		return 100
	}
}

// DamageInput describes one damage computation.
type DamageInput struct {
	Roll       dice.Expression
	Attacker   Stats
	Stat       StatKind // empty means no stat bonus
	Kind       DamageKind
	Difficulty int
	Defender   Stats
}

// DamageResult holds the audit trail of ComputeDamage.
type DamageResult struct {
	// Base is the dice roll plus the attacker's stat.
	Base int
	// Raw is Base plus any crit bonus, floored at zero.
	Raw  int
	Crit bool
	// Difficulty is the level-adjusted difficulty.
	Difficulty int
	// Resisted is the defender's resistance roll plus resistance score.
	Resisted          int
	MitigationPercent int
	// Final is floor(Raw × (1 − mitigation)).
	Final int
}

// ComputeDamage rolls damage, crit and resistance for one hit.
//
// Precondition: every expression in rules comes from dice.Parse; r is non-nil.
// Postcondition: 0 <= Final <= Raw.
func ComputeDamage(in DamageInput, rules Rules, r dice.Roller) DamageResult {
	res := DamageResult{Difficulty: EffectiveDifficulty(in.Difficulty, in.Attacker.Level)}

	res.Base = r.Roll(in.Roll).Total()
	if in.Stat != "" {
		res.Base += in.Attacker.Get(in.Stat)
	}
	res.Raw = res.Base

	threshold := CritThreshold(rules.BaseCritThreshold, in.Attacker.Offense.CritChance, rules.CritThresholdFloor)
	if r.Roll(rules.CritRoll).Total() >= threshold {
		res.Crit = true
		bonus := r.Roll(rules.CritDamageRoll).Total()
		if bonus < rules.BaseCritStrikeDamage {
			bonus = rules.BaseCritStrikeDamage
		}
		res.Raw += bonus + in.Attacker.Offense.CritDamage
	}
	if res.Raw < 0 {
		res.Raw = 0
	}

	score, mitigable := in.Defender.ResistanceFor(in.Kind)
	if mitigable {
		res.Resisted = r.Roll(rules.ResistanceRoll).Total() + score
		res.MitigationPercent = MitigationPercent(res.Resisted - res.Difficulty)
	}
	res.Final = res.Raw * (100 - res.MitigationPercent) / 100
	return res
}

// ApplyDamage returns health reduced by dmg, saturating at zero. Negative
// damage is treated as zero.
//
// Postcondition: result == max(health − max(dmg, 0), 0).
func ApplyDamage(health, dmg int) int {
	if dmg < 0 {
		dmg = 0
	}
	if dmg >= health {
		return 0
	}
	return health - dmg
}
