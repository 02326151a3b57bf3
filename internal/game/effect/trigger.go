package effect

import (
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// TriggerKind says what started a scripted invocation.
type TriggerKind int

const (
	TriggerSkill TriggerKind = iota
	TriggerCondition
)

// String returns "skill" or "condition".
func (k TriggerKind) String() string {
	if k == TriggerCondition {
		return "condition"
	}
	return "skill"
}

// Trigger is the runtime view of a skill or condition definition: what the
// damage consumer and the scripting bridge need to know about it. Built
// once at load; never mutated.
type Trigger struct {
	Kind       TriggerKind
	ID         string
	Name       string
	Stat       combat.StatKind
	DamageKind combat.DamageKind
	Difficulty int
	Roll       dice.Expression
	Scripts    []string
	Program    Program
}

// Scripted reports whether any script is attached.
func (t *Trigger) Scripted() bool { return len(t.Scripts) > 0 }
