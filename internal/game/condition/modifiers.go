package condition

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// ModifierID returns the stable id of the i-th declared modifier of
// condition id. Re-applying a condition overwrites the same ids.
func ModifierID(conditionID string, i int) string {
	return fmt.Sprintf("condition:%s:%d", conditionID, i)
}

// Modifiers returns the stat modifiers this condition grants at its current
// stack count.
//
// Postcondition: len(result) == len(ac.Def.Modifiers).
func (ac *ActiveCondition) Modifiers() []combat.Modifier {
	out := make([]combat.Modifier, 0, len(ac.Def.Modifiers))
	for i, m := range ac.Def.Modifiers {
		out = append(out, combat.Modifier{
			ID:     ModifierID(ac.Def.ID, i),
			Stat:   m.Stat,
			Amount: m.Amount * ac.Stacks,
			Source: ac.Def.ID,
		})
	}
	return out
}
