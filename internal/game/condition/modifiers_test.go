package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
)

func TestModifiers_ScaleWithStacks(t *testing.T) {
	def := &condition.ConditionDef{
		ID: "weakened", Name: "Weakened", MaxStacks: 3,
		Modifiers: []condition.StatModifier{{Stat: combat.StatStrength, Amount: -2}, {Stat: combat.StatArmor, Amount: -1}},
	}
	s := condition.NewActiveSet()
	_, _ = s.Apply(def, caster, 2, 0)
	ac, _ := s.Get("weakened")
	mods := ac.Modifiers()
	require.Len(t, mods, 2)
	assert.Equal(t, combat.Modifier{ID: "condition:weakened:0", Stat: combat.StatStrength, Amount: -4, Source: "weakened"}, mods[0])
	assert.Equal(t, -2, mods[1].Amount)
}

func TestModifierID_Stable(t *testing.T) {
	assert.Equal(t, condition.ModifierID("x", 1), condition.ModifierID("x", 1))
	assert.NotEqual(t, condition.ModifierID("x", 0), condition.ModifierID("x", 1))
}
