package condition_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

func TestRegistry_Get_Found(t *testing.T) {
	reg := condition.NewRegistry()
	def := prone()
	reg.Register(def)
	got, ok := reg.Get("prone")
	require.True(t, ok)
	assert.Same(t, def, got)
}

func TestRegistry_Get_NotFound(t *testing.T) {
	_, ok := condition.NewRegistry().Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_All_ReturnsCopy(t *testing.T) {
	reg := condition.NewRegistry()
	reg.Register(prone())
	reg.Register(bleeding())
	all := reg.All()
	require.Len(t, all, 2)
	all[0] = nil
	for _, d := range reg.All() {
		assert.NotNil(t, d)
	}
}

const bleedingYAML = `
id: bleeding
name: Bleeding
description: Loses blood over time.
duration: 4
tick_interval: 1
max_stacks: 3
damage_kind: "true"
damage: 1d2
modifiers:
  - stat: dexterity
    amount: -1
`

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bleeding.yaml"), []byte(bleedingYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	reg, err := condition.LoadDirectory(dir)
	require.NoError(t, err)
	def, ok := reg.Get("bleeding")
	require.True(t, ok)
	assert.Equal(t, 4*time.Second, def.Duration)
	assert.Equal(t, time.Second, def.TickInterval)
	assert.Equal(t, combat.DamageTrue, def.DamageKind)
	assert.Equal(t, []condition.StatModifier{{Stat: combat.StatDexterity, Amount: -1}}, def.Modifiers)

	tr := def.Trigger()
	assert.Equal(t, effect.TriggerCondition, tr.Kind)
	assert.Len(t, tr.Program[effect.PhaseUse], 1, "unscripted damage conditions deal damage on tick")
}

func TestLoadDirectory_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad dice":      "id: x\nname: X\ndamage: d\n",
		"unknown field": "id: x\nname: X\nlua_on_tick: foo\n",
		"pool modifier": "id: x\nname: X\nmodifiers: [{stat: health, amount: 1}]\n",
		"negative":      "id: x\nname: X\nduration: -2\n",
		"missing name":  "id: x\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "x.yaml"), []byte(doc), 0o644))
			_, err := condition.LoadDirectory(dir)
			assert.Error(t, err)
		})
	}
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, err := condition.LoadDirectory("/nonexistent/conditions")
	assert.Error(t, err)
}
