package effect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

var (
	src = entity.Handle{Index: 0, Gen: 1}
	tgt = entity.Handle{Index: 1, Gen: 1}
)

func TestPhase_HookAndParse(t *testing.T) {
	assert.Equal(t, "on_hit", effect.PhaseHit.Hook())
	for _, p := range effect.Phases {
		got, err := effect.ParsePhase(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
		got, err = effect.ParsePhase(p.Hook())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := effect.ParsePhase("on_crit")
	assert.Error(t, err)
}

func TestParseLogKind_RoundTripsNames(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		k := rapid.SampledFrom(effect.LogKinds).Draw(rt, "kind")
		got, err := effect.ParseLogKind(k.String())
		require.NoError(rt, err)
		assert.Equal(rt, k, got)
	})
}

func TestName_CoversEveryAction(t *testing.T) {
	actions := []effect.Action{
		effect.ApplyDamage{}, effect.ApplyCondition{}, effect.SetDistance{}, effect.SetApproach{},
		effect.AddStatModifier{}, effect.RemoveStatModifier{}, effect.CombatLog{}, effect.SendMessage{},
	}
	seen := map[string]bool{}
	for _, a := range actions {
		seen[effect.Name(a)] = true
	}
	assert.Len(t, seen, len(actions))
}

const programYAML = `
use:
  - do: combat_log
    log: used
    message: lunges forward
on_hit:
  - do: apply_damage
    damage: 2d4+1
    kind: magical
  - do: apply_condition
    condition: bleeding
    duration: 4.5
  - do: add_stat_modifier
    on: source
    stat: strength
    amount: 2
    id: rage
  - do: set_distance
    distance: far
  - do: send_message
    message: You reel from the blow.
`

func TestProgram_UnmarshalAndExpand(t *testing.T) {
	var p effect.Program
	require.NoError(t, yaml.Unmarshal([]byte(programYAML), &p))
	require.Len(t, p[effect.PhaseUse], 1)
	require.Len(t, p[effect.PhaseHit], 5)
	assert.Equal(t, []string{"bleeding"}, p.ConditionIDs())

	acts := p.Expand(effect.PhaseHit, src, tgt)
	require.Len(t, acts, 5)

	dmg, ok := acts[0].(effect.ApplyDamage)
	require.True(t, ok)
	assert.Equal(t, tgt, dmg.Target)
	assert.Equal(t, "2d4+1", dmg.Roll.Raw)
	assert.Equal(t, combat.DamageMagical, dmg.Kind)

	cond := acts[1].(effect.ApplyCondition)
	assert.Equal(t, 4500*time.Millisecond, cond.Duration)

	mod := acts[2].(effect.AddStatModifier)
	assert.Equal(t, src, mod.Target)
	assert.Equal(t, "rage", mod.ModifierID)

	assert.Equal(t, effect.SetDistance{Target: tgt, Distance: combat.Far}, acts[3])
	assert.Equal(t, effect.SendMessage{Target: tgt, Text: "You reel from the blow."}, acts[4])

	assert.Nil(t, p.Expand(effect.PhaseEnd, src, tgt))
}

func TestProgram_GeneratesModifierIDs(t *testing.T) {
	p := effect.Program{effect.PhaseUse: {{Op: effect.OpAddStatModifier, Stat: combat.StatDexterity, Amount: 1}}}
	a := p.Expand(effect.PhaseUse, src, tgt)[0].(effect.AddStatModifier)
	b := p.Expand(effect.PhaseUse, src, tgt)[0].(effect.AddStatModifier)
	assert.NotEmpty(t, a.ModifierID)
	assert.NotEqual(t, a.ModifierID, b.ModifierID)
}

func TestProgram_RejectsBadSteps(t *testing.T) {
	cases := map[string]string{
		"unknown phase":   "on_crit: []",
		"unknown action":  "use: [{do: explode}]",
		"bad dice":        "hit: [{do: apply_damage, damage: 2d}]",
		"bad kind":        "hit: [{do: apply_damage, kind: fire}]",
		"no condition":    "hit: [{do: apply_condition}]",
		"bad stat":        "use: [{do: add_stat_modifier, stat: luck}]",
		"pool stat":       "use: [{do: add_stat_modifier, stat: health}]",
		"remove no id":    "use: [{do: remove_stat_modifier}]",
		"bad log":         "use: [{do: combat_log, log: shouted}]",
		"empty message":   "use: [{do: send_message}]",
		"bad on":          "use: [{do: send_message, message: hi, on: bystander}]",
		"bad distance":    "use: [{do: set_distance, distance: adjacent}]",
		"negative length": "use: [{do: apply_condition, condition: x, duration: -1}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			var p effect.Program
			assert.Error(t, yaml.Unmarshal([]byte(doc), &p))
		})
	}
}

func TestDefaultSkillProgram(t *testing.T) {
	p := effect.DefaultSkillProgram()
	acts := p.Expand(effect.PhaseHit, src, tgt)
	require.Len(t, acts, 1)
	assert.Equal(t, effect.ApplyDamage{Target: tgt}, acts[0])
	log := p.Expand(effect.PhaseDodge, src, tgt)[0].(effect.CombatLog)
	assert.Equal(t, effect.LogDodged, log.Entry.Kind)
}

func TestProgram_RejectsUnknownStepFields(t *testing.T) {
	var p effect.Program
	err := yaml.Unmarshal([]byte("use: [{do: send_message, message: hi, volume: 11}]"), &p)
	assert.Error(t, err)
}
