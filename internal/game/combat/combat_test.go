package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

func fixedRoller(vals ...int) dice.Roller {
	return dice.NewLoggedRoller(dice.NewFixedSource(vals...), zap.NewNop())
}

func fighter() combat.Stats {
	return combat.Stats{
		Level:      1,
		Attributes: combat.Attributes{Vitality: 5, Proficiency: 4, Strength: 10, Dexterity: 3},
		Status:     combat.Status{VigorRegen: 3},
	}
}

func TestStats_Derived(t *testing.T) {
	s := fighter()
	assert.Equal(t, 50, s.MaxHealth())
	assert.Equal(t, 40, s.MaxVigor())
}

func TestStats_WithReturnsCopy(t *testing.T) {
	s := fighter()
	s2 := s.With(combat.StatStrength, 4)
	assert.Equal(t, 10, s.Get(combat.StatStrength))
	assert.Equal(t, 14, s2.Get(combat.StatStrength))
}

func TestParseStatKind_RejectsUnknown(t *testing.T) {
	_, err := combat.ParseStatKind("luck")
	assert.Error(t, err)
	k, err := combat.ParseStatKind("strength")
	require.NoError(t, err)
	assert.Equal(t, combat.StatStrength, k)
}

func TestResistanceFor(t *testing.T) {
	s := combat.Stats{Attributes: combat.Attributes{Intelligence: 9}, Resistance: combat.Resistance{Armor: 6}}
	score, ok := s.ResistanceFor(combat.DamagePhysical)
	assert.True(t, ok)
	assert.Equal(t, 6, score)
	score, ok = s.ResistanceFor(combat.DamageMagical)
	assert.True(t, ok)
	assert.Equal(t, 4, score)
	_, ok = s.ResistanceFor(combat.DamageTrue)
	assert.False(t, ok)
}

func TestNewCombatant_FullHealthAndVigor(t *testing.T) {
	c := combat.NewCombatant("Alice", combat.KindPlayer, fighter())
	assert.True(t, c.IsPlayer())
	assert.Equal(t, 50, c.Health())
	assert.Equal(t, 40, c.Base.Status.Vigor)
	assert.False(t, c.IsDead())
}

func TestCombatant_TakeDamage(t *testing.T) {
	c := combat.NewCombatant("G", combat.KindNPC, fighter())
	assert.Equal(t, 45, c.TakeDamage(5))
	assert.Equal(t, 0, c.TakeDamage(500))
	assert.True(t, c.IsDead())
}

func TestCombatant_Spend(t *testing.T) {
	c := combat.NewCombatant("G", combat.KindNPC, fighter())
	assert.True(t, c.Spend(30))
	assert.False(t, c.Spend(30))
	assert.Equal(t, 10, c.Base.Status.Vigor)
	assert.True(t, c.Spend(0))
}

func TestCombatant_RegenVigorCaps(t *testing.T) {
	c := combat.NewCombatant("G", combat.KindNPC, fighter())
	c.Base.Status.Vigor = 38
	c.RegenVigor()
	assert.Equal(t, 40, c.Base.Status.Vigor)
}

func TestCombatant_Modifiers(t *testing.T) {
	c := combat.NewCombatant("G", combat.KindNPC, fighter())
	c.AddModifier(combat.Modifier{ID: "m1", Stat: combat.StatStrength, Amount: 3})
	c.AddModifier(combat.Modifier{ID: "m2", Stat: combat.StatHealth, Amount: 100})
	eff := c.Effective()
	assert.Equal(t, 13, eff.Get(combat.StatStrength))
	assert.Equal(t, c.Health(), eff.Get(combat.StatHealth), "health is not modifiable")
	assert.Equal(t, []string{"m1", "m2"}, c.ModifierIDs())
	assert.True(t, c.RemoveModifier("m1"))
	assert.False(t, c.RemoveModifier("m1"))
	assert.Equal(t, 10, c.Effective().Get(combat.StatStrength))
}

func TestCombatant_GuardReflectsRaisedStances(t *testing.T) {
	c := combat.NewCombatant("G", combat.KindNPC, fighter())
	assert.Equal(t, combat.Guard{}, c.Guard(5))
	c.Block.Prepare(2e9, 5e9)
	assert.Equal(t, combat.Guard{Block: 5}, c.Guard(5))
	assert.False(t, c.Block.Ready())
}

func TestApplyDamage_Property_Saturates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := rapid.IntRange(0, 10_000).Draw(rt, "health")
		d := rapid.IntRange(0, 20_000).Draw(rt, "damage")
		assert.Equal(rt, max(h-d, 0), combat.ApplyDamage(h, d))
	})
}

func TestCritThreshold_Property_Floor(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := rapid.IntRange(-50, 100).Draw(rt, "crit_chance")
		assert.Equal(rt, max(20-c, 5), combat.CritThreshold(20, c, 5))
	})
}

func TestEffectiveDifficulty(t *testing.T) {
	assert.Equal(t, 10, combat.EffectiveDifficulty(10, 1))
	assert.Equal(t, 11, combat.EffectiveDifficulty(10, 2))
	assert.Equal(t, 0, combat.EffectiveDifficulty(0, 0))
	assert.Equal(t, -1, combat.EffectiveDifficulty(0, -1))
}

func TestMitigationPercent_Buckets(t *testing.T) {
	tests := []struct {
		excess int
		want   int
	}{
		{-1, 0}, {0, 25}, {4, 25}, {5, 50}, {8, 50}, {9, 75}, {12, 75}, {13, 100}, {40, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, combat.MitigationPercent(tt.excess), "excess %d", tt.excess)
	}
}

func TestComputeDamage_OneD1PlusStrength(t *testing.T) {
	// 1d1 always rolls 1; every d20 draw pins to 1 so no crit fires.
	in := combat.DamageInput{
		Roll:     dice.MustParse("1d1"),
		Attacker: fighter(),
		Stat:     combat.StatStrength,
		Kind:     combat.DamagePhysical,
	}
	res := combat.ComputeDamage(in, combat.DefaultRules(), fixedRoller(0))
	assert.Equal(t, 11, res.Base)
	assert.Equal(t, 11, res.Raw)
	assert.False(t, res.Crit)

	again := combat.ComputeDamage(in, combat.DefaultRules(), fixedRoller(0))
	assert.Equal(t, res, again)
}

func TestComputeDamage_TrueDamageIgnoresResistance(t *testing.T) {
	in := combat.DamageInput{
		Roll:     dice.MustParse("6"),
		Kind:     combat.DamageTrue,
		Defender: combat.Stats{Resistance: combat.Resistance{Armor: 100}},
	}
	res := combat.ComputeDamage(in, combat.DefaultRules(), fixedRoller(0))
	assert.Equal(t, 6, res.Final)
	assert.Zero(t, res.MitigationPercent)
}

func TestComputeDamage_CritAddsBonus(t *testing.T) {
	// draws: crit d20 -> 20, crit damage d6 -> 1 (raised to base 2).
	in := combat.DamageInput{
		Roll:     dice.MustParse("4"),
		Attacker: combat.Stats{Offense: combat.Offense{CritDamage: 3}},
		Kind:     combat.DamageTrue,
	}
	res := combat.ComputeDamage(in, combat.DefaultRules(), fixedRoller(19, 0))
	require.True(t, res.Crit)
	assert.Equal(t, 4+2+3, res.Final)
}

func TestComputeDamage_FullNegation(t *testing.T) {
	in := combat.DamageInput{
		Roll:     dice.MustParse("10"),
		Kind:     combat.DamagePhysical,
		Defender: combat.Stats{Resistance: combat.Resistance{Armor: 50}},
	}
	res := combat.ComputeDamage(in, combat.DefaultRules(), fixedRoller(0))
	assert.Equal(t, 100, res.MitigationPercent)
	assert.Zero(t, res.Final)
}

func TestComputeDamage_Property_FinalWithinRaw(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		in := combat.DamageInput{
			Roll:       dice.MustParse("2d6"),
			Attacker:   combat.Stats{Attributes: combat.Attributes{Strength: rapid.IntRange(0, 30).Draw(rt, "str")}},
			Stat:       combat.StatStrength,
			Kind:       combat.DamagePhysical,
			Difficulty: rapid.IntRange(0, 20).Draw(rt, "difficulty"),
			Defender:   combat.Stats{Resistance: combat.Resistance{Armor: rapid.IntRange(0, 30).Draw(rt, "armor")}},
		}
		r := dice.NewLoggedRoller(dice.NewSeededSource(seed), zap.NewNop())
		res := combat.ComputeDamage(in, combat.DefaultRules(), r)
		assert.GreaterOrEqual(rt, res.Final, 0)
		assert.LessOrEqual(rt, res.Final, res.Raw)
	})
}

func TestResolveHit_TiesFavorDefender(t *testing.T) {
	// Both 2d10 rolls draw identical dice, so quality == defense + stat.
	attacker := combat.Stats{Attributes: combat.Attributes{Strength: 3}}
	defender := combat.Stats{Attributes: combat.Attributes{Dexterity: 3}}
	res := combat.ResolveHit(attacker, combat.StatStrength, defender, combat.Guard{}, combat.DefaultRules(), fixedRoller(4))
	assert.Equal(t, res.Quality, res.DodgeThreshold)
	assert.Equal(t, combat.Dodged, res.Outcome)
}

func TestResolveHit_BlockedWhenOnlyBlockHolds(t *testing.T) {
	attacker := combat.Stats{Attributes: combat.Attributes{Strength: 5}}
	defender := combat.Stats{Attributes: combat.Attributes{Strength: 2}}
	res := combat.ResolveHit(attacker, combat.StatStrength, defender, combat.Guard{Block: 4}, combat.DefaultRules(), fixedRoller(4))
	assert.Equal(t, combat.Blocked, res.Outcome)
}

func TestResolveHit_Hit(t *testing.T) {
	attacker := combat.Stats{Attributes: combat.Attributes{Strength: 10}}
	res := combat.ResolveHit(attacker, combat.StatStrength, combat.Stats{}, combat.Guard{}, combat.DefaultRules(), fixedRoller(4))
	assert.Equal(t, combat.Hit, res.Outcome)
	assert.Equal(t, "hit", res.Outcome.String())
}

func TestResolveHit_Property_OutcomeMatchesThresholds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		attacker := combat.Stats{Attributes: combat.Attributes{Dexterity: rapid.IntRange(0, 20).Draw(rt, "atk_dex")}}
		defender := combat.Stats{
			Attributes: combat.Attributes{Dexterity: rapid.IntRange(0, 20).Draw(rt, "def_dex"), Strength: rapid.IntRange(0, 20).Draw(rt, "def_str")},
		}
		r := dice.NewLoggedRoller(dice.NewSeededSource(seed), zap.NewNop())
		res := combat.ResolveHit(attacker, combat.StatDexterity, defender, combat.Guard{}, combat.DefaultRules(), r)
		switch res.Outcome {
		case combat.Dodged:
			assert.LessOrEqual(rt, res.Quality, res.DodgeThreshold)
		case combat.Blocked:
			assert.Greater(rt, res.Quality, res.DodgeThreshold)
			assert.LessOrEqual(rt, res.Quality, res.BlockThreshold)
		case combat.Hit:
			assert.Greater(rt, res.Quality, res.DodgeThreshold)
			assert.Greater(rt, res.Quality, res.BlockThreshold)
		}
	})
}
