package dice_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

func TestRollResult_Total(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
}

func TestRollResult_String(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, "2d6+3 → [4 5] +3 = 12", r.String())
}

func TestRollResult_String_PanicsOnEmptyExpression(t *testing.T) {
	r := dice.RollResult{Dice: []int{4}}
	assert.Panics(t, func() { _ = r.String() })
}

func TestRollResult_String_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.StringMatching(`[0-9]+d[0-9]+[+-][0-9]+`).Draw(rt, "expression")
		ds := rapid.SliceOfN(rapid.IntRange(1, 20), 1, 10).Draw(rt, "dice")
		modifier := rapid.IntRange(-100, 100).Draw(rt, "modifier")
		r := dice.RollResult{Expression: expr, Dice: ds, Modifier: modifier}
		s := r.String()
		assert.True(rt, strings.Contains(s, expr))
		assert.Contains(rt, s, fmt.Sprintf("%d", r.Total()))
	})
}

func TestParse_Forms(t *testing.T) {
	cases := []struct {
		in                      string
		count, sides, mod, keep int
	}{
		{"d20", 1, 20, 0, 0},
		{"1d1", 1, 1, 0, 0},
		{"2d10", 2, 10, 0, 0},
		{"2d6+3", 2, 6, 3, 0},
		{"4d8-2", 4, 8, -2, 0},
		{"4d6kh3", 4, 6, 0, 3},
		{"4d6kh3+1", 4, 6, 1, 3},
		{"7", 0, 0, 7, 0},
		{" 1D4 + 2 ", 1, 4, 2, 0},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.Count)
			assert.Equal(t, tc.sides, e.Sides)
			assert.Equal(t, tc.mod, e.Modifier)
			assert.Equal(t, tc.keep, e.KeepHighest)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "d", "xd6", "0d6", "2d0", "2dx", "2d6+x", "4d6kh4", "4d6kh0", "abc"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, "expected error for %q", in)
	}
}

func TestRoll_OneDieOneSide_IsDeterministic(t *testing.T) {
	res := dice.Roll(dice.MustParse("1d1"), dice.NewCryptoSource())
	assert.Equal(t, 1, res.Total())
}

func TestRoll_ConstantExpression(t *testing.T) {
	res := dice.Roll(dice.MustParse("5"), dice.NewFixedSource(3))
	assert.Empty(t, res.Dice)
	assert.Equal(t, 5, res.Total())
}

func TestRoll_KeepHighest(t *testing.T) {
	res := dice.Roll(dice.MustParse("4d6kh3"), dice.NewFixedSource(0, 5, 2, 4))
	assert.Equal(t, []int{6, 5, 3}, res.Dice)
}

func TestProperty_RollWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 6).Draw(rt, "count")
		sides := rapid.IntRange(1, 20).Draw(rt, "sides")
		mod := rapid.IntRange(-5, 5).Draw(rt, "mod")
		e, err := dice.Parse(fmt.Sprintf("%dd%d%+d", count, sides, mod))
		require.NoError(rt, err)
		total := dice.Roll(e, dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed"))).Total()
		assert.GreaterOrEqual(rt, total, e.Min())
		assert.LessOrEqual(rt, total, e.Max())
	})
}

func TestSeededSource_Reproducible(t *testing.T) {
	a := dice.NewSeededSource(42)
	b := dice.NewSeededSource(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestFixedSource_CyclesModulo(t *testing.T) {
	src := dice.NewFixedSource(9, 1)
	assert.Equal(t, 9, src.Intn(10))
	assert.Equal(t, 1, src.Intn(10))
	assert.Equal(t, 0, src.Intn(3))
}

func TestCryptoSource_Intn_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
	}
}

func TestCryptoSource_Intn_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
}

func TestLoggedRoller_LogsAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(dice.NewFixedSource(0), zap.New(core))
	res, err := r.RollExpr("2d4+1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "dice roll", logs.All()[0].Message)
	assert.Equal(t, uint64(1), r.Rolls())
}

func TestLoggedRoller_CountsWithoutDebug(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := dice.NewLoggedRoller(dice.NewFixedSource(0), zap.New(core))
	for i := 0; i < 3; i++ {
		r.Roll(dice.MustParse("1d6"))
	}
	assert.Equal(t, 0, logs.Len())
	assert.Equal(t, uint64(3), r.Rolls())
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { dice.MustParse("2dx") })
}

func TestRoll_KeepHighestDoesNotAlias(t *testing.T) {
	res := dice.Roll(dice.MustParse("3d6kh2"), dice.NewFixedSource(1, 4, 2))
	require.Equal(t, []int{5, 3}, res.Dice)
	assert.Equal(t, 2, cap(res.Dice))
}

func TestNewLoggedRoller_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { dice.NewLoggedRoller(nil, zap.NewNop()) })
	assert.Panics(t, func() { dice.NewLoggedRoller(dice.NewCryptoSource(), nil) })
}
