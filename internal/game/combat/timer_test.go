package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

func TestCountdown_FiresOnce(t *testing.T) {
	c := combat.NewCountdown(100 * time.Millisecond)
	assert.False(t, c.Advance(60*time.Millisecond))
	assert.True(t, c.Advance(60*time.Millisecond))
	assert.Zero(t, c.Remaining())
	assert.False(t, c.Advance(60*time.Millisecond))
	c.Reset(10 * time.Millisecond)
	assert.True(t, c.Advance(10*time.Millisecond))
}

func TestInterval_CountsWholePeriods(t *testing.T) {
	i := combat.NewInterval(time.Second)
	assert.Equal(t, 0, i.Advance(900*time.Millisecond))
	assert.Equal(t, 1, i.Advance(200*time.Millisecond))
	assert.Equal(t, 2, i.Advance(2*time.Second))
	assert.Panics(t, func() { combat.NewInterval(0) })
}

func TestCooldowns_StartAndExpire(t *testing.T) {
	cd := combat.NewCooldowns()
	cd.Start("slash", 2*time.Second)
	cd.Start("kick", time.Second)
	assert.True(t, cd.Active("slash"))
	assert.Empty(t, cd.Advance(500*time.Millisecond))
	assert.Equal(t, []string{"kick"}, cd.Advance(500*time.Millisecond))
	rem, ok := cd.Remaining("slash")
	assert.True(t, ok)
	assert.Equal(t, time.Second, rem)
	cd.Start("slash", 0)
	assert.False(t, cd.Active("slash"))
}

func TestCooldowns_Property_MonotonicAndExactRemoval(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cd := combat.NewCooldowns()
		total := time.Duration(rapid.IntRange(1, 5000).Draw(rt, "ms")) * time.Millisecond
		cd.Start("s", total)
		var elapsed time.Duration
		prev := total
		for cd.Active("s") {
			dt := time.Duration(rapid.IntRange(1, 700).Draw(rt, "dt")) * time.Millisecond
			expired := cd.Advance(dt)
			elapsed += dt
			rem, ok := cd.Remaining("s")
			if elapsed >= total {
				assert.False(rt, ok)
				assert.Equal(rt, []string{"s"}, expired)
				break
			}
			assert.True(rt, ok, "removed before reaching zero")
			assert.Empty(rt, expired)
			assert.Less(rt, rem, prev)
			assert.Greater(rt, rem, time.Duration(0))
			prev = rem
		}
	})
}

func TestPacing_QueueReplaces(t *testing.T) {
	p := combat.NewPacing(time.Second)
	assert.False(t, p.Queue(combat.QueuedAttack{Skill: "attack", Target: "rat"}))
	assert.True(t, p.Queue(combat.QueuedAttack{Skill: "slash", Target: "ganger"}))
	assert.Equal(t, &combat.QueuedAttack{Skill: "slash", Target: "ganger"}, p.Queued)
}

func TestPacing_Property_LastWriteWins(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := combat.NewPacing(time.Second)
		skills := rapid.SliceOfN(rapid.StringMatching(`[a-z]{1,8}`), 1, 10).Draw(rt, "skills")
		for _, s := range skills {
			p.Queue(combat.QueuedAttack{Skill: s})
		}
		assert.Equal(rt, skills[len(skills)-1], p.Queued.Skill)
	})
}

func TestStance_PrepareAndAdvance(t *testing.T) {
	var s combat.Stance
	assert.True(t, s.Ready())
	s.Prepare(time.Second, 3*time.Second)
	assert.True(t, s.Raised())
	s.Advance(time.Second)
	assert.False(t, s.Raised())
	assert.False(t, s.Ready())
	s.Advance(2 * time.Second)
	assert.True(t, s.Ready())
}
