package scripting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

const continuationScript = `
	local M = {}
	function M.on_hit(self, action, var)
		action.apply_damage(var.target, {
			damage = "2d4",
			after = function(damage, kind, crit)
				action.send_message(var.source, { message = "dealt " .. damage .. " " .. kind })
				if crit then
					action.apply_condition(var.target, { id = "bleed", duration = 3 })
				end
			end,
		})
	end
	return M
`

func TestNewPipeline_NilSinkPanics(t *testing.T) {
	h := newHarness(t, nil)
	assert.Panics(t, func() { scripting.NewPipeline(h.bridge, nil, h.deliver, 0, zap.NewNop()) })
}

func TestInvoke_OnHitApplyDamageWithoutAfter(t *testing.T) {
	h := newHarness(t, map[string]string{
		"strike": `
			local M = {}
			function M.on_hit(self, action, var)
				action.apply_damage(var.target, { damage = "1d8+2", kind = var.damage_kind.magical })
			end
			return M
		`,
	})
	ec := h.context("strike")
	require.NoError(t, h.pipeline.Invoke(ec, effect.PhaseHit))

	require.Len(t, h.sink.events, 1)
	ev := h.sink.events[0]
	assert.Equal(t, ec.SandboxID, ev.SandboxID)
	assert.Equal(t, h.alice, ev.Source)
	assert.Same(t, ec.Trigger, ev.Trigger)
	dmg, ok := ev.Action.(effect.ApplyDamage)
	require.True(t, ok)
	assert.Equal(t, h.bob, dmg.Target)
	assert.Equal(t, "1d8+2", dmg.Roll.Raw)
	assert.Equal(t, combat.DamageMagical, dmg.Kind)
	assert.Empty(t, dmg.Callback)

	sb, ok := h.bridge.Sandboxes().Get(ec.SandboxID)
	require.True(t, ok)
	assert.Empty(t, sb.Pending())
	assert.Zero(t, sb.Queued())
}

func TestInvoke_ConstantDamage(t *testing.T) {
	h := newHarness(t, map[string]string{
		"flat": `
			local M = {}
			function M.on_hit(self, action, var)
				action.apply_damage(var.target, { damage = 4 })
			end
			return M
		`,
	})
	require.NoError(t, h.pipeline.Invoke(h.context("flat"), effect.PhaseHit))
	require.Len(t, h.sink.events, 1)
	dmg := h.sink.events[0].Action.(effect.ApplyDamage)
	assert.Equal(t, 0, dmg.Roll.Count)
	assert.Equal(t, 4, dmg.Roll.Modifier)
	assert.Equal(t, combat.DamageKind(""), dmg.Kind, "empty kind defers to the trigger")
}

func TestInvoke_ActionsTranslatedInOrder(t *testing.T) {
	h := newHarness(t, map[string]string{
		"combo": `
			local M = {}
			function M.on_use(self, action, var)
				action.apply_condition(var.target, { id = "dazed", duration = 1.5 })
				action.send_message(var.target, { message = "you reel" })
				action.set_distance(var.target, { distance = var.distance.near })
				action.set_approach(var.source, { approach = var.approach.rear })
				local id = action.add_stat_modifier(var.source, { stat = var.stat.dexterity, amount = 2 })
				action.remove_stat_modifier(var.source, { id = id })
				action.combat_log(var.source, var.target, { used = "combo" })
			end
			return M
		`,
	})
	require.NoError(t, h.pipeline.Invoke(h.context("combo"), effect.PhaseUse))

	assert.Equal(t, []string{
		"apply_condition", "set_distance", "set_approach",
		"add_stat_modifier", "remove_stat_modifier", "combat_log",
	}, h.sink.names())
	assert.Equal(t, []string{"you reel"}, h.deliver.msgs[h.bob])

	cond := h.sink.events[0].Action.(effect.ApplyCondition)
	assert.Equal(t, "dazed", cond.ConditionID)
	assert.Equal(t, 1500*time.Millisecond, cond.Duration)

	add := h.sink.events[3].Action.(effect.AddStatModifier)
	remove := h.sink.events[4].Action.(effect.RemoveStatModifier)
	assert.NotEmpty(t, add.ModifierID)
	assert.Equal(t, add.ModifierID, remove.ModifierID)
	assert.Equal(t, combat.StatDexterity, add.Stat)
	assert.Equal(t, 2, add.Amount)
	assert.Equal(t, combat.Rear, h.sink.events[2].Action.(effect.SetApproach).Approach)
}

func TestProcess_UnknownSandbox(t *testing.T) {
	h := newHarness(t, nil)
	assert.ErrorIs(t, h.pipeline.Process("nope"), scripting.ErrNoSandbox)
}

func TestOnDamageResponse_RunsContinuationAndReprocesses(t *testing.T) {
	h := newHarness(t, map[string]string{"bleeder": continuationScript})
	ec := h.context("bleeder")
	require.NoError(t, h.pipeline.Invoke(ec, effect.PhaseHit))

	require.Len(t, h.sink.events, 1)
	dmg := h.sink.events[0].Action.(effect.ApplyDamage)
	require.NotEmpty(t, dmg.Callback)
	sb, _ := h.bridge.Sandboxes().Get(ec.SandboxID)
	assert.Equal(t, []string{dmg.Callback}, sb.Pending())

	require.NoError(t, h.pipeline.OnDamageResponse(scripting.DamageResponse{
		Callback: dmg.Callback,
		Damage:   7,
		Kind:     combat.DamagePhysical,
		Crit:     true,
	}))

	assert.Equal(t, []string{"dealt 7 physical"}, h.deliver.msgs[h.alice])
	assert.Equal(t, []string{"apply_damage", "apply_condition"}, h.sink.names())
	assert.Empty(t, sb.Pending())

	err := h.pipeline.OnDamageResponse(scripting.DamageResponse{Callback: dmg.Callback})
	assert.ErrorIs(t, err, scripting.ErrUnknownCallback)
}

func TestOnDamageResponse_UnknownCallbackLogged(t *testing.T) {
	h := newHarness(t, nil)
	err := h.pipeline.OnDamageResponse(scripting.DamageResponse{Callback: "missing"})
	assert.ErrorIs(t, err, scripting.ErrUnknownCallback)
	assert.Equal(t, 1, h.logs.FilterMessage("scripting: damage response for unknown callback").Len())
}

func TestOnDamageResponse_FaultingContinuationDiscarded(t *testing.T) {
	h := newHarness(t, map[string]string{
		"grumpy": `
			local M = {}
			function M.on_hit(self, action, var)
				action.apply_damage(var.target, { after = function(damage)
					action.send_message(var.source, { message = "lost" })
					error("no")
				end })
			end
			return M
		`,
	})
	ec := h.context("grumpy")
	require.NoError(t, h.pipeline.Invoke(ec, effect.PhaseHit))
	cb := h.sink.events[0].Action.(effect.ApplyDamage).Callback

	require.NoError(t, h.pipeline.OnDamageResponse(scripting.DamageResponse{Callback: cb, Damage: 1}))
	assert.Empty(t, h.deliver.msgs)
	sb, ok := h.bridge.Sandboxes().Get(ec.SandboxID)
	require.True(t, ok)
	assert.Empty(t, sb.Pending())
	assert.Equal(t, 1, h.logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestRelease_DropsIdleSandboxImmediately(t *testing.T) {
	h := newHarness(t, map[string]string{"noop": "return {}"})
	ec := h.context("noop")
	require.NoError(t, h.pipeline.Invoke(ec, effect.PhaseUse))
	h.pipeline.Release(ec.SandboxID)
	_, ok := h.bridge.Sandboxes().Get(ec.SandboxID)
	assert.False(t, ok)
	h.pipeline.Release(ec.SandboxID)
}

func TestRelease_KeepsSandboxUntilCallbackResolves(t *testing.T) {
	h := newHarness(t, map[string]string{"bleeder": continuationScript})
	ec := h.context("bleeder")
	require.NoError(t, h.pipeline.Invoke(ec, effect.PhaseHit))
	cb := h.sink.events[0].Action.(effect.ApplyDamage).Callback

	h.pipeline.Release(ec.SandboxID)
	_, ok := h.bridge.Sandboxes().Get(ec.SandboxID)
	require.True(t, ok, "outstanding callback keeps the sandbox resolvable")

	require.NoError(t, h.pipeline.OnDamageResponse(scripting.DamageResponse{Callback: cb, Damage: 2, Kind: combat.DamagePhysical}))
	_, ok = h.bridge.Sandboxes().Get(ec.SandboxID)
	assert.False(t, ok)
	assert.Equal(t, []string{"dealt 2 physical"}, h.deliver.msgs[h.alice])
}

func TestSweep_DropsAbandonedCallbacksAfterTTL(t *testing.T) {
	h := newHarness(t, map[string]string{"bleeder": continuationScript}, harnessOpts{ttl: 3})
	released := h.context("bleeder")
	live := h.context("bleeder")
	require.NoError(t, h.pipeline.Invoke(released, effect.PhaseHit))
	require.NoError(t, h.pipeline.Invoke(live, effect.PhaseHit))
	cb := h.sink.events[0].Action.(effect.ApplyDamage).Callback
	h.pipeline.Release(released.SandboxID)

	assert.Empty(t, h.pipeline.Sweep())
	assert.Empty(t, h.pipeline.Sweep())
	assert.Equal(t, []string{released.SandboxID}, h.pipeline.Sweep())

	_, ok := h.bridge.Sandboxes().Owner(cb)
	assert.False(t, ok)
	assert.ErrorIs(t, h.pipeline.OnDamageResponse(scripting.DamageResponse{Callback: cb}), scripting.ErrUnknownCallback)

	_, ok = h.bridge.Sandboxes().Get(live.SandboxID)
	assert.True(t, ok, "unreleased sandboxes are never swept")
}

func TestProperty_ProcessPreservesQueueOrder(t *testing.T) {
	h := newHarness(t, map[string]string{
		"replay": `
			local M = {}
			function M.on_use(self, action, var)
				for i = 1, #var.source.name do
					local c = string.sub(var.source.name, i, i)
					if c == "n" then
						action.set_distance(var.target, { distance = var.distance.near })
					elseif c == "f" then
						action.set_distance(var.target, { distance = var.distance.far })
					else
						action.combat_log(var.source, var.target, { used = c })
					end
				end
			end
			return M
		`,
	})
	rapid.Check(t, func(rt *rapid.T) {
		plan := rapid.StringMatching(`[nfu]{1,12}`).Draw(rt, "plan")
		c, _ := h.eng.Get(h.alice)
		c.Name = plan
		h.sink.events = nil

		ec := scripting.NewExecutionContext(testTrigger("replay"), h.alice, h.bob)
		if err := h.pipeline.Invoke(ec, effect.PhaseUse); err != nil {
			rt.Fatalf("invoke: %v", err)
		}
		h.pipeline.Release(ec.SandboxID)

		if len(h.sink.events) != len(plan) {
			rt.Fatalf("got %d events for plan %q", len(h.sink.events), plan)
		}
		for i, ev := range h.sink.events {
			var want string
			switch plan[i] {
			case 'n', 'f':
				want = "set_distance"
			default:
				want = "combat_log"
			}
			if got := effect.Name(ev.Action); got != want {
				rt.Fatalf("event %d: got %s, want %s", i, got, want)
			}
		}
		if h.bridge.Sandboxes().Len() != 0 {
			rt.Fatalf("released sandboxes must be dropped")
		}
	})
}

var _ scripting.Deliverer = (*recordingDeliverer)(nil)
