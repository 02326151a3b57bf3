package gameserver

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// runSkill drives one skill use through its phases: Init, Use, the
// resolved outcome, End. The context is released afterwards; outstanding
// callbacks keep its sandbox alive.
//
// A use validated earlier in the tick is dropped when its link is gone by
// the time it runs: the actor or target died, despawned, or the actor is
// now fighting someone else.
func (s *Simulation) runSkill(u SkillUsed) {
	actor, ok := s.engine.Get(u.Actor)
	if !ok {
		return
	}
	if reason := staleUse(actor, u, s.engine); reason != "" {
		s.logger.Debug("skill use dropped",
			zap.String("skill", u.Skill.ID),
			zap.String("actor", actor.Name),
			zap.String("reason", reason),
		)
		return
	}
	trig := u.Skill.Trigger()
	ec := scripting.NewExecutionContext(trig, u.Actor, u.Target)
	defer s.pipeline.Release(ec.SandboxID)

	s.invoke(ec, effect.PhaseInit)
	s.invoke(ec, effect.PhaseUse)

	phase := effect.PhaseMiss
	if defender, ok := s.engine.Get(u.Target); ok && !defender.IsDead() {
		res := combat.ResolveHit(actor.Effective(), trig.Stat, defender.Effective(),
			defender.Guard(s.settings.GuardBonus), s.settings.Rules, s.roller)
		phase = outcomePhase(res.Outcome)
		s.logger.Debug("hit resolved",
			zap.String("skill", trig.ID),
			zap.String("attacker", actor.Name),
			zap.String("defender", defender.Name),
			zap.Stringer("outcome", res.Outcome),
			zap.Int("quality", res.Quality),
			zap.Int("dodge", res.DodgeThreshold),
			zap.Int("block", res.BlockThreshold),
		)
	}
	s.invoke(ec, phase)
	s.invoke(ec, effect.PhaseEnd)
}

func staleUse(actor *combat.Combatant, u SkillUsed, eng *combat.Engine) string {
	switch {
	case actor.IsDead():
		return "actor dead"
	case actor.Engagement == nil:
		return "actor not engaged"
	case actor.Engagement.Target != u.Target:
		return "actor engaged elsewhere"
	}
	if target, ok := eng.Get(u.Target); !ok || target.IsDead() {
		return "target gone"
	}
	return ""
}

func outcomePhase(o combat.HitOutcome) effect.Phase {
	switch o {
	case combat.Dodged:
		return effect.PhaseDodge
	case combat.Blocked:
		return effect.PhaseBlock
	default:
		return effect.PhaseHit
	}
}

func (s *Simulation) invoke(ec *scripting.ExecutionContext, phase effect.Phase) {
	if err := s.pipeline.Invoke(ec, phase); err != nil {
		s.logger.Error("pipeline invoke failed",
			zap.String("sandbox", ec.SandboxID),
			zap.Stringer("phase", phase),
			zap.Error(err),
		)
	}
}

// apply is the host-side consumer of one combat event.
func (s *Simulation) apply(ev scripting.CombatEvent) {
	switch a := ev.Action.(type) {
	case effect.ApplyDamage:
		s.applyDamage(ev, a)
	case effect.ApplyCondition:
		s.applyCondition(ev, a)
	case effect.SetDistance:
		s.linkChange(a.Target, "set_distance", s.engine.SetDistance(a.Target, a.Distance))
	case effect.SetApproach:
		s.linkChange(a.Target, "set_approach", s.engine.SetApproach(a.Target, a.Approach))
	case effect.AddStatModifier:
		if c, ok := s.engine.Get(a.Target); ok {
			c.AddModifier(combat.Modifier{ID: a.ModifierID, Stat: a.Stat, Amount: a.Amount, Source: ev.Trigger.ID})
		}
	case effect.RemoveStatModifier:
		if c, ok := s.engine.Get(a.Target); ok {
			c.RemoveModifier(a.ModifierID)
		}
	case effect.CombatLog:
		s.log.record(s.tick, ev.SandboxID, ev.Trigger, a.Source, a.Target, a.Entry)
	case effect.SendMessage:
		_ = s.sessions.Deliver(a.Target, a.Text)
	default:
		panic(fmt.Sprintf("gameserver.apply: unhandled action %T", ev.Action))
	}
}

func (s *Simulation) linkChange(h entity.Handle, op string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, combat.ErrNotEngaged), errors.Is(err, combat.ErrStaleHandle):
		s.logger.Debug("link change ignored", zap.String("op", op), zap.Stringer("target", h), zap.Error(err))
	default:
		s.logger.Error("link change failed", zap.String("op", op), zap.Stringer("target", h), zap.Error(err))
	}
}

// applyDamage rolls and applies damage, logs it, answers any waiting
// continuation and handles death.
func (s *Simulation) applyDamage(ev scripting.CombatEvent, a effect.ApplyDamage) {
	target, ok := s.engine.Get(a.Target)
	if !ok || target.IsDead() {
		s.logger.Debug("damage target gone", zap.Stringer("target", a.Target), zap.String("sandbox", ev.SandboxID))
		return
	}
	roll := a.Roll
	if roll.Raw == "" {
		roll = ev.Trigger.Roll
	}
	if roll.Raw == "" {
		s.logger.Warn("apply_damage without a damage roll", zap.String("trigger", ev.Trigger.ID))
		return
	}
	kind := a.Kind
	if kind == "" {
		kind = ev.Trigger.DamageKind
	}
	if kind == "" {
		kind = combat.DamagePhysical
	}
	var attacker combat.Stats
	if src, ok := s.engine.Get(ev.Source); ok {
		attacker = src.Effective()
	}

	res := combat.ComputeDamage(combat.DamageInput{
		Roll:       roll,
		Attacker:   attacker,
		Stat:       ev.Trigger.Stat,
		Kind:       kind,
		Difficulty: ev.Trigger.Difficulty,
		Defender:   target.Effective(),
	}, s.settings.Rules, s.roller)
	target.TakeDamage(res.Final)

	s.log.record(s.tick, ev.SandboxID, ev.Trigger, ev.Source, target.Handle, effect.LogEntry{
		Kind:       effect.LogDamaged,
		Damage:     res.Final,
		DamageKind: kind,
		Crit:       res.Crit,
	})
	if target.IsDead() {
		s.kill(target)
	}
	if a.Callback != "" {
		_ = s.pipeline.OnDamageResponse(scripting.DamageResponse{
			Callback: a.Callback,
			Damage:   res.Final,
			Kind:     kind,
			Crit:     res.Crit,
		})
	}
}

// kill handles a combatant reaching zero health. Both sides of the link
// and the opponent's queued attack are cleared in the same pass.
func (s *Simulation) kill(victim *combat.Combatant) {
	room := victim.RoomID
	s.disengage(victim)
	victim.ClearCombat()
	s.clearConditions(victim, false)
	s.announce(room, victim.Handle, fmt.Sprintf("%s dies.", victim.Name))
	s.logger.Info("combatant died", zap.String("name", victim.Name), zap.Stringer("kind", victim.Kind), zap.String("room", room))

	if !victim.IsPlayer() {
		s.engine.Despawn(victim.Handle)
		if victim.TemplateID != "" {
			s.respawns.Schedule(victim.TemplateID, room)
		}
		return
	}
	for _, id := range victim.ModifierIDs() {
		victim.RemoveModifier(id)
	}
	victim.Cooldowns.Clear()
	victim.Block.Clear()
	victim.Dodge.Clear()
	victim.RoomID = s.settings.RespawnRoom
	victim.Restore()
	_ = s.sessions.Deliver(victim.Handle, fmt.Sprintf("You have died. You awaken in %s.", victim.RoomID))
}

// disengage drops c's link and the partner's queued attack.
func (s *Simulation) disengage(c *combat.Combatant) {
	partner, ok := s.engine.Disengage(c.Handle)
	if !ok {
		return
	}
	if p, ok := s.engine.Get(partner); ok && p.Pacing != nil {
		p.Pacing.Queued = nil
	}
}

func (s *Simulation) activeSet(h entity.Handle) *condition.ActiveSet {
	set, ok := s.active[h]
	if !ok {
		set = condition.NewActiveSet()
		s.active[h] = set
	}
	return set
}

// applyCondition applies or refreshes a condition. A new condition gets an
// execution context that lives until the condition ends.
func (s *Simulation) applyCondition(ev scripting.CombatEvent, a effect.ApplyCondition) {
	def, ok := s.conditions.Get(a.ConditionID)
	if !ok {
		s.logger.Warn("unknown condition", zap.String("condition", a.ConditionID), zap.String("trigger", ev.Trigger.ID))
		return
	}
	holder, ok := s.engine.Get(a.Target)
	if !ok || holder.IsDead() {
		return
	}
	set := s.activeSet(holder.Handle)
	isNew, err := set.Apply(def, ev.Source, 1, a.Duration)
	if err != nil {
		s.logger.Error("applying condition", zap.String("condition", def.ID), zap.Error(err))
		return
	}
	ac, _ := set.Get(def.ID)
	for _, m := range ac.Modifiers() {
		holder.AddModifier(m)
	}
	s.log.record(s.tick, ev.SandboxID, ev.Trigger, ev.Source, holder.Handle, effect.LogEntry{
		Kind:        effect.LogConditionApplied,
		Message:     fmt.Sprintf("%s is afflicted by %s.", holder.Name, def.Name),
		ConditionID: def.ID,
	})
	if !isNew {
		return
	}
	ec := scripting.NewExecutionContext(def.Trigger(), ev.Source, holder.Handle)
	s.condCtx[condKey{holder: holder.Handle, id: def.ID}] = ec
	s.invoke(ec, effect.PhaseInit)
}

// advanceConditions runs owed Use phases and ends expired conditions, in
// handle order.
func (s *Simulation) advanceConditions(dt time.Duration) {
	holders := make([]entity.Handle, 0, len(s.active))
	for h := range s.active {
		holders = append(holders, h)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].Index < holders[j].Index })

	for _, h := range holders {
		set := s.active[h]
		holder, ok := s.engine.Get(h)
		if !ok {
			s.dropConditions(h)
			continue
		}
		ticks, expired := set.Advance(dt)
		for _, t := range ticks {
			ec := s.condCtx[condKey{holder: h, id: t.Condition.Def.ID}]
			if ec == nil {
				continue
			}
			for i := 0; i < t.Count; i++ {
				s.invoke(ec, effect.PhaseUse)
			}
		}
		for _, ac := range expired {
			s.endCondition(holder, ac, true)
		}
		if set.Len() == 0 {
			delete(s.active, h)
		}
	}
}

// endCondition strips the condition's modifiers and releases its context.
// With runEnd the End phase fires first and a removal entry is logged.
func (s *Simulation) endCondition(holder *combat.Combatant, ac *condition.ActiveCondition, runEnd bool) {
	for _, m := range ac.Modifiers() {
		holder.RemoveModifier(m.ID)
	}
	key := condKey{holder: holder.Handle, id: ac.Def.ID}
	ec := s.condCtx[key]
	delete(s.condCtx, key)
	if ec != nil {
		if runEnd {
			s.invoke(ec, effect.PhaseEnd)
		}
		s.pipeline.Release(ec.SandboxID)
	}
	if runEnd {
		s.log.record(s.tick, sandboxOf(ec), ac.Def.Trigger(), ac.Source, holder.Handle, effect.LogEntry{
			Kind:        effect.LogConditionRemoved,
			Message:     fmt.Sprintf("%s is no longer afflicted by %s.", holder.Name, ac.Def.Name),
			ConditionID: ac.Def.ID,
		})
	}
}

// clearConditions removes every condition on c.
func (s *Simulation) clearConditions(c *combat.Combatant, runEnd bool) {
	set, ok := s.active[c.Handle]
	if !ok {
		return
	}
	for _, ac := range set.All() {
		set.Remove(ac.Def.ID)
		s.endCondition(c, ac, runEnd)
	}
	delete(s.active, c.Handle)
}

// dropConditions discards the conditions of a holder that left the roster.
func (s *Simulation) dropConditions(h entity.Handle) {
	if set, ok := s.active[h]; ok {
		for _, ac := range set.All() {
			key := condKey{holder: h, id: ac.Def.ID}
			if ec := s.condCtx[key]; ec != nil {
				s.pipeline.Release(ec.SandboxID)
			}
			delete(s.condCtx, key)
		}
	}
	delete(s.active, h)
}

func sandboxOf(ec *scripting.ExecutionContext) string {
	if ec == nil {
		return ""
	}
	return ec.SandboxID
}
