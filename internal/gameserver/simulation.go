package gameserver

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

// snapshotEvery is the number of ticks between player snapshot jobs.
const snapshotEvery = 100

// Deps are the collaborators a Simulation is built from.
type Deps struct {
	Engine     *combat.Engine
	Skills     *skill.Registry
	Classes    *skill.Book
	Conditions *condition.Registry
	Respawns   *npc.RespawnManager
	Sessions   *session.Manager
	Bridge     *scripting.Bridge
	Roller     dice.Roller
	// Writer persists the combat log and snapshots; nil disables persistence.
	Writer      *postgres.AsyncWriter
	CallbackTTL int
}

type inbound struct {
	cmd    command.Combat
	status bool
	join   *joinRequest
	leave  bool
}

type joinRequest struct {
	c    *combat.Combatant
	sess *session.BridgeEntity
	done chan error
}

type condKey struct {
	holder entity.Handle
	id     string
}

// Simulation owns all combat state and advances it one tick at a time.
// Only the Submit* methods may be called from other goroutines.
type Simulation struct {
	engine     *combat.Engine
	skills     *skill.Registry
	conditions *condition.Registry
	respawns   *npc.RespawnManager
	sessions   *session.Manager
	roller     dice.Roller
	writer     *postgres.AsyncWriter
	settings   Settings
	logger     *zap.Logger

	handler  *CombatHandler
	pipeline *scripting.Pipeline
	events   *eventQueue
	log      *combatLog
	active   map[entity.Handle]*condition.ActiveSet
	condCtx  map[condKey]*scripting.ExecutionContext
	inbox    chan inbound
	tick     uint64
}

// NewSimulation wires a Simulation.
//
// Precondition: every Deps field except Writer must be non-nil; logger must be non-nil.
// Postcondition: Returns a Simulation at tick 0.
func NewSimulation(d Deps, settings Settings, logger *zap.Logger) *Simulation {
	if d.Engine == nil || d.Skills == nil || d.Classes == nil || d.Conditions == nil ||
		d.Respawns == nil || d.Sessions == nil || d.Bridge == nil || d.Roller == nil {
		panic("gameserver.NewSimulation: missing dependency")
	}
	if logger == nil {
		panic("gameserver.NewSimulation: logger must not be nil")
	}
	buf := settings.CommandBuffer
	if buf <= 0 {
		buf = DefaultSettings().CommandBuffer
	}
	s := &Simulation{
		engine:     d.Engine,
		skills:     d.Skills,
		conditions: d.Conditions,
		respawns:   d.Respawns,
		sessions:   d.Sessions,
		roller:     d.Roller,
		writer:     d.Writer,
		settings:   settings,
		logger:     logger,
		handler:    NewCombatHandler(d.Engine, d.Skills, d.Classes, settings, logger),
		events:     &eventQueue{},
		active:     make(map[entity.Handle]*condition.ActiveSet),
		condCtx:    make(map[condKey]*scripting.ExecutionContext),
		inbox:      make(chan inbound, buf),
	}
	s.pipeline = scripting.NewPipeline(d.Bridge, s.events, d.Sessions, d.CallbackTTL, logger)
	s.log = &combatLog{
		engine:   d.Engine,
		sessions: d.Sessions,
		logger:   observability.CombatLogger(logger),
		persist:  d.Writer != nil,
	}
	return s
}

// Engine returns the combatant roster. Callers outside the tick goroutine
// must not touch it once the ticker runs.
func (s *Simulation) Engine() *combat.Engine { return s.engine }

// Handler returns the combat command handler.
func (s *Simulation) Handler() *CombatHandler { return s.handler }

// Pipeline returns the scripting action pipeline.
func (s *Simulation) Pipeline() *scripting.Pipeline { return s.pipeline }

// Ticks returns the number of completed ticks.
func (s *Simulation) Ticks() uint64 { return s.tick }

// Conditions returns h's active condition set, or nil when it has none.
func (s *Simulation) Conditions(h entity.Handle) *condition.ActiveSet { return s.active[h] }

// Populate spawns every room's NPCs up to their caps.
//
// Postcondition: returns the number of combatants spawned.
func (s *Simulation) Populate() int {
	n := 0
	for _, room := range s.respawns.Rooms() {
		n += len(s.respawns.PopulateRoom(room, s.engine))
	}
	s.logger.Info("rooms populated", zap.Int("npcs", n), zap.Int("rooms", len(s.respawns.Rooms())))
	return n
}

// Join spawns a player combatant and attaches its session. sess may be nil.
//
// Precondition: c must be a player combatant.
func (s *Simulation) Join(c *combat.Combatant, sess *session.BridgeEntity) (entity.Handle, error) {
	if c == nil || c.Kind != combat.KindPlayer {
		return entity.Handle{}, fmt.Errorf("join: combatant must be a player")
	}
	h := s.engine.Spawn(c)
	if sess != nil {
		if err := s.sessions.Attach(h, sess); err != nil {
			s.engine.Despawn(h)
			return entity.Handle{}, fmt.Errorf("join %s: %w", c.Name, err)
		}
	}
	s.logger.Info("player joined", zap.String("name", c.Name), zap.Stringer("handle", h), zap.String("room", c.RoomID))
	return h, nil
}

// Leave removes a player from the roster and detaches its session.
func (s *Simulation) Leave(h entity.Handle) {
	c, ok := s.engine.Get(h)
	if !ok {
		return
	}
	s.disengage(c)
	s.clearConditions(c, false)
	s.engine.Despawn(h)
	s.sessions.Detach(h)
	s.logger.Info("player left", zap.String("name", c.Name))
}

// Submit queues cmd for the next tick. Safe for concurrent use.
//
// Postcondition: returns false without queuing when the inbox is full.
func (s *Simulation) Submit(cmd command.Combat) bool {
	select {
	case s.inbox <- inbound{cmd: cmd}:
		return true
	default:
		s.logger.Warn("command inbox full", zap.Stringer("actor", cmd.Actor), zap.Stringer("kind", cmd.Kind))
		return false
	}
}

// SubmitStatus asks for a status line to be delivered to h on the next tick.
func (s *Simulation) SubmitStatus(h entity.Handle) bool {
	select {
	case s.inbox <- inbound{cmd: command.Combat{Actor: h}, status: true}:
		return true
	default:
		return false
	}
}

// SubmitJoin asks for c to join on the next tick. The returned channel
// yields Join's error once the tick has processed the request. Safe for
// concurrent use.
//
// Postcondition: c.Handle is valid once the channel yields nil.
func (s *Simulation) SubmitJoin(c *combat.Combatant, sess *session.BridgeEntity) <-chan error {
	done := make(chan error, 1)
	select {
	case s.inbox <- inbound{join: &joinRequest{c: c, sess: sess, done: done}}:
	default:
		done <- fmt.Errorf("join %s: command inbox full", c.Name)
	}
	return done
}

// SubmitLeave asks for h to leave on the next tick. Safe for concurrent use.
func (s *Simulation) SubmitLeave(h entity.Handle) bool {
	select {
	case s.inbox <- inbound{cmd: command.Combat{Actor: h}, leave: true}:
		return true
	default:
		return false
	}
}

// Handle runs cmd immediately and delivers the reply or user error to the
// actor. Consistency faults are logged and returned.
func (s *Simulation) Handle(cmd command.Combat) (string, error) {
	reply, err := s.handler.Handle(cmd)
	switch {
	case err == nil:
		if reply != "" {
			_ = s.sessions.Deliver(cmd.Actor, reply)
		}
	case IsUserError(err):
		_ = s.sessions.Deliver(cmd.Actor, err.Error())
	default:
		s.logger.Error("combat command aborted",
			zap.Stringer("kind", cmd.Kind),
			zap.Stringer("actor", cmd.Actor),
			zap.Error(err),
		)
	}
	return reply, err
}

// Tick advances the simulation by dt, running every system once in a
// fixed order.
func (s *Simulation) Tick(dt time.Duration) {
	s.consumeCompletions()
	s.drainInbox()
	s.advancePacing(dt)
	s.advanceTimers(dt)
	s.advanceConditions(dt)
	s.advanceRespawns(dt)
	s.runNPCs()
	s.drain()
	s.pipeline.Sweep()
	s.persist()
	s.tick++
}

func (s *Simulation) drainInbox() {
	for {
		select {
		case in := <-s.inbox:
			switch {
			case in.join != nil:
				_, err := s.Join(in.join.c, in.join.sess)
				in.join.done <- err
			case in.leave:
				s.Leave(in.cmd.Actor)
			case in.status:
				s.deliverStatus(in.cmd.Actor)
			default:
				_, _ = s.Handle(in.cmd)
			}
		default:
			return
		}
	}
}

func (s *Simulation) deliverStatus(h entity.Handle) {
	c, ok := s.engine.Get(h)
	if !ok {
		return
	}
	eff := c.Effective()
	line := fmt.Sprintf("%s: health %d/%d, vigor %d/%d, room %s", c.Name,
		c.Health(), eff.MaxHealth(), c.Base.Status.Vigor, eff.MaxVigor(), c.RoomID)
	if o, err := s.engine.Opponent(h); err == nil {
		line += fmt.Sprintf(", fighting %s (%s, %s)", o.Name, c.Engagement.Distance, c.Engagement.Approach)
	}
	if set := s.active[h]; set != nil {
		for _, ac := range set.All() {
			line += fmt.Sprintf(", %s x%d", ac.Def.Name, ac.Stacks)
		}
	}
	_ = s.sessions.Deliver(h, line)
}

// advancePacing expires attack pacing. An expired marker resubmits its
// queued attack, otherwise the combatant is told it may act again.
func (s *Simulation) advancePacing(dt time.Duration) {
	for _, c := range s.engine.All() {
		if c.Pacing == nil || !c.Pacing.Timer.Advance(dt) {
			continue
		}
		q := c.Pacing.Queued
		c.Pacing = nil
		if q == nil {
			_ = s.sessions.Deliver(c.Handle, msgMayActAgain)
			continue
		}
		_, _ = s.Handle(command.Combat{Kind: command.UseSkill, Actor: c.Handle, Skill: q.Skill, Target: q.Target})
	}
}

// advanceTimers runs regeneration, stance markers and cooldowns.
func (s *Simulation) advanceTimers(dt time.Duration) {
	for _, c := range s.engine.All() {
		if s.settings.RegenInterval > 0 {
			if c.Regen == nil {
				c.Regen = combat.NewInterval(s.settings.RegenInterval)
			}
			for n := c.Regen.Advance(dt); n > 0; n-- {
				c.RegenVigor()
			}
		}
		c.Block.Advance(dt)
		c.Dodge.Advance(dt)
		c.Cooldowns.Advance(dt)
	}
}

func (s *Simulation) advanceRespawns(dt time.Duration) {
	for _, c := range s.respawns.Advance(dt, s.engine) {
		s.announce(c.RoomID, c.Handle, fmt.Sprintf("%s appears.", c.Name))
		s.logger.Debug("npc respawned", zap.String("name", c.Name), zap.String("room", c.RoomID))
	}
}

// runNPCs lets every engaged, idle NPC swing back with the first skill it
// can afford.
func (s *Simulation) runNPCs() {
	for _, c := range s.engine.All() {
		if c.Kind != combat.KindNPC {
			continue
		}
		id, ok := npc.Retaliate(c, s.affordable(c))
		if !ok {
			continue
		}
		if _, err := s.handler.Handle(command.Combat{Kind: command.UseSkill, Actor: c.Handle, Skill: id}); err != nil {
			s.logger.Debug("npc action rejected", zap.String("npc", c.Name), zap.String("skill", id), zap.Error(err))
		}
	}
}

func (s *Simulation) affordable(c *combat.Combatant) []string {
	var out []string
	for _, id := range s.handler.Available(c) {
		if def, ok := s.skills.Get(id); ok && def.Cost <= c.Base.Status.Vigor {
			out = append(out, id)
		}
	}
	return out
}

// drain runs each pending skill use and settles the events it produced
// before the next one starts.
func (s *Simulation) drain() {
	for _, u := range s.handler.TakeUsed() {
		s.runSkill(u)
		s.settle()
	}
	s.settle()
}

// settle applies queued combat events until none remain.
func (s *Simulation) settle() {
	for {
		ev, ok := s.events.pop()
		if !ok {
			return
		}
		s.apply(ev)
	}
}

func (s *Simulation) consumeCompletions() {
	if s.writer == nil {
		return
	}
	for _, c := range s.writer.Completions() {
		if c.Err != nil {
			s.logger.Warn("persistence job failed", zap.Uint64("tick", c.Tick), zap.Error(c.Err))
			continue
		}
		s.logger.Debug("persistence job done",
			zap.Uint64("tick", c.Tick),
			zap.Int64("logs", c.Logs),
			zap.Int("snapshots", c.Snapshots),
		)
	}
}

func (s *Simulation) persist() {
	if s.writer == nil {
		return
	}
	job := postgres.Job{Tick: s.tick, Logs: s.log.take()}
	if s.tick%snapshotEvery == 0 {
		job.Snapshots = s.Snapshots()
	}
	if !s.writer.Submit(job) {
		s.log.pending = append(job.Logs, s.log.pending...)
	}
}

// Snapshots returns the persisted view of every player, sorted by name.
func (s *Simulation) Snapshots() []postgres.Snapshot {
	var out []postgres.Snapshot
	for _, c := range s.engine.All() {
		if !c.IsPlayer() {
			continue
		}
		out = append(out, postgres.Snapshot{
			Name:    c.Name,
			Class:   c.Class,
			Mastery: c.Mastery,
			RoomID:  c.RoomID,
			Level:   c.Base.Level,
			Health:  c.Health(),
			Vigor:   c.Base.Status.Vigor,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// announce delivers text to everyone in room except skip.
func (s *Simulation) announce(room string, skip entity.Handle, text string) {
	for _, c := range s.engine.InRoom(room) {
		if c.Handle != skip {
			_ = s.sessions.Deliver(c.Handle, text)
		}
	}
}
