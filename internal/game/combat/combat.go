// Package combat implements the combat numerics and per-combatant state for
// the simulation: stats, hit and damage resolution, cooldowns, pacing,
// engagement links and the combatant roster.
package combat

import (
	"sort"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// Kind distinguishes player combatants from NPC combatants.
type Kind int

const (
	KindPlayer Kind = iota
	KindNPC
)

// String returns "player" or "npc".
func (k Kind) String() string {
	if k == KindNPC {
		return "npc"
	}
	return "player"
}

// Modifier is a temporary adjustment to one stat. Source names the skill or
// condition that installed it.
type Modifier struct {
	ID     string
	Stat   StatKind
	Amount int
	Source string
}

// Stance is a manual block or dodge preparation. Active is the short-lived
// marker read by hit resolution; Cooldown gates the next preparation.
type Stance struct {
	Active   *Countdown
	Cooldown *Countdown
}

// Ready reports whether the stance may be prepared again.
func (s *Stance) Ready() bool { return s.Cooldown == nil }

// Raised reports whether the marker is currently up.
func (s *Stance) Raised() bool { return s.Active != nil }

// Prepare installs the marker for hold and the cooldown for cooldown.
//
// Precondition: Ready() is true.
func (s *Stance) Prepare(hold, cooldown time.Duration) {
	s.Active = NewCountdown(hold)
	s.Cooldown = NewCountdown(cooldown)
}

// Advance ticks both countdowns and drops whichever elapsed.
func (s *Stance) Advance(dt time.Duration) {
	if s.Active != nil && s.Active.Advance(dt) {
		s.Active = nil
	}
	if s.Cooldown != nil && s.Cooldown.Advance(dt) {
		s.Cooldown = nil
	}
}

// Clear removes both the marker and the cooldown.
func (s *Stance) Clear() {
	s.Active = nil
	s.Cooldown = nil
}

// Combatant is one participant, player or NPC. Components that may be absent
// are pointers; their presence is the state.
type Combatant struct {
	Handle  entity.Handle
	Name    string
	Kind    Kind
	Class   string
	Mastery int
	RoomID  string
	// TemplateID is the NPC template this combatant was spawned from; empty
	// for players.
	TemplateID string
	// Skills lists the skill ids this combatant may use. Empty means "use the
	// class book".
	Skills []string

	Base       Stats
	Modifiers  map[string]Modifier
	Cooldowns  *Cooldowns
	Engagement *Engagement
	Pacing     *Pacing
	Regen      *Interval
	Block      Stance
	Dodge      Stance
}

// NewCombatant returns a combatant at full health and vigor.
func NewCombatant(name string, kind Kind, stats Stats) *Combatant {
	c := &Combatant{
		Name:      name,
		Kind:      kind,
		Base:      stats,
		Modifiers: make(map[string]Modifier),
		Cooldowns: NewCooldowns(),
	}
	c.Restore()
	return c
}

// IsPlayer reports whether this combatant is a player character.
func (c *Combatant) IsPlayer() bool { return c.Kind == KindPlayer }

// Health returns current health.
func (c *Combatant) Health() int { return c.Base.Status.Health }

// IsDead reports whether health has reached zero.
func (c *Combatant) IsDead() bool { return c.Base.Status.Health <= 0 }

// Restore refills health and vigor to their maxima.
func (c *Combatant) Restore() {
	eff := c.Effective()
	c.Base.Status.Health = eff.MaxHealth()
	c.Base.Status.Vigor = eff.MaxVigor()
}

// TakeDamage reduces health by dmg, saturating at zero, and returns the new
// health.
//
// Postcondition: Health() >= 0.
func (c *Combatant) TakeDamage(dmg int) int {
	c.Base.Status.Health = ApplyDamage(c.Base.Status.Health, dmg)
	return c.Base.Status.Health
}

// Spend deducts cost vigor. Returns false without change when vigor is short.
func (c *Combatant) Spend(cost int) bool {
	if cost <= 0 {
		return true
	}
	if c.Base.Status.Vigor < cost {
		return false
	}
	c.Base.Status.Vigor -= cost
	return true
}

// RegenVigor adds vigor_regen, capped at max vigor.
func (c *Combatant) RegenVigor() {
	eff := c.Effective()
	c.Base.Status.Vigor = min(c.Base.Status.Vigor+eff.Status.VigorRegen, eff.MaxVigor())
}

// Effective returns base stats with every modifier applied.
func (c *Combatant) Effective() Stats {
	s := c.Base
	for _, m := range c.Modifiers {
		if m.Stat.Modifiable() {
			s = s.With(m.Stat, m.Amount)
		}
	}
	return s
}

// AddModifier installs m, replacing any modifier with the same id.
func (c *Combatant) AddModifier(m Modifier) {
	if c.Modifiers == nil {
		c.Modifiers = make(map[string]Modifier)
	}
	c.Modifiers[m.ID] = m
}

// RemoveModifier drops the modifier with id, reporting whether it existed.
func (c *Combatant) RemoveModifier(id string) bool {
	if _, ok := c.Modifiers[id]; !ok {
		return false
	}
	delete(c.Modifiers, id)
	return true
}

// ModifierIDs returns modifier ids in sorted order.
func (c *Combatant) ModifierIDs() []string {
	ids := make([]string, 0, len(c.Modifiers))
	for id := range c.Modifiers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Guard returns the hit-resolution bonus granted by raised stances.
func (c *Combatant) Guard(bonus int) Guard {
	var g Guard
	if c.Block.Raised() {
		g.Block = bonus
	}
	if c.Dodge.Raised() {
		g.Dodge = bonus
	}
	return g
}

// ClearCombat drops the engagement link, pacing and any queued attack. The
// opponent's side is the roster's job.
func (c *Combatant) ClearCombat() {
	c.Engagement = nil
	c.Pacing = nil
}
