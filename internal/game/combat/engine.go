package combat

import (
	"errors"
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

var (
	// ErrStaleHandle is returned when a handle no longer names a combatant.
	ErrStaleHandle = errors.New("stale combatant handle")
	// ErrNotEngaged is returned when an operation needs an engagement link.
	ErrNotEngaged = errors.New("not in combat")
	// ErrBrokenLink flags an engagement link whose other side is missing or
	// does not point back. It is a consistency fault.
	ErrBrokenLink = errors.New("broken engagement link")
	// ErrSelfTarget is returned when a combatant tries to engage itself.
	ErrSelfTarget = errors.New("cannot engage self")
)

// Engine is the combatant roster. It owns every Combatant and keeps
// engagement links mutually consistent: every call that changes one side of
// a link changes the other side before returning.
//
// Engine is not safe for concurrent use; the simulation tick owns it.
type Engine struct {
	arena *entity.Arena[*Combatant]
}

// NewEngine creates an empty roster.
//
// Postcondition: Returns a non-nil Engine ready for use.
func NewEngine() *Engine {
	return &Engine{arena: entity.NewArena[*Combatant]()}
}

// Spawn adds c to the roster and stamps its handle.
//
// Precondition: c must not be nil.
// Postcondition: Get(c.Handle) returns c.
func (e *Engine) Spawn(c *Combatant) entity.Handle {
	if c == nil {
		panic("combat.Engine.Spawn: combatant must not be nil")
	}
	if c.Cooldowns == nil {
		c.Cooldowns = NewCooldowns()
	}
	if c.Modifiers == nil {
		c.Modifiers = make(map[string]Modifier)
	}
	c.Handle = e.arena.Insert(c)
	return c.Handle
}

// Get returns the combatant for h.
func (e *Engine) Get(h entity.Handle) (*Combatant, bool) {
	return e.arena.Get(h)
}

// Len returns the number of live combatants.
func (e *Engine) Len() int { return e.arena.Len() }

// All returns every combatant in slot order.
func (e *Engine) All() []*Combatant {
	out := make([]*Combatant, 0, e.arena.Len())
	e.arena.Each(func(_ entity.Handle, c *Combatant) { out = append(out, c) })
	return out
}

// InRoom returns the combatants located in roomID, in slot order.
func (e *Engine) InRoom(roomID string) []*Combatant {
	var out []*Combatant
	e.arena.Each(func(_ entity.Handle, c *Combatant) {
		if c.RoomID == roomID {
			out = append(out, c)
		}
	})
	return out
}

// Despawn disengages h and removes it from the roster.
//
// Postcondition: no remaining combatant links to h.
func (e *Engine) Despawn(h entity.Handle) (*Combatant, bool) {
	c, ok := e.arena.Get(h)
	if !ok {
		return nil, false
	}
	e.Disengage(h)
	e.arena.Remove(h)
	return c, true
}

// Engage links attacker and target at dist with the attacker on approach.
// Either side's previous partner is released in the same step. An existing
// mutual link between the two is left untouched.
//
// Postcondition: on nil error, attacker and target link to each other.
func (e *Engine) Engage(attacker, target entity.Handle, dist Distance, approach Approach) error {
	if attacker == target {
		return ErrSelfTarget
	}
	a, ok := e.arena.Get(attacker)
	if !ok {
		return fmt.Errorf("engaging %s: %w", attacker, ErrStaleHandle)
	}
	b, ok := e.arena.Get(target)
	if !ok {
		return fmt.Errorf("engaging %s: %w", target, ErrStaleHandle)
	}
	if a.Engagement != nil && a.Engagement.Target == target &&
		b.Engagement != nil && b.Engagement.Target == attacker {
		return nil
	}
	e.Disengage(attacker)
	e.Disengage(target)
	a.Engagement = &Engagement{Target: target, Distance: dist, Approach: approach}
	b.Engagement = &Engagement{Target: attacker, Distance: dist, Approach: Front}
	return nil
}

// Disengage clears h's link and the partner's link back to h. It returns
// the former partner, if any.
func (e *Engine) Disengage(h entity.Handle) (entity.Handle, bool) {
	c, ok := e.arena.Get(h)
	if !ok || c.Engagement == nil {
		return entity.Handle{}, false
	}
	partner := c.Engagement.Target
	c.Engagement = nil
	if p, ok := e.arena.Get(partner); ok && p.Engagement != nil && p.Engagement.Target == h {
		p.Engagement = nil
	}
	return partner, true
}

// Opponent returns the combatant h is engaged with.
//
// Postcondition: returns ErrNotEngaged when h has no link and ErrBrokenLink
// when the link is not mutual.
func (e *Engine) Opponent(h entity.Handle) (*Combatant, error) {
	c, ok := e.arena.Get(h)
	if !ok {
		return nil, fmt.Errorf("opponent of %s: %w", h, ErrStaleHandle)
	}
	if c.Engagement == nil {
		return nil, ErrNotEngaged
	}
	o, ok := e.arena.Get(c.Engagement.Target)
	if !ok || o.Engagement == nil || o.Engagement.Target != h {
		return nil, fmt.Errorf("%s -> %s: %w", h, c.Engagement.Target, ErrBrokenLink)
	}
	return o, nil
}

// SetDistance sets the distance on both sides of h's link.
func (e *Engine) SetDistance(h entity.Handle, d Distance) error {
	o, err := e.Opponent(h)
	if err != nil {
		return err
	}
	c, _ := e.arena.Get(h)
	c.Engagement.Distance = d
	o.Engagement.Distance = d
	return nil
}

// SetApproach sets the approach on h's own side of the link.
func (e *Engine) SetApproach(h entity.Handle, a Approach) error {
	if _, err := e.Opponent(h); err != nil {
		return err
	}
	c, _ := e.arena.Get(h)
	c.Engagement.Approach = a
	return nil
}

// CheckLinks returns the handles whose engagement links are not mutual.
// A healthy roster returns nil.
func (e *Engine) CheckLinks() []entity.Handle {
	var bad []entity.Handle
	e.arena.Each(func(h entity.Handle, c *Combatant) {
		if c.Engagement == nil {
			return
		}
		o, ok := e.arena.Get(c.Engagement.Target)
		if !ok || o.Engagement == nil || o.Engagement.Target != h || o.Engagement.Distance != c.Engagement.Distance {
			bad = append(bad, h)
		}
	})
	return bad
}
