package condition

import (
	"fmt"
	"sort"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// Permanent marks a condition that lasts until removed.
const Permanent time.Duration = -1

// ActiveCondition tracks one applied condition on an entity.
type ActiveCondition struct {
	Def *ConditionDef
	// Source is the entity that applied the condition. Tick effects are
	// issued on its behalf against the holder.
	Source    entity.Handle
	Stacks    int
	Remaining time.Duration // Permanent = until removed
	ticker    *combat.Interval
}

// Tick reports how many Use phases a condition owes after one Advance.
type Tick struct {
	Condition *ActiveCondition
	Count     int
}

// ActiveSet tracks all conditions currently applied to one combatant.
// It is not safe for concurrent use; the caller must serialise access.
type ActiveSet struct {
	conditions map[string]*ActiveCondition
}

// NewActiveSet creates an empty ActiveSet.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{conditions: make(map[string]*ActiveCondition)}
}

// Apply adds or refreshes a condition. A zero duration means the
// definition's default; a definition without one is permanent.
//
// Precondition: def must not be nil.
// Postcondition: Has(def.ID) is true; stacks are incremented on re-apply
// (capped at MaxStacks, always 1 when unstackable); Remaining becomes the
// longer of the old and new durations. Reports whether the condition is new.
func (s *ActiveSet) Apply(def *ConditionDef, source entity.Handle, stacks int, duration time.Duration) (bool, error) {
	if def == nil {
		return false, fmt.Errorf("Apply: def must not be nil")
	}
	if stacks < 1 {
		stacks = 1
	}
	if duration == 0 {
		duration = def.Duration
	}
	if duration <= 0 {
		duration = Permanent
	}

	if existing, ok := s.conditions[def.ID]; ok {
		if def.MaxStacks > 0 {
			existing.Stacks = min(existing.Stacks+stacks, def.MaxStacks)
		}
		if existing.Remaining != Permanent && (duration == Permanent || duration > existing.Remaining) {
			existing.Remaining = duration
		}
		existing.Source = source
		return false, nil
	}

	effective := 1
	if def.MaxStacks > 0 {
		effective = min(stacks, def.MaxStacks)
	}
	ac := &ActiveCondition{Def: def, Source: source, Stacks: effective, Remaining: duration}
	if def.TickInterval > 0 {
		ac.ticker = combat.NewInterval(def.TickInterval)
	}
	s.conditions[def.ID] = ac
	return true, nil
}

// Remove deletes the condition with the given ID from the set.
//
// Postcondition: Has(id) is false.
func (s *ActiveSet) Remove(id string) (*ActiveCondition, bool) {
	ac, ok := s.conditions[id]
	if ok {
		delete(s.conditions, id)
	}
	return ac, ok
}

// Advance moves every condition forward by dt. It returns, in id order,
// the ticks owed and the conditions that expired. Ticks that fall due on
// the expiring call are still reported.
//
// Postcondition: for every expired condition, Has(id) is false.
func (s *ActiveSet) Advance(dt time.Duration) ([]Tick, []*ActiveCondition) {
	var (
		ticks   []Tick
		expired []*ActiveCondition
	)
	for _, ac := range s.All() {
		if ac.ticker != nil {
			if n := ac.ticker.Advance(dt); n > 0 {
				ticks = append(ticks, Tick{Condition: ac, Count: n})
			}
		}
		if ac.Remaining == Permanent {
			continue
		}
		ac.Remaining -= dt
		if ac.Remaining <= 0 {
			ac.Remaining = 0
			expired = append(expired, ac)
			delete(s.conditions, ac.Def.ID)
		}
	}
	return ticks, expired
}

// Has reports whether the condition with id is currently active.
func (s *ActiveSet) Has(id string) bool {
	_, ok := s.conditions[id]
	return ok
}

// Get returns the active condition with id.
func (s *ActiveSet) Get(id string) (*ActiveCondition, bool) {
	ac, ok := s.conditions[id]
	return ac, ok
}

// Stacks returns the current stack count for condition id, or 0 if not present.
func (s *ActiveSet) Stacks(id string) int {
	if ac, ok := s.conditions[id]; ok {
		return ac.Stacks
	}
	return 0
}

// Len returns the number of active conditions.
func (s *ActiveSet) Len() int { return len(s.conditions) }

// All returns the active conditions sorted by id. The slice is a new
// allocation but the pointed-to values are shared.
func (s *ActiveSet) All() []*ActiveCondition {
	out := make([]*ActiveCondition, 0, len(s.conditions))
	for _, ac := range s.conditions {
		out = append(out, ac)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Def.ID < out[j].Def.ID })
	return out
}
