package gameserver

import (
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// SkillUsed is emitted by the combat handler once a command has passed
// every check. It drives the phase sequence of one skill use.
type SkillUsed struct {
	Actor  entity.Handle
	Target entity.Handle
	Skill  *skill.Def
}

// eventQueue buffers combat events until the simulation drains them.
// Emit only appends, so a consumer running mid-drain never re-enters
// another consumer.
type eventQueue struct {
	items []scripting.CombatEvent
	head  int
}

// Emit implements scripting.EventSink.
func (q *eventQueue) Emit(ev scripting.CombatEvent) {
	q.items = append(q.items, ev)
}

func (q *eventQueue) pop() (scripting.CombatEvent, bool) {
	if q.head >= len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return scripting.CombatEvent{}, false
	}
	ev := q.items[q.head]
	q.items[q.head] = scripting.CombatEvent{}
	q.head++
	return ev, true
}

// Len returns the number of undrained events.
func (q *eventQueue) Len() int { return len(q.items) - q.head }

var _ scripting.EventSink = (*eventQueue)(nil)
