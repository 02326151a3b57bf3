package npc

import (
	"sort"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// RoomSpawn holds the resolved spawn configuration for one NPC template in one room.
//
// Invariant: Max >= 1.
type RoomSpawn struct {
	TemplateID string
	// Max is the population cap: respawn is suppressed when live count >= Max.
	Max int
}

// respawnEntry is a single pending respawn.
type respawnEntry struct {
	templateID string
	roomID     string
	timer      *combat.Countdown
}

// RespawnManager schedules and executes NPC respawns against the combat
// roster. It is advanced by the simulation tick and is not safe for
// concurrent use.
//
// Invariant: entries with zero delay are never queued.
type RespawnManager struct {
	spawns    map[string][]RoomSpawn // roomID → configs
	templates map[string]*Template   // templateID → Template
	pending   []respawnEntry
}

// NewRespawnManager builds a manager from the spawn points declared on
// templates.
//
// Postcondition: Returns a non-nil RespawnManager.
func NewRespawnManager(templates []*Template) *RespawnManager {
	r := &RespawnManager{
		spawns:    make(map[string][]RoomSpawn),
		templates: make(map[string]*Template, len(templates)),
	}
	for _, t := range templates {
		r.templates[t.ID] = t
		for _, sp := range t.Spawns {
			r.spawns[sp.Room] = append(r.spawns[sp.Room], RoomSpawn{TemplateID: t.ID, Max: sp.Count})
		}
	}
	return r
}

// Template returns the template for id.
func (r *RespawnManager) Template(id string) (*Template, bool) {
	t, ok := r.templates[id]
	return t, ok
}

// Rooms returns every room with a spawn configuration, sorted.
func (r *RespawnManager) Rooms() []string {
	out := make([]string, 0, len(r.spawns))
	for room := range r.spawns {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// PopulateRoom spawns instances in roomID until each template reaches its
// cap. It returns the new combatants.
//
// Precondition: eng must not be nil.
func (r *RespawnManager) PopulateRoom(roomID string, eng *combat.Engine) []*combat.Combatant {
	var out []*combat.Combatant
	for _, cfg := range r.spawns[roomID] {
		tmpl, ok := r.templates[cfg.TemplateID]
		if !ok {
			continue
		}
		for i := countInRoom(eng, roomID, cfg.TemplateID); i < cfg.Max; i++ {
			c := tmpl.NewCombatant(roomID)
			eng.Spawn(c)
			out = append(out, c)
		}
	}
	return out
}

// Schedule queues a respawn of templateID in roomID after the template's
// delay. No-op when the template does not respawn.
func (r *RespawnManager) Schedule(templateID, roomID string) {
	tmpl, ok := r.templates[templateID]
	if !ok {
		return
	}
	delay := tmpl.Delay()
	if delay <= 0 {
		return
	}
	r.pending = append(r.pending, respawnEntry{templateID: templateID, roomID: roomID, timer: combat.NewCountdown(delay)})
}

// Pending returns the number of queued respawns.
func (r *RespawnManager) Pending() int { return len(r.pending) }

// Advance ticks every pending respawn by dt and spawns those that are due,
// respecting the room's population cap.
//
// Postcondition: due entries are consumed whether or not they spawned.
func (r *RespawnManager) Advance(dt time.Duration, eng *combat.Engine) []*combat.Combatant {
	var (
		out    []*combat.Combatant
		future []respawnEntry
	)
	for _, e := range r.pending {
		if !e.timer.Advance(dt) {
			future = append(future, e)
			continue
		}
		tmpl, ok := r.templates[e.templateID]
		if !ok {
			continue
		}
		if countInRoom(eng, e.roomID, e.templateID) >= r.capFor(e.roomID, e.templateID) {
			continue
		}
		c := tmpl.NewCombatant(e.roomID)
		eng.Spawn(c)
		out = append(out, c)
	}
	r.pending = future
	return out
}

// capFor returns the population cap, or 1 for a room without configuration.
func (r *RespawnManager) capFor(roomID, templateID string) int {
	for _, cfg := range r.spawns[roomID] {
		if cfg.TemplateID == templateID {
			return cfg.Max
		}
	}
	return 1
}

func countInRoom(eng *combat.Engine, roomID, templateID string) int {
	n := 0
	for _, c := range eng.InRoom(roomID) {
		if c.TemplateID == templateID {
			n++
		}
	}
	return n
}
