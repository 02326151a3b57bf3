package scripting

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

const entityTypeName = "skirmish.entity"

// Roster is the read side of the combatant roster the var namespace is
// built from. *combat.Engine satisfies it.
type Roster interface {
	Get(h entity.Handle) (*combat.Combatant, bool)
}

func (b *Bridge) registerEntityType() {
	mt := b.L.NewTypeMetatable(entityTypeName)
	mt.RawSetString("__tostring", b.L.NewFunction(func(L *lua.LState) int {
		h := L.CheckUserData(1).Value.(entity.Handle)
		L.Push(lua.LString("entity(" + h.String() + ")"))
		return 1
	}))
	mt.RawSetString("__eq", b.L.NewFunction(func(L *lua.LState) int {
		a, _ := L.CheckUserData(1).Value.(entity.Handle)
		c, _ := L.CheckUserData(2).Value.(entity.Handle)
		L.Push(lua.LBool(a == c))
		return 1
	}))
	mt.RawSetString("__metatable", lua.LFalse)
}

func (b *Bridge) newEntity(h entity.Handle) *lua.LUserData {
	ud := b.L.NewUserData()
	ud.Value = h
	b.L.SetMetatable(ud, b.L.GetTypeMetatable(entityTypeName))
	return ud
}

// readOnly wraps data in a proxy whose writes raise a Lua error.
func readOnly(L *lua.LState, data *lua.LTable) *lua.LTable {
	proxy := L.NewTable()
	mt := L.NewTable()
	mt.RawSetString("__index", data)
	mt.RawSetString("__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("attempt to modify read-only table")
		return 0
	}))
	mt.RawSetString("__metatable", lua.LFalse)
	L.SetMetatable(proxy, mt)
	return proxy
}

// enumTable maps each name to itself, e.g. var.stat.strength == "strength".
func enumTable(L *lua.LState, names ...string) *lua.LTable {
	t := L.NewTable()
	for _, n := range names {
		t.RawSetString(n, lua.LString(n))
	}
	return readOnly(L, t)
}

// view builds the read-only description of one combatant.
func (b *Bridge) view(h entity.Handle) lua.LValue {
	L := b.L
	c, ok := b.roster.Get(h)
	if !ok {
		return lua.LNil
	}
	eff := c.Effective()
	stats := L.NewTable()
	for _, k := range combat.AllStats {
		stats.RawSetString(string(k), lua.LNumber(eff.Get(k)))
	}
	stats.RawSetString("max_health", lua.LNumber(eff.MaxHealth()))
	stats.RawSetString("max_vigor", lua.LNumber(eff.MaxVigor()))

	t := L.NewTable()
	t.RawSetString("entity", b.newEntity(h))
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("kind", lua.LString(c.Kind.String()))
	t.RawSetString("stats", readOnly(L, stats))
	if c.Engagement != nil {
		t.RawSetString("distance", lua.LString(c.Engagement.Distance))
		t.RawSetString("approach", lua.LString(c.Engagement.Approach))
	}
	return readOnly(L, t)
}

// varNamespace builds the var table for one invocation.
func (b *Bridge) varNamespace(ec *ExecutionContext) *lua.LTable {
	L := b.L
	stats := make([]string, 0, len(combat.AllStats))
	for _, k := range combat.AllStats {
		stats = append(stats, string(k))
	}
	kinds := make([]string, 0, len(combat.AllDamageKinds))
	for _, k := range combat.AllDamageKinds {
		kinds = append(kinds, string(k))
	}
	trig := L.NewTable()
	trig.RawSetString("id", lua.LString(ec.Trigger.ID))
	trig.RawSetString("name", lua.LString(ec.Trigger.Name))
	trig.RawSetString("kind", lua.LString(ec.Trigger.Kind.String()))

	v := L.NewTable()
	v.RawSetString("source", b.view(ec.Source))
	v.RawSetString("target", b.view(ec.Target))
	v.RawSetString("stat", enumTable(L, stats...))
	v.RawSetString("distance", enumTable(L, string(combat.Near), string(combat.Far)))
	v.RawSetString("approach", enumTable(L, string(combat.Front), string(combat.Rear)))
	v.RawSetString("damage_kind", enumTable(L, kinds...))
	v.RawSetString("trigger", readOnly(L, trig))
	return readOnly(L, v)
}

// checkEntity accepts an entity userdata or a view table with an entity
// field at argument n.
func checkEntity(L *lua.LState, n int) entity.Handle {
	v := L.Get(n)
	if tbl, ok := v.(*lua.LTable); ok {
		v = L.GetField(tbl, "entity")
	}
	if ud, ok := v.(*lua.LUserData); ok {
		if h, ok := ud.Value.(entity.Handle); ok {
			return h
		}
	}
	L.ArgError(n, "entity expected")
	return entity.Handle{}
}

func optString(L *lua.LState, opts *lua.LTable, key string) string {
	if opts == nil {
		return ""
	}
	switch v := L.GetField(opts, key).(type) {
	case lua.LString:
		return string(v)
	case *lua.LNilType:
		return ""
	default:
		L.RaiseError("%s: string expected, got %s", key, v.Type().String())
	}
	return ""
}

func optNumber(L *lua.LState, opts *lua.LTable, key string) (float64, bool) {
	if opts == nil {
		return 0, false
	}
	switch v := L.GetField(opts, key).(type) {
	case lua.LNumber:
		return float64(v), true
	case *lua.LNilType:
		return 0, false
	default:
		L.RaiseError("%s: number expected, got %s", key, v.Type().String())
	}
	return 0, false
}

// enqueue appends a to the sandbox queue as userdata.
func (b *Bridge) enqueue(sb *Sandbox, a effect.Action) {
	ud := b.L.NewUserData()
	ud.Value = a
	sb.events.Append(ud)
}

// actionNamespace builds the action table bound to sb. Every function only
// appends to the queue; none touches host state.
func (b *Bridge) actionNamespace(sb *Sandbox) *lua.LTable {
	L := b.L
	t := L.NewTable()
	fns := map[string]lua.LGFunction{
		"apply_damage": func(L *lua.LState) int {
			target := checkEntity(L, 1)
			opts := L.OptTable(2, nil)
			a := effect.ApplyDamage{Target: target}
			if opts != nil {
				switch v := L.GetField(opts, "damage").(type) {
				case lua.LNumber:
					a.Roll = dice.MustParse(strconv.Itoa(int(v)))
				case lua.LString:
					expr, err := dice.Parse(string(v))
					if err != nil {
						L.RaiseError("damage: %s", err.Error())
					}
					a.Roll = expr
				}
				if k := optString(L, opts, "kind"); k != "" {
					kind, err := combat.ParseDamageKind(k)
					if err != nil {
						L.RaiseError("%s", err.Error())
					}
					a.Kind = kind
				}
				if fn, ok := L.GetField(opts, "after").(*lua.LFunction); ok {
					a.Callback = uuid.NewString()
					b.sandboxes.registerCallback(sb, a.Callback, fn)
				}
			}
			b.enqueue(sb, a)
			if a.Callback == "" {
				return 0
			}
			L.Push(lua.LString(a.Callback))
			return 1
		},
		"apply_condition": func(L *lua.LState) int {
			target := checkEntity(L, 1)
			opts := L.CheckTable(2)
			id := optString(L, opts, "id")
			if id == "" {
				L.ArgError(2, "id required")
			}
			secs, _ := optNumber(L, opts, "duration")
			if secs < 0 {
				L.ArgError(2, "duration must be >= 0")
			}
			b.enqueue(sb, effect.ApplyCondition{Target: target, ConditionID: id, Duration: time.Duration(secs * float64(time.Second))})
			return 0
		},
		"set_distance": func(L *lua.LState) int {
			target := checkEntity(L, 1)
			d, err := combat.ParseDistance(optString(L, L.CheckTable(2), "distance"))
			if err != nil {
				L.ArgError(2, err.Error())
			}
			b.enqueue(sb, effect.SetDistance{Target: target, Distance: d})
			return 0
		},
		"set_approach": func(L *lua.LState) int {
			target := checkEntity(L, 1)
			a, err := combat.ParseApproach(optString(L, L.CheckTable(2), "approach"))
			if err != nil {
				L.ArgError(2, err.Error())
			}
			b.enqueue(sb, effect.SetApproach{Target: target, Approach: a})
			return 0
		},
		"add_stat_modifier": func(L *lua.LState) int {
			target := checkEntity(L, 1)
			opts := L.CheckTable(2)
			stat, err := combat.ParseStatKind(optString(L, opts, "stat"))
			if err != nil {
				L.ArgError(2, err.Error())
			}
			if !stat.Modifiable() {
				L.ArgError(2, fmt.Sprintf("stat %q cannot be modified", stat))
			}
			amount, _ := optNumber(L, opts, "amount")
			id := uuid.NewString()
			b.enqueue(sb, effect.AddStatModifier{Target: target, ModifierID: id, Stat: stat, Amount: int(amount)})
			L.Push(lua.LString(id))
			return 1
		},
		"remove_stat_modifier": func(L *lua.LState) int {
			target := checkEntity(L, 1)
			id := optString(L, L.CheckTable(2), "id")
			if id == "" {
				L.ArgError(2, "id required")
			}
			b.enqueue(sb, effect.RemoveStatModifier{Target: target, ModifierID: id})
			return 0
		},
		"combat_log": func(L *lua.LState) int {
			source := checkEntity(L, 1)
			target := checkEntity(L, 2)
			entry, err := logEntry(L, L.CheckTable(3))
			if err != nil {
				L.ArgError(3, err.Error())
			}
			b.enqueue(sb, effect.CombatLog{Source: source, Target: target, Entry: entry})
			return 0
		},
		"send_message": func(L *lua.LState) int {
			target := checkEntity(L, 1)
			msg := optString(L, L.CheckTable(2), "message")
			if msg == "" {
				L.ArgError(2, "message required")
			}
			b.enqueue(sb, effect.SendMessage{Target: target, Text: msg})
			return 0
		},
	}
	for name, fn := range fns {
		t.RawSetString(name, L.NewFunction(fn))
	}
	return readOnly(L, t)
}

// logEntry reads the single kind key of a combat_log options table. The key
// holds the message; damage, kind, crit and condition fill the rest.
func logEntry(L *lua.LState, opts *lua.LTable) (effect.LogEntry, error) {
	var (
		entry effect.LogEntry
		found int
	)
	for _, k := range effect.LogKinds {
		v := L.GetField(opts, k.String())
		if v == lua.LNil {
			continue
		}
		found++
		entry.Kind = k
		if s, ok := v.(lua.LString); ok {
			entry.Message = string(s)
		}
	}
	if found != 1 {
		return entry, fmt.Errorf("combat_log needs exactly one entry kind, got %d", found)
	}
	if n, ok := L.GetField(opts, "damage").(lua.LNumber); ok {
		entry.Damage = int(n)
	}
	if s, ok := L.GetField(opts, "kind").(lua.LString); ok {
		kind, err := combat.ParseDamageKind(string(s))
		if err != nil {
			return entry, err
		}
		entry.DamageKind = kind
	}
	entry.Crit = lua.LVAsBool(L.GetField(opts, "crit"))
	if s, ok := L.GetField(opts, "condition").(lua.LString); ok {
		entry.ConditionID = string(s)
	}
	return entry, nil
}
