package scripting

import (
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox is the isolated state of one ExecutionContext: its environment
// table, its queued actions and its outstanding callbacks.
type Sandbox struct {
	Context *ExecutionContext

	env       *lua.LTable
	events    *lua.LTable
	callbacks *lua.LTable
	pending   map[string]bool
	// finished is set once no further phases will run; the sandbox lives on
	// only while callbacks are outstanding.
	finished bool
	idle     int
}

// ID returns the sandbox id.
func (s *Sandbox) ID() string { return s.Context.SandboxID }

// Queued returns the number of actions waiting to be processed.
func (s *Sandbox) Queued() int { return s.events.Len() }

// Pending returns the outstanding callback ids, sorted.
func (s *Sandbox) Pending() []string {
	out := make([]string, 0, len(s.pending))
	for id := range s.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Sandboxes is the registry of live sandboxes, keyed by sandbox id. It owns
// the callback index so a damage response can find its sandbox.
//
// Sandboxes is not safe for concurrent use; the simulation tick owns it.
type Sandboxes struct {
	L         *lua.LState
	byID      map[string]*Sandbox
	callbacks map[string]string // callback id → sandbox id
}

// NewSandboxes returns an empty registry bound to L.
//
// Precondition: L must not be nil.
func NewSandboxes(L *lua.LState) *Sandboxes {
	if L == nil {
		panic("scripting.NewSandboxes: L must not be nil")
	}
	return &Sandboxes{
		L:         L,
		byID:      make(map[string]*Sandbox),
		callbacks: make(map[string]string),
	}
}

// GetOrCreate returns the sandbox for ec.SandboxID, creating it on first
// use. A new sandbox starts with a copy of every global binding, an empty
// events queue and an empty callbacks table. Reports whether it was created.
func (r *Sandboxes) GetOrCreate(ec *ExecutionContext) (*Sandbox, bool) {
	if sb, ok := r.byID[ec.SandboxID]; ok {
		return sb, false
	}
	sb := &Sandbox{
		Context:   ec,
		env:       r.L.NewTable(),
		events:    r.L.NewTable(),
		callbacks: r.L.NewTable(),
		pending:   make(map[string]bool),
	}
	r.inherit(sb.env)
	sb.env.RawSetString("events", sb.events)
	sb.env.RawSetString("callbacks", sb.callbacks)
	r.byID[ec.SandboxID] = sb
	return sb, true
}

// inherit copies globals not already shadowed in env. Library tables are
// copied all the way down, so a script that assigns math.pi or
// engine.dice.roll changes only its own copy.
func (r *Sandboxes) inherit(env *lua.LTable) {
	seen := map[*lua.LTable]*lua.LTable{r.L.G.Global: env}
	r.L.G.Global.ForEach(func(k, v lua.LValue) {
		if env.RawGet(k) != lua.LNil {
			return
		}
		env.RawSet(k, deepCopy(r.L, v, seen))
	})
	env.RawSetString("_G", env)
}

// deepCopy copies tables and their metatables; seen keeps shared and
// cyclic references pointing at a single copy.
func deepCopy(L *lua.LState, v lua.LValue, seen map[*lua.LTable]*lua.LTable) lua.LValue {
	t, ok := v.(*lua.LTable)
	if !ok {
		return v
	}
	if c, done := seen[t]; done {
		return c
	}
	out := L.NewTable()
	seen[t] = out
	t.ForEach(func(k, v lua.LValue) {
		out.RawSet(deepCopy(L, k, seen), deepCopy(L, v, seen))
	})
	if mt, ok := t.Metatable.(*lua.LTable); ok {
		out.Metatable = deepCopy(L, mt, seen)
	}
	return out
}

// Get returns the sandbox for id.
func (r *Sandboxes) Get(id string) (*Sandbox, bool) {
	sb, ok := r.byID[id]
	return sb, ok
}

// Owner returns the sandbox that registered callback id.
func (r *Sandboxes) Owner(callbackID string) (*Sandbox, bool) {
	id, ok := r.callbacks[callbackID]
	if !ok {
		return nil, false
	}
	return r.Get(id)
}

// Drop discards a sandbox and every callback it still holds.
//
// Postcondition: Get(id) and Owner(cb) for its callbacks return false.
func (r *Sandboxes) Drop(id string) bool {
	sb, ok := r.byID[id]
	if !ok {
		return false
	}
	for cb := range sb.pending {
		delete(r.callbacks, cb)
	}
	delete(r.byID, id)
	return true
}

// Len returns the number of live sandboxes.
func (r *Sandboxes) Len() int { return len(r.byID) }

// IDs returns the live sandbox ids, sorted.
func (r *Sandboxes) IDs() []string {
	out := make([]string, 0, len(r.byID))
	for id := range r.byID {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Sandboxes) registerCallback(sb *Sandbox, id string, fn *lua.LFunction) {
	sb.callbacks.RawSetString(id, fn)
	sb.pending[id] = true
	r.callbacks[id] = sb.ID()
}

// takeCallback removes and returns callback id from its sandbox.
func (r *Sandboxes) takeCallback(sb *Sandbox, id string) (*lua.LFunction, bool) {
	delete(r.callbacks, id)
	delete(sb.pending, id)
	v := sb.callbacks.RawGetString(id)
	sb.callbacks.RawSetString(id, lua.LNil)
	fn, ok := v.(*lua.LFunction)
	return fn, ok
}
