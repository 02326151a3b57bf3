package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

var (
	// ErrUnknownScript is returned when a trigger names a script that was
	// never loaded.
	ErrUnknownScript = errors.New("unknown script")
	// ErrNoSandbox is returned when a sandbox id does not resolve.
	ErrNoSandbox = errors.New("no such sandbox")
	// ErrUnknownCallback is returned when a damage response names a
	// callback no sandbox holds.
	ErrUnknownCallback = errors.New("unknown callback")
)

// Bridge owns the single sandboxed Lua state, the compiled script cache and
// the sandbox registry. One invocation runs at a time.
//
// Bridge is not safe for concurrent use; the simulation tick owns it.
type Bridge struct {
	L         *lua.LState
	roster    Roster
	roller    dice.Roller
	logger    *zap.Logger
	limit     int
	scripts   map[string]*lua.FunctionProto
	sandboxes *Sandboxes
}

// NewBridge creates a Bridge with engine.* modules registered.
//
// Precondition: roster, roller and logger must be non-nil.
// Postcondition: Returns a Bridge with no scripts loaded.
func NewBridge(roster Roster, roller dice.Roller, logger *zap.Logger, instLimit int) *Bridge {
	if roster == nil || roller == nil || logger == nil {
		panic("scripting.NewBridge: roster, roller and logger must be non-nil")
	}
	L := NewSandboxedState()
	b := &Bridge{
		L:       L,
		roster:  roster,
		roller:  roller,
		logger:  logger,
		limit:   instLimit,
		scripts: make(map[string]*lua.FunctionProto),
	}
	b.registerEntityType()
	b.RegisterModules()
	b.sandboxes = NewSandboxes(L)
	return b
}

// Sandboxes exposes the sandbox registry.
func (b *Bridge) Sandboxes() *Sandboxes { return b.sandboxes }

// Close releases the Lua state.
func (b *Bridge) Close() { b.L.Close() }

// LoadScript compiles src under name, replacing any earlier version.
func (b *Bridge) LoadScript(name, src string) error {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("scripting: parsing %q: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return fmt.Errorf("scripting: compiling %q: %w", name, err)
	}
	b.scripts[name] = proto
	return nil
}

// LoadDirectory compiles every *.lua file in dir; the script name is the
// file name without extension.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns the first compile error, naming the file.
func (b *Bridge) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	for _, f := range files {
		src, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return fmt.Errorf("scripting: reading %q: %w", f, err)
		}
		if err := b.LoadScript(strings.TrimSuffix(f, ".lua"), string(src)); err != nil {
			return err
		}
	}
	return nil
}

// HasScript reports whether name is loaded.
func (b *Bridge) HasScript(name string) bool {
	_, ok := b.scripts[name]
	return ok
}

// Check verifies every script the triggers name is loaded.
func (b *Bridge) Check(triggers ...*effect.Trigger) error {
	var missing []string
	for _, t := range triggers {
		for _, s := range t.Scripts {
			if !b.HasScript(s) {
				missing = append(missing, t.ID+":"+s)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrUnknownScript, strings.Join(missing, ", "))
	}
	return nil
}

// Run executes one phase for ec: the trigger's effect program first, then
// each script's phase hook, all appending to the sandbox queue. A script
// fault aborts only that script's phase and discards what it queued.
//
// Postcondition: the sandbox for ec exists; nothing has been processed.
func (b *Bridge) Run(ec *ExecutionContext, phase effect.Phase) *Sandbox {
	sb, _ := b.sandboxes.GetOrCreate(ec)
	for _, a := range ec.Trigger.Program.Expand(phase, ec.Source, ec.Target) {
		b.enqueue(sb, a)
	}
	if !ec.Trigger.Scripted() {
		return sb
	}

	action := b.actionNamespace(sb)
	vars := b.varNamespace(ec)
	for _, name := range ec.Trigger.Scripts {
		proto, ok := b.scripts[name]
		if !ok {
			b.logger.Error("scripting: script not loaded",
				zap.String("script", name),
				zap.String("trigger", ec.Trigger.ID),
			)
			continue
		}
		if err := b.invoke(sb, proto, phase, action, vars); err != nil {
			b.logger.Warn("scripting: Lua runtime error",
				zap.String("script", name),
				zap.String("phase", phase.String()),
				zap.String("sandbox", sb.ID()),
				zap.Bool("budget_exhausted", errors.Is(err, ErrBudgetExhausted)),
				zap.Error(err),
			)
		}
	}
	return sb
}

// guarded runs fn under a fresh instruction budget. If fn fails, the
// actions and callbacks it added to sb are discarded.
func (b *Bridge) guarded(sb *Sandbox, fn func() error) (err error) {
	mark := sb.events.Len()
	before := make(map[string]bool, len(sb.pending))
	for id := range sb.pending {
		before[id] = true
	}
	defer func() {
		if err == nil {
			return
		}
		for i := sb.events.Len(); i > mark; i-- {
			sb.events.Remove(i)
		}
		for id := range sb.pending {
			if !before[id] {
				b.sandboxes.takeCallback(sb, id)
			}
		}
	}()

	bud := arm(b.L, b.limit)
	return bud.disarm(b.L, fn())
}

// invoke evaluates proto in the sandbox env to obtain its exports and calls
// the hook for phase, if any.
func (b *Bridge) invoke(sb *Sandbox, proto *lua.FunctionProto, phase effect.Phase, action, vars *lua.LTable) error {
	return b.guarded(sb, func() error {
		chunk := b.L.NewFunctionFromProto(proto)
		chunk.Env = sb.env
		if err := b.L.CallByParam(lua.P{Fn: chunk, NRet: 1, Protect: true}); err != nil {
			return err
		}
		exports := b.L.Get(-1)
		b.L.Pop(1)
		tbl, ok := exports.(*lua.LTable)
		if !ok {
			if exports == lua.LNil {
				return nil
			}
			return fmt.Errorf("script returned %s, want table", exports.Type().String())
		}
		hook, ok := b.L.GetField(tbl, phase.Hook()).(*lua.LFunction)
		if !ok {
			return nil
		}
		return b.L.CallByParam(lua.P{Fn: hook, NRet: 0, Protect: true}, tbl, action, vars)
	})
}

// callback invokes a stored continuation with the realized damage.
func (b *Bridge) callback(sb *Sandbox, fn *lua.LFunction, args ...lua.LValue) error {
	return b.guarded(sb, func() error {
		return b.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	})
}
