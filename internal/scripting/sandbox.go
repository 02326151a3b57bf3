// Package scripting runs skill and condition scripts in a sandboxed
// GopherLua state. Each invocation gets its own environment table and may
// only request effects through the injected action namespace; the Pipeline
// turns those requests into combat events.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one invocation when the
// configuration leaves it at zero.
const DefaultInstructionLimit = 100_000

// ErrBudgetExhausted wraps the error of an invocation stopped by its
// instruction budget.
var ErrBudgetExhausted = errors.New("script instruction budget exhausted")

// unsafeGlobals are left behind by OpenBase and give scripts a way to load
// code or touch the host.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "module"}

// budget is the context a running invocation sees. GopherLua polls Done once
// per opcode, so counting the polls gives a deterministic instruction limit
// that does not depend on wall time.
type budget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *budget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

func (b *budget) exhausted() bool { return b.left.Load() <= 0 }

// arm installs a fresh budget of limit opcodes on L.
func arm(L *lua.LState, limit int) *budget {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &budget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	L.SetContext(b)
	return b
}

// disarm removes the budget from L and tags err when the budget ran out.
func (b *budget) disarm(L *lua.LState, err error) error {
	L.RemoveContext()
	b.cancel()
	if err != nil && b.exhausted() {
		return fmt.Errorf("%w: %v", ErrBudgetExhausted, err)
	}
	return err
}

// NewSandboxedState creates a Lua state with only the base, table, string
// and math libraries and without the loaders in unsafeGlobals. No budget is
// armed; the caller arms one per invocation.
//
// Postcondition: the caller owns the state and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	// Strings share one metatable whose __index is the real string library;
	// getmetatable("") returns false instead of handing it out.
	if mt, ok := L.GetMetatable(lua.LString("")).(*lua.LTable); ok {
		mt.RawSetString("__metatable", lua.LFalse)
	}
	return L
}

// RunLimited runs src on L under a budget of limit opcodes.
//
// Postcondition: an error wrapping ErrBudgetExhausted means the budget ran out.
func RunLimited(L *lua.LState, limit int, src string) error {
	b := arm(L, limit)
	return b.disarm(L, L.DoString(src))
}
