package scripting

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua tables into the bridge state.
//
// Postcondition: engine.log and engine.dice are defined as globals, so
// every sandbox created afterwards inherits them.
func (b *Bridge) RegisterModules() {
	engine := b.L.NewTable()
	engine.RawSetString("log", b.logModule())
	engine.RawSetString("dice", b.diceModule())
	b.L.SetGlobal("engine", engine)
}

func (b *Bridge) logModule() *lua.LTable {
	t := b.L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": b.logger.Debug,
		"info":  b.logger.Info,
		"warn":  b.logger.Warn,
		"error": b.logger.Error,
	}
	for name, fn := range levels {
		fn := fn
		t.RawSetString(name, b.L.NewFunction(func(L *lua.LState) int {
			parts := make([]string, 0, L.GetTop())
			for i := 1; i <= L.GetTop(); i++ {
				parts = append(parts, L.ToStringMeta(L.Get(i)).String())
			}
			fn(strings.Join(parts, " "), zap.String("source", "lua"))
			return 0
		}))
	}
	return t
}

// diceModule exposes engine.dice.roll(expr) → {total, dice, modifier}.
// dice is the sum of the kept dice. A malformed expression raises.
func (b *Bridge) diceModule() *lua.LTable {
	t := b.L.NewTable()
	t.RawSetString("roll", b.L.NewFunction(func(L *lua.LState) int {
		res, err := b.roller.RollExpr(L.CheckString(1))
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		sum := 0
		for _, d := range res.Dice {
			sum += d
		}
		out := L.NewTable()
		out.RawSetString("total", lua.LNumber(res.Total()))
		out.RawSetString("dice", lua.LNumber(sum))
		out.RawSetString("modifier", lua.LNumber(res.Modifier))
		L.Push(out)
		return 1
	}))
	return t
}
