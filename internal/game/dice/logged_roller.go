package dice

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggedRoller is the Roller the simulation runs with. Each roll is written
// to the debug log and counted.
type LoggedRoller struct {
	src    Source
	logger *zap.Logger
	rolls  atomic.Uint64
}

// NewLoggedRoller rolls with src.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *LoggedRoller {
	if src == nil || logger == nil {
		panic("dice.NewLoggedRoller: src and logger must be non-nil")
	}
	return &LoggedRoller{src: src, logger: logger}
}

// Roll evaluates expr. Building the log entry is skipped entirely unless
// debug logging is on, since combat rolls several times per strike.
func (r *LoggedRoller) Roll(expr Expression) RollResult {
	res := Roll(expr, r.src)
	r.rolls.Add(1)
	if ce := r.logger.Check(zapcore.DebugLevel, "dice roll"); ce != nil {
		ce.Write(
			zap.String("expression", res.Expression),
			zap.Ints("dice", res.Dice),
			zap.Int("modifier", res.Modifier),
			zap.Int("total", res.Total()),
		)
	}
	return res
}

// RollExpr parses and rolls expr; scripts supply expressions at runtime.
func (r *LoggedRoller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}

// Rolls returns how many expressions have been rolled.
func (r *LoggedRoller) Rolls() uint64 {
	return r.rolls.Load()
}

var _ Roller = (*LoggedRoller)(nil)
