// Package observability builds the structured loggers shared by every
// simulation component.
package observability

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/skirmish/internal/config"
)

// CombatLogName is the logger name combat log entries are written under.
const CombatLogName = "combatlog"

// NewLogger writes to stderr. See NewLoggerTo.
func NewLogger(cfg config.LoggingConfig, service string) (*zap.Logger, error) {
	return NewLoggerTo(cfg, service, zapcore.Lock(os.Stderr))
}

// NewLoggerTo builds a logger writing to out. Entries are never sampled,
// so a busy tick cannot drop combat log lines, and carry a "service" field
// when service is set.
//
// Precondition: cfg.Level is debug, info, warn or error; cfg.Format is json or console.
func NewLoggerTo(cfg config.LoggingConfig, service string, out zapcore.WriteSyncer) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	case "console":
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if service != "" {
		opts = append(opts, zap.Fields(zap.String("service", service)))
	}
	return zap.New(zapcore.NewCore(enc, out, level), opts...), nil
}

// CombatLogger returns the child logger combat log entries go to.
func CombatLogger(logger *zap.Logger) *zap.Logger {
	return logger.Named(CombatLogName)
}
