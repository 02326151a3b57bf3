// Package main applies the combat log and snapshot schema migrations.
package main

import (
	"errors"
	"flag"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dir := flag.String("dir", "migrations", "directory holding the migration files")
	action := flag.String("action", "up", "up, down or version")
	steps := flag.Int("steps", 0, "number of steps for up or down (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging, "migrate")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	m, err := migrate.New("file://"+*dir, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("creating migrator", zap.String("dir", *dir), zap.Error(err))
	}
	defer m.Close()

	switch *action {
	case "up", "down":
		err = apply(m, *action, *steps)
	case "version":
	default:
		logger.Fatal("unknown action", zap.String("action", *action))
	}
	noChange := errors.Is(err, migrate.ErrNoChange)
	if err != nil && !noChange {
		logger.Fatal("migration failed", zap.String("action", *action), zap.Error(err))
	}

	version, dirty, verr := m.Version()
	if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
		logger.Fatal("reading schema version", zap.Error(verr))
	}
	logger.Info("schema ready",
		zap.String("action", *action),
		zap.Bool("changed", *action != "version" && !noChange),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func apply(m *migrate.Migrate, action string, steps int) error {
	switch {
	case steps > 0 && action == "down":
		return m.Steps(-steps)
	case steps > 0:
		return m.Steps(steps)
	case action == "down":
		return m.Down()
	default:
		return m.Up()
	}
}
