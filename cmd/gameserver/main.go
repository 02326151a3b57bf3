// Package main provides the simulation server binary: it loads the
// definition catalog, runs the combat tick loop, accepts Telnet players and
// optionally attaches a console player to stdin and stdout.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/frontend/handlers"
	"github.com/cory-johannsen/skirmish/internal/frontend/telnet"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/server"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	playerName := flag.String("name", "Hero", "console player name")
	archetype := flag.String("archetype", "warrior_recruit", "template the console player is built from")
	room := flag.String("room", "pit", "room the console player starts in")
	withConsole := flag.Bool("console", true, "attach a console player to stdin and stdout")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gameserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	catStart := time.Now()
	cat, err := gameserver.LoadCatalog(ctx, cfg.Content)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}
	logger.Info("catalog loaded",
		zap.Int("skills", len(cat.Skills.All())),
		zap.Int("conditions", len(cat.Conditions.All())),
		zap.Int("templates", len(cat.Templates)),
		zap.Duration("elapsed", time.Since(catStart)),
	)

	lifecycle := server.NewLifecycle(logger)

	var writer *postgres.AsyncWriter
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		writer = postgres.NewAsyncWriter(
			postgres.NewCombatLogRepository(pool.DB()),
			postgres.NewSnapshotRepository(pool.DB()),
			cfg.Simulation.CommandBuffer,
			logger,
		)
		probe := server.NewContextService(func(ctx context.Context) error {
			return pool.Probe(ctx, 30*time.Second, 5*time.Second, logger)
		})
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: probe.Start,
			StopFn: func() {
				probe.Stop()
				pool.Close()
			},
		})
		lifecycle.Add("writer", server.NewContextService(writer.Run))
	}

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)
	sim, bridge, err := gameserver.Assemble(cfg, cat, roller, writer, logger)
	if err != nil {
		logger.Fatal("assembling simulation", zap.Error(err))
	}
	defer bridge.Close()
	sim.Populate()

	ticker := gameserver.NewTicker(cfg.Simulation.TickInterval, sim.Tick)
	lifecycle.Add("simulation", server.NewContextService(ticker.Run))

	if cfg.Telnet.Enabled {
		handler := handlers.NewPlayerHandler(sim, cat, cfg.Telnet.StartRoom, logger)
		acceptor := telnet.NewAcceptor(cfg.Telnet, handler, logger)
		lifecycle.Add("telnet", server.NewContextService(acceptor.Serve))
	}

	if *withConsole {
		player, err := gameserver.NewPlayer(cat, *playerName, *archetype, *room)
		if err != nil {
			logger.Fatal("creating console player", zap.Error(err))
		}
		sess := session.NewBridgeEntity(*playerName, cfg.Simulation.CommandBuffer)
		if _, err := sim.Join(player, sess); err != nil {
			logger.Fatal("joining console player", zap.Error(err))
		}
		console := gameserver.NewConsole(sim, cat.Skills, player.Handle, sess, os.Stdout, logger)
		lifecycle.Add("console-output", server.NewContextService(console.Pump))
		lifecycle.Add("console-input", &server.FuncService{
			StartFn: func() error {
				if err := console.Read(os.Stdin); err != nil {
					return err
				}
				logger.Info("console player quit")
				cancel()
				return nil
			},
			StopFn: func() { _ = sess.Close() },
		})
	}

	logger.Info("game server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Duration("tick_interval", cfg.Simulation.TickInterval),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
