// Package main provides a deterministic offline duel for content authoring.
// Each input line is submitted as a command and the simulation is then
// stepped a fixed number of ticks, so a seed and an input file always
// replay the same fight. Persistence is never enabled.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/gameserver"
	"github.com/cory-johannsen/skirmish/internal/observability"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	playerName := flag.String("name", "Hero", "player name")
	archetype := flag.String("archetype", "warrior_recruit", "template the player is built from")
	room := flag.String("room", "pit", "room the duel takes place in")
	seed := flag.Uint64("seed", 1, "dice seed")
	ticksPerLine := flag.Int("ticks", 20, "ticks to advance after each input line")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	cfg.Database.Enabled = false

	logger, err := observability.NewLogger(cfg.Logging, "simulate")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	cat, err := gameserver.LoadCatalog(context.Background(), cfg.Content)
	if err != nil {
		logger.Fatal("loading catalog", zap.Error(err))
	}

	roller := dice.NewLoggedRoller(dice.NewSeededSource(*seed), logger)
	sim, bridge, err := gameserver.Assemble(cfg, cat, roller, nil, logger)
	if err != nil {
		logger.Fatal("assembling simulation", zap.Error(err))
	}
	defer bridge.Close()
	sim.Populate()

	player, err := gameserver.NewPlayer(cat, *playerName, *archetype, *room)
	if err != nil {
		logger.Fatal("creating player", zap.Error(err))
	}
	sess := session.NewBridgeEntity(*playerName, 4096)
	if _, err := sim.Join(player, sess); err != nil {
		logger.Fatal("joining player", zap.Error(err))
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	console := gameserver.NewConsole(sim, cat.Skills, player.Handle, sess, out, logger)

	for _, c := range sim.Engine().InRoom(*room) {
		if c.Handle != player.Handle {
			fmt.Fprintf(out, "%s is here.\n", c.Name)
		}
	}

	dt := cfg.Simulation.TickInterval
	in := bufio.NewScanner(os.Stdin)
	for in.Scan() {
		fmt.Fprintf(out, "> %s\n", in.Text())
		if console.Line(in.Text()) {
			break
		}
		step(sim, dt, *ticksPerLine)
		flushEvents(out, sess)
		out.Flush()
	}
	if err := in.Err(); err != nil {
		logger.Error("reading input", zap.Error(err))
	}
	logger.Info("simulation finished",
		zap.Uint64("ticks", sim.Ticks()),
		zap.Duration("simulated", time.Duration(sim.Ticks())*dt),
		zap.Uint64("rolls", roller.Rolls()),
	)
}

func step(sim *gameserver.Simulation, dt time.Duration, n int) {
	for i := 0; i < n; i++ {
		sim.Tick(dt)
	}
}

func flushEvents(out *bufio.Writer, sess *session.BridgeEntity) {
	for _, text := range sess.Drain() {
		fmt.Fprintln(out, text)
	}
}
