package gameserver

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

// Assemble builds a Simulation over cat: a fresh roster, a Lua bridge with
// the configured scripts loaded, and the NPC respawn schedule. writer may
// be nil.
//
// Postcondition: on success the caller owns the returned Bridge and must
// Close it after the simulation stops.
func Assemble(cfg config.Config, cat *Catalog, roller dice.Roller, writer *postgres.AsyncWriter, logger *zap.Logger) (*Simulation, *scripting.Bridge, error) {
	settings, err := NewSettings(cfg)
	if err != nil {
		return nil, nil, err
	}
	eng := combat.NewEngine()
	bridge := scripting.NewBridge(eng, roller, logger, cfg.Scripting.InstructionLimit)
	if dir := cfg.Scripting.ScriptDir; dir != "" {
		if info, statErr := os.Stat(dir); statErr == nil && info.IsDir() {
			if err := bridge.LoadDirectory(dir); err != nil {
				bridge.Close()
				return nil, nil, err
			}
		} else {
			logger.Warn("script directory not found, scripts disabled", zap.String("dir", dir))
		}
	}
	if err := cat.Check(bridge); err != nil {
		bridge.Close()
		return nil, nil, err
	}
	sim := NewSimulation(Deps{
		Engine:      eng,
		Skills:      cat.Skills,
		Classes:     cat.Classes,
		Conditions:  cat.Conditions,
		Respawns:    npc.NewRespawnManager(cat.Templates),
		Sessions:    session.NewManager(),
		Bridge:      bridge,
		Roller:      roller,
		Writer:      writer,
		CallbackTTL: cfg.Scripting.CallbackTTL,
	}, settings, logger)
	return sim, bridge, nil
}

// NewPlayer builds a player named name with the stats, class and skills of
// the template archetype, placed in room.
func NewPlayer(cat *Catalog, name, archetype, room string) (*combat.Combatant, error) {
	for _, t := range cat.Templates {
		if t.ID != archetype {
			continue
		}
		c := t.NewCombatant(room)
		c.Name = name
		c.Kind = combat.KindPlayer
		c.TemplateID = ""
		return c, nil
	}
	return nil, fmt.Errorf("unknown archetype %q", archetype)
}
