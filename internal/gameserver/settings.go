package gameserver

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// Settings are the simulation tunables, resolved from configuration once
// at startup.
type Settings struct {
	Rules         combat.Rules
	BlockCooldown time.Duration
	DodgeCooldown time.Duration
	GuardDuration time.Duration
	GuardBonus    int
	RegenInterval time.Duration
	RespawnRoom   string
	CommandBuffer int
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		Rules:         combat.DefaultRules(),
		BlockCooldown: 6 * time.Second,
		DodgeCooldown: 6 * time.Second,
		GuardDuration: 2 * time.Second,
		GuardBonus:    5,
		RegenInterval: 3 * time.Second,
		RespawnRoom:   "sanctuary",
		CommandBuffer: 256,
	}
}

// NewSettings builds Settings from a validated configuration.
//
// Postcondition: Returns an error only when a combat dice expression is malformed.
func NewSettings(cfg config.Config) (Settings, error) {
	rules, err := cfg.Combat.Rules()
	if err != nil {
		return Settings{}, fmt.Errorf("combat rules: %w", err)
	}
	return Settings{
		Rules:         rules,
		BlockCooldown: cfg.Combat.BlockCooldown,
		DodgeCooldown: cfg.Combat.DodgeCooldown,
		GuardDuration: cfg.Combat.GuardDuration,
		GuardBonus:    cfg.Combat.GuardBonus,
		RegenInterval: cfg.Combat.RegenInterval,
		RespawnRoom:   cfg.Simulation.RespawnRoom,
		CommandBuffer: cfg.Simulation.CommandBuffer,
	}, nil
}
