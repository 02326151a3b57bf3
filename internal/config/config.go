// Package config provides Viper-based configuration loading for the
// skirmish simulation server.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled turns on combat-log and snapshot persistence.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// TelnetConfig holds the multiplayer line-protocol listener settings.
type TelnetConfig struct {
	// Enabled starts the listener; the console player works either way.
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	// Port 0 picks a free port.
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// StartRoom is where connecting players are placed.
	StartRoom string `mapstructure:"start_room"`
}

// Addr returns the "host:port" listen address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (t TelnetConfig) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimulationConfig holds tick loop settings.
type SimulationConfig struct {
	// TickInterval is the wall-clock period of one simulation tick.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// RespawnRoom is where dead players reappear.
	RespawnRoom string `mapstructure:"respawn_room"`
	// CommandBuffer is the capacity of the inbound command channel.
	CommandBuffer int `mapstructure:"command_buffer"`
}

// CombatConfig holds the tunable combat numerics and stance timings.
type CombatConfig struct {
	BlockCooldown        time.Duration `mapstructure:"block_cooldown"`
	DodgeCooldown        time.Duration `mapstructure:"dodge_cooldown"`
	GuardDuration        time.Duration `mapstructure:"guard_duration"`
	GuardBonus           int           `mapstructure:"guard_bonus"`
	RegenInterval        time.Duration `mapstructure:"regen_interval"`
	BaseCritThreshold    int           `mapstructure:"base_crit_threshold"`
	CritThresholdFloor   int           `mapstructure:"crit_threshold_floor"`
	BaseCritStrikeDamage int           `mapstructure:"base_crit_strike_damage"`
	CritDamageRoll       string        `mapstructure:"crit_damage_roll"`
	HitRoll              string        `mapstructure:"hit_roll"`
	CritRoll             string        `mapstructure:"crit_roll"`
	ResistanceRoll       string        `mapstructure:"resistance_roll"`
}

// Rules parses the dice expressions into combat.Rules.
//
// Postcondition: Returns an error naming the first malformed expression.
func (c CombatConfig) Rules() (combat.Rules, error) {
	r := combat.Rules{
		BaseCritThreshold:    c.BaseCritThreshold,
		CritThresholdFloor:   c.CritThresholdFloor,
		BaseCritStrikeDamage: c.BaseCritStrikeDamage,
	}
	for _, f := range []struct {
		key  string
		expr string
		dst  *dice.Expression
	}{
		{"combat.hit_roll", c.HitRoll, &r.HitRoll},
		{"combat.crit_roll", c.CritRoll, &r.CritRoll},
		{"combat.crit_damage_roll", c.CritDamageRoll, &r.CritDamageRoll},
		{"combat.resistance_roll", c.ResistanceRoll, &r.ResistanceRoll},
	} {
		e, err := dice.Parse(f.expr)
		if err != nil {
			return combat.Rules{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = e
	}
	return r, nil
}

// ScriptingConfig holds Lua bridge settings.
type ScriptingConfig struct {
	// InstructionLimit caps Lua opcodes per invocation; 0 uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
	// ScriptDir holds the *.lua files definitions refer to by name.
	ScriptDir string `mapstructure:"script_dir"`
	// CallbackTTL is how many ticks a released invocation waits for its
	// outstanding damage responses.
	CallbackTTL int `mapstructure:"callback_ttl"`
}

// ContentConfig locates the definition catalog.
type ContentConfig struct {
	SkillsDir     string `mapstructure:"skills_dir"`
	ConditionsDir string `mapstructure:"conditions_dir"`
	ClassesDir    string `mapstructure:"classes_dir"`
	NPCsDir       string `mapstructure:"npcs_dir"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Combat     CombatConfig     `mapstructure:"combat"`
	Scripting  ScriptingConfig  `mapstructure:"scripting"`
	Content    ContentConfig    `mapstructure:"content"`
	Telnet     TelnetConfig     `mapstructure:"telnet"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateScripting(c.Scripting); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Telnet.Enabled {
		if err := validateTelnet(c.Telnet); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var errs []string
	if t.Port < 0 || t.Port > 65535 {
		errs = append(errs, fmt.Sprintf("telnet.port must be 0-65535, got %d", t.Port))
	}
	if t.ReadTimeout < 0 || t.WriteTimeout < 0 {
		errs = append(errs, "telnet timeouts must be >= 0")
	}
	if t.StartRoom == "" {
		errs = append(errs, "telnet.start_room must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TickInterval <= 0 {
		errs = append(errs, fmt.Sprintf("simulation.tick_interval must be > 0, got %s", s.TickInterval))
	}
	if s.RespawnRoom == "" {
		errs = append(errs, "simulation.respawn_room must not be empty")
	}
	if s.CommandBuffer < 1 {
		errs = append(errs, fmt.Sprintf("simulation.command_buffer must be >= 1, got %d", s.CommandBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCombat(c CombatConfig) error {
	var errs []string
	for key, d := range map[string]time.Duration{
		"combat.block_cooldown": c.BlockCooldown,
		"combat.dodge_cooldown": c.DodgeCooldown,
		"combat.guard_duration": c.GuardDuration,
		"combat.regen_interval": c.RegenInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0, got %s", key, d))
		}
	}
	if c.CritThresholdFloor < 1 {
		errs = append(errs, fmt.Sprintf("combat.crit_threshold_floor must be >= 1, got %d", c.CritThresholdFloor))
	}
	if c.BaseCritThreshold < c.CritThresholdFloor {
		errs = append(errs, "combat.base_crit_threshold must not be below combat.crit_threshold_floor")
	}
	if c.BaseCritStrikeDamage < 0 {
		errs = append(errs, "combat.base_crit_strike_damage must not be negative")
	}
	if _, err := c.Rules(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		sort.Strings(errs)
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateScripting(s ScriptingConfig) error {
	var errs []string
	if s.InstructionLimit < 0 {
		errs = append(errs, fmt.Sprintf("scripting.instruction_limit must be >= 0, got %d", s.InstructionLimit))
	}
	if s.CallbackTTL < 1 {
		errs = append(errs, fmt.Sprintf("scripting.callback_ttl must be >= 1, got %d", s.CallbackTTL))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.SkillsDir == "" {
		errs = append(errs, "content.skills_dir must not be empty")
	}
	if c.ClassesDir == "" {
		errs = append(errs, "content.classes_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with SKIRMISH_ prefix
	v.SetEnvPrefix("SKIRMISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// SetDefaults installs the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "skirmish")
	v.SetDefault("database.password", "skirmish")
	v.SetDefault("database.name", "skirmish")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("simulation.tick_interval", "100ms")
	v.SetDefault("simulation.respawn_room", "sanctuary")
	v.SetDefault("simulation.command_buffer", 256)

	v.SetDefault("combat.block_cooldown", "6s")
	v.SetDefault("combat.dodge_cooldown", "6s")
	v.SetDefault("combat.guard_duration", "2s")
	v.SetDefault("combat.guard_bonus", 5)
	v.SetDefault("combat.regen_interval", "3s")
	v.SetDefault("combat.base_crit_threshold", 20)
	v.SetDefault("combat.crit_threshold_floor", 5)
	v.SetDefault("combat.base_crit_strike_damage", 2)
	v.SetDefault("combat.crit_damage_roll", "1d6")
	v.SetDefault("combat.hit_roll", "2d10")
	v.SetDefault("combat.crit_roll", "1d20")
	v.SetDefault("combat.resistance_roll", "1d20")

	v.SetDefault("scripting.instruction_limit", 100000)
	v.SetDefault("scripting.script_dir", "content/scripts")
	v.SetDefault("scripting.callback_ttl", 50)

	v.SetDefault("telnet.enabled", false)
	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "10m")
	v.SetDefault("telnet.write_timeout", "10s")
	v.SetDefault("telnet.start_room", "pit")

	v.SetDefault("content.skills_dir", "content/skills")
	v.SetDefault("content.conditions_dir", "content/conditions")
	v.SetDefault("content.classes_dir", "content/classes")
	v.SetDefault("content.npcs_dir", "content/npcs")
}
