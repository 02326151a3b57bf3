// Package condition loads condition definitions and tracks the conditions
// applied to each combatant.
package condition

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// StatModifier is a per-stack stat adjustment held while the condition is
// active.
type StatModifier struct {
	Stat   combat.StatKind
	Amount int
}

// ConditionDef is the static definition of a condition, loaded from YAML.
type ConditionDef struct {
	ID          string
	Name        string
	Description string
	// Duration is the default length; zero means until removed.
	Duration time.Duration
	// TickInterval is the period of the Use phase; zero means never.
	TickInterval time.Duration
	MaxStacks    int // 0 = unstackable
	Stat         combat.StatKind
	DamageKind   combat.DamageKind
	Difficulty   int
	Damage       dice.Expression
	Modifiers    []StatModifier
	Scripts      []string
	Actions      effect.Program

	trigger *effect.Trigger
}

type rawModifier struct {
	Stat   string `yaml:"stat"`
	Amount int    `yaml:"amount"`
}

type rawDef struct {
	ID           string         `yaml:"id"`
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Duration     float64        `yaml:"duration"`
	TickInterval float64        `yaml:"tick_interval"`
	MaxStacks    int            `yaml:"max_stacks"`
	Stat         string         `yaml:"stat"`
	DamageKind   string         `yaml:"damage_kind"`
	Difficulty   int            `yaml:"difficulty"`
	Damage       string         `yaml:"damage"`
	Modifiers    []rawModifier  `yaml:"modifiers"`
	Scripts      []string       `yaml:"scripts"`
	Actions      effect.Program `yaml:"actions"`
}

func seconds(f float64) time.Duration { return time.Duration(f * float64(time.Second)) }

// UnmarshalYAML decodes and validates a definition.
func (d *ConditionDef) UnmarshalYAML(node *yaml.Node) error {
	var r rawDef
	if err := effect.DecodeStrict(node, &r); err != nil {
		return err
	}
	if r.Duration < 0 || r.TickInterval < 0 || r.MaxStacks < 0 {
		return fmt.Errorf("condition %q: duration, tick_interval and max_stacks must be >= 0", r.ID)
	}
	def := ConditionDef{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		Duration:     seconds(r.Duration),
		TickInterval: seconds(r.TickInterval),
		MaxStacks:    r.MaxStacks,
		Difficulty:   r.Difficulty,
		Scripts:      r.Scripts,
		Actions:      r.Actions,
	}
	var err error
	if r.Stat != "" {
		if def.Stat, err = combat.ParseStatKind(r.Stat); err != nil {
			return fmt.Errorf("condition %q: %w", r.ID, err)
		}
	}
	if def.DamageKind, err = combat.ParseDamageKind(r.DamageKind); err != nil {
		return fmt.Errorf("condition %q: %w", r.ID, err)
	}
	if r.Damage != "" {
		if def.Damage, err = dice.Parse(r.Damage); err != nil {
			return fmt.Errorf("condition %q damage: %w", r.ID, err)
		}
	}
	for _, m := range r.Modifiers {
		k, err := combat.ParseStatKind(m.Stat)
		if err != nil {
			return fmt.Errorf("condition %q modifier: %w", r.ID, err)
		}
		if !k.Modifiable() {
			return fmt.Errorf("condition %q: stat %q cannot be modified", r.ID, m.Stat)
		}
		def.Modifiers = append(def.Modifiers, StatModifier{Stat: k, Amount: m.Amount})
	}
	if def.ID == "" || def.Name == "" {
		return fmt.Errorf("condition: id and name are required")
	}
	*d = def
	return nil
}

// Trigger returns the runtime view used by each tick of this condition.
// Unscripted conditions with a damage roll deal it on every tick.
func (d *ConditionDef) Trigger() *effect.Trigger {
	if d.trigger == nil {
		prog := d.Actions
		if len(prog) == 0 && len(d.Scripts) == 0 && d.Damage.Raw != "" {
			prog = effect.Program{effect.PhaseUse: {{Op: effect.OpApplyDamage}}}
		}
		d.trigger = &effect.Trigger{
			Kind:       effect.TriggerCondition,
			ID:         d.ID,
			Name:       d.Name,
			Stat:       d.Stat,
			DamageKind: d.DamageKind,
			Difficulty: d.Difficulty,
			Roll:       d.Damage,
			Scripts:    d.Scripts,
			Program:    prog,
		}
	}
	return d.trigger
}

// Registry holds all known ConditionDefs keyed by ID.
type Registry struct {
	defs map[string]*ConditionDef
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*ConditionDef)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *ConditionDef) {
	def.Trigger()
	r.defs[def.ID] = def
}

// Get returns the ConditionDef for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*ConditionDef, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot slice of all registered ConditionDefs, sorted by id.
func (r *Registry) All() []*ConditionDef {
	out := make([]*ConditionDef, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as a ConditionDef,
// and returns a populated Registry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading condition dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def ConditionDef
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
