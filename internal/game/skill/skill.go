// Package skill loads skill definitions and class skill books.
package skill

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
)

// BasicAttack is the id of the skill every class can use without naming it.
const BasicAttack = "attack"

// Def is an immutable skill definition.
type Def struct {
	ID          string
	Name        string
	Description string
	Aliases     []string
	Stat        combat.StatKind
	DamageKind  combat.DamageKind
	Difficulty  int
	Distance    combat.Distance
	// Approach is the required approach; empty means either side.
	Approach combat.Approach
	Cost     int
	Cooldown time.Duration
	Damage   dice.Expression
	Scripts  []string
	Actions  effect.Program

	trigger *effect.Trigger
}

type rawDef struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Aliases     []string       `yaml:"aliases"`
	Stat        string         `yaml:"stat"`
	DamageKind  string         `yaml:"damage_kind"`
	Difficulty  int            `yaml:"difficulty"`
	Distance    string         `yaml:"distance"`
	Approach    string         `yaml:"approach"`
	Cost        int            `yaml:"cost"`
	Cooldown    float64        `yaml:"cooldown"`
	Damage      string         `yaml:"damage"`
	Scripts     []string       `yaml:"scripts"`
	Actions     effect.Program `yaml:"actions"`
}

// UnmarshalYAML decodes and validates a definition. Dice expressions are
// parsed here so a loaded Def can never fail to roll.
func (d *Def) UnmarshalYAML(node *yaml.Node) error {
	var r rawDef
	if err := effect.DecodeStrict(node, &r); err != nil {
		return err
	}
	def := Def{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Aliases:     r.Aliases,
		Difficulty:  r.Difficulty,
		Cost:        r.Cost,
		Scripts:     r.Scripts,
		Actions:     r.Actions,
	}
	if r.Cooldown < 0 || r.Cost < 0 {
		return fmt.Errorf("skill %q: cost and cooldown must be >= 0", r.ID)
	}
	def.Cooldown = time.Duration(r.Cooldown * float64(time.Second))

	var err error
	if r.Stat != "" {
		if def.Stat, err = combat.ParseStatKind(r.Stat); err != nil {
			return fmt.Errorf("skill %q: %w", r.ID, err)
		}
	}
	if def.DamageKind, err = combat.ParseDamageKind(r.DamageKind); err != nil {
		return fmt.Errorf("skill %q: %w", r.ID, err)
	}
	if def.Distance, err = combat.ParseDistance(r.Distance); err != nil {
		return fmt.Errorf("skill %q: %w", r.ID, err)
	}
	if r.Approach != "" {
		if def.Approach, err = combat.ParseApproach(r.Approach); err != nil {
			return fmt.Errorf("skill %q: %w", r.ID, err)
		}
	}
	if r.Damage != "" {
		if def.Damage, err = dice.Parse(r.Damage); err != nil {
			return fmt.Errorf("skill %q damage: %w", r.ID, err)
		}
	}
	*d = def
	return d.Validate()
}

// Validate checks the fields every definition must carry.
func (d *Def) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if d.Name == "" {
		return fmt.Errorf("skill %q: name must not be empty", d.ID)
	}
	return nil
}

// Trigger returns the runtime view shared by every use of this skill.
func (d *Def) Trigger() *effect.Trigger {
	if d.trigger == nil {
		prog := d.Actions
		if len(prog) == 0 && len(d.Scripts) == 0 {
			prog = effect.DefaultSkillProgram()
		}
		d.trigger = &effect.Trigger{
			Kind:       effect.TriggerSkill,
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

// Matches reports whether token names this skill by id, name or alias,
// ignoring case.
func (d *Def) Matches(token string) bool {
	if strings.EqualFold(token, d.ID) || strings.EqualFold(token, d.Name) {
		return true
	}
	for _, a := range d.Aliases {
		if strings.EqualFold(token, a) {
			return true
		}
	}
	return false
}
