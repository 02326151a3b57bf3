// Package npc provides NPC template definitions, spawning onto the combat
// roster, and respawn scheduling.
package npc

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// SpawnPoint places Count copies of a template in Room.
type SpawnPoint struct {
	Room  string `yaml:"room"`
	Count int    `yaml:"count"`
}

// Template defines a reusable NPC archetype loaded from YAML.
type Template struct {
	ID          string       `yaml:"id"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Class       string       `yaml:"class"`
	Mastery     int          `yaml:"mastery"`
	Stats       combat.Stats `yaml:"stats"`
	// Skills overrides the class book when non-empty.
	Skills []string     `yaml:"skills"`
	Spawns []SpawnPoint `yaml:"spawns"`
	// RespawnDelay is the duration string (e.g. "5m", "30s") before a dead NPC
	// of this template respawns. Empty means the NPC does not respawn.
	RespawnDelay string `yaml:"respawn_delay"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, vitality >= 1,
// every spawn point names a room with count >= 1, and RespawnDelay parses.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if t.Stats.Attributes.Vitality < 1 {
		return fmt.Errorf("npc template %q: vitality must be >= 1", t.ID)
	}
	for _, sp := range t.Spawns {
		if sp.Room == "" || sp.Count < 1 {
			return fmt.Errorf("npc template %q: spawn needs a room and count >= 1", t.ID)
		}
	}
	if t.RespawnDelay != "" {
		if _, err := time.ParseDuration(t.RespawnDelay); err != nil {
			return fmt.Errorf("npc template %q: respawn_delay %q is not a valid duration: %w", t.ID, t.RespawnDelay, err)
		}
	}
	return nil
}

// Delay returns the parsed respawn delay, or 0 when the template does not
// respawn.
func (t *Template) Delay() time.Duration {
	d, err := time.ParseDuration(t.RespawnDelay)
	if err != nil {
		return 0
	}
	return d
}

// NewCombatant builds a fresh NPC combatant from t in roomID.
//
// Postcondition: the combatant is at full health and not yet spawned.
func (t *Template) NewCombatant(roomID string) *combat.Combatant {
	c := combat.NewCombatant(t.Name, combat.KindNPC, t.Stats)
	c.Class = t.Class
	c.Mastery = t.Mastery
	c.RoomID = roomID
	c.TemplateID = t.ID
	c.Skills = append([]string(nil), t.Skills...)
	return c
}

// LoadTemplateFromBytes parses a single NPC template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
