package skill

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry holds all known skill Defs keyed by ID.
type Registry struct {
	defs map[string]*Def
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Def)}
}

// Register adds def. Registering an id twice is an authoring error.
//
// Precondition: def must not be nil.
func (r *Registry) Register(def *Def) error {
	if def == nil {
		panic("skill.Registry.Register: def must not be nil")
	}
	if err := def.Validate(); err != nil {
		return err
	}
	if _, dup := r.defs[def.ID]; dup {
		return fmt.Errorf("skill %q registered twice", def.ID)
	}
	r.defs[def.ID] = def
	// Build the trigger now so concurrent readers never race to do it.
	def.Trigger()
	return nil
}

// Get returns the Def for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Def, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// Resolve finds the skill named by token among the allowed ids. An exact id
// match wins over a name or alias match.
func (r *Registry) Resolve(token string, allowed []string) (*Def, bool) {
	token = strings.TrimSpace(token)
	for _, id := range allowed {
		if strings.EqualFold(id, token) {
			if d, ok := r.defs[id]; ok {
				return d, true
			}
		}
	}
	for _, id := range allowed {
		if d, ok := r.defs[id]; ok && d.Matches(token) {
			return d, true
		}
	}
	return nil, false
}

// All returns every Def sorted by id.
func (r *Registry) All() []*Def {
	out := make([]*Def, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir as one skill Def.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error naming the first
// file that fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading skill dir %q: %w", dir, err)
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
		var def Def
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := reg.Register(&def); err != nil {
			return nil, fmt.Errorf("registering %q: %w", path, err)
		}
	}
	return reg, nil
}
