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

// Tier lists the skills unlocked at a mastery level.
type Tier struct {
	Mastery int      `yaml:"mastery"`
	Skills  []string `yaml:"skills"`
}

// Class is a class skill book.
//
// Precondition: ID and Name must be non-empty after loading.
type Class struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Tiers       []Tier `yaml:"tiers"`
}

// Available returns the skill ids unlocked at mastery, always including
// BasicAttack, in unlock order without duplicates.
func (c *Class) Available(mastery int) []string {
	out := []string{BasicAttack}
	seen := map[string]bool{BasicAttack: true}
	tiers := make([]Tier, len(c.Tiers))
	copy(tiers, c.Tiers)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].Mastery < tiers[j].Mastery })
	for _, t := range tiers {
		if t.Mastery > mastery {
			break
		}
		for _, id := range t.Skills {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}

// Book maps class id to Class.
type Book struct {
	classes map[string]*Class
}

// NewBook returns a Book over classes.
func NewBook(classes ...*Class) *Book {
	b := &Book{classes: make(map[string]*Class, len(classes))}
	for _, c := range classes {
		b.classes[c.ID] = c
	}
	return b
}

// Get returns the Class for id.
func (b *Book) Get(id string) (*Class, bool) {
	c, ok := b.classes[id]
	return c, ok
}

// Available returns the skills class id offers at mastery. An unknown
// class offers only BasicAttack.
func (b *Book) Available(classID string, mastery int) []string {
	c, ok := b.classes[classID]
	if !ok {
		return []string{BasicAttack}
	}
	return c.Available(mastery)
}

// Check verifies every skill a class references exists in reg.
func (b *Book) Check(reg *Registry) error {
	var missing []string
	for _, c := range b.classes {
		for _, t := range c.Tiers {
			for _, id := range t.Skills {
				if _, ok := reg.Get(id); !ok {
					missing = append(missing, fmt.Sprintf("%s:%s", c.ID, id))
				}
			}
		}
	}
	if _, ok := reg.Get(BasicAttack); !ok && len(b.classes) > 0 {
		missing = append(missing, BasicAttack)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("unknown skills referenced: %s", strings.Join(missing, ", "))
	}
	return nil
}

// LoadClasses reads all .yaml files in dir and parses each as a Class.
//
// Precondition: dir must be a readable directory path.
// Postcondition: Returns a Book of every parsed class or a non-nil error.
func LoadClasses(dir string) (*Book, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading class dir %q: %w", dir, err)
	}
	var classes []*Class
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		var c Class
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("parsing class file %s: %w", path, err)
		}
		if c.ID == "" || c.Name == "" {
			return nil, fmt.Errorf("class file %s: id and name are required", path)
		}
		classes = append(classes, &c)
	}
	return NewBook(classes...), nil
}
