package gameserver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/skirmish/internal/config"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/npc"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// Catalog holds every definition loaded at startup.
type Catalog struct {
	Skills     *skill.Registry
	Conditions *condition.Registry
	Classes    *skill.Book
	Templates  []*npc.Template
}

// LoadCatalog reads the four definition directories concurrently.
//
// Postcondition: Returns a fully populated Catalog, or the first load error.
// Cross references are not checked; see Catalog.Check.
func LoadCatalog(ctx context.Context, dirs config.ContentConfig) (*Catalog, error) {
	var cat Catalog
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		reg, err := skill.LoadDirectory(dirs.SkillsDir)
		cat.Skills = reg
		return err
	})
	g.Go(func() error {
		reg, err := condition.LoadDirectory(dirs.ConditionsDir)
		cat.Conditions = reg
		return err
	})
	g.Go(func() error {
		book, err := skill.LoadClasses(dirs.ClassesDir)
		cat.Classes = book
		return err
	})
	g.Go(func() error {
		tmpls, err := npc.LoadTemplates(dirs.NPCsDir)
		cat.Templates = tmpls
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Archetypes returns the ids of templates that never spawn on their own;
// players are built from these.
func (c *Catalog) Archetypes() []string {
	var ids []string
	for _, t := range c.Templates {
		if len(t.Spawns) == 0 {
			ids = append(ids, t.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

// Triggers returns the trigger of every skill and condition.
func (c *Catalog) Triggers() []*effect.Trigger {
	var out []*effect.Trigger
	for _, d := range c.Skills.All() {
		out = append(out, d.Trigger())
	}
	for _, d := range c.Conditions.All() {
		out = append(out, d.Trigger())
	}
	return out
}

// Check verifies the cross references between definitions: class and
// template skills exist, applied conditions exist, and every named script
// is loaded into bridge.
//
// Postcondition: Returns nil, or one error listing every dangling reference.
func (c *Catalog) Check(bridge *scripting.Bridge) error {
	var problems []string
	if err := c.Classes.Check(c.Skills); err != nil {
		problems = append(problems, err.Error())
	}
	for _, t := range c.Templates {
		for _, id := range t.Skills {
			if _, ok := c.Skills.Get(id); !ok {
				problems = append(problems, fmt.Sprintf("npc %s: unknown skill %q", t.ID, id))
			}
		}
		if t.Class != "" {
			if _, ok := c.Classes.Get(t.Class); !ok {
				problems = append(problems, fmt.Sprintf("npc %s: unknown class %q", t.ID, t.Class))
			}
		}
	}
	for _, tr := range c.Triggers() {
		for _, id := range tr.Program.ConditionIDs() {
			if _, ok := c.Conditions.Get(id); !ok {
				problems = append(problems, fmt.Sprintf("%s %s: unknown condition %q", tr.Kind, tr.ID, id))
			}
		}
	}
	if bridge != nil {
		if err := bridge.Check(c.Triggers()...); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("catalog check failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
