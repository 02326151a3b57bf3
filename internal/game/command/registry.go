package command

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Registry resolves command words, canonical or alias, to Commands.
type Registry struct {
	byWord map[string]*Command
	cmds   []*Command
}

// NewRegistry indexes cmds by name and alias.
//
// Precondition: every name and alias is unique across cmds.
func NewRegistry(cmds []Command) (*Registry, error) {
	r := &Registry{byWord: make(map[string]*Command, len(cmds)*3)}
	for i := range cmds {
		cmd := &cmds[i]
		for _, w := range append([]string{cmd.Name}, cmd.Aliases...) {
			w = strings.ToLower(w)
			if prev, taken := r.byWord[w]; taken {
				return nil, fmt.Errorf("command word %q claimed by both %q and %q", w, prev.Name, cmd.Name)
			}
			r.byWord[w] = cmd
		}
		r.cmds = append(r.cmds, cmd)
	}
	sort.Slice(r.cmds, func(i, j int) bool { return r.cmds[i].Name < r.cmds[j].Name })
	return r, nil
}

// DefaultRegistry returns the built-in command set.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up word case-insensitively.
func (r *Registry) Resolve(word string) (*Command, bool) {
	cmd, ok := r.byWord[strings.ToLower(word)]
	return cmd, ok
}

// Commands returns every command sorted by name.
func (r *Registry) Commands() []*Command {
	return append([]*Command(nil), r.cmds...)
}

// WriteHelp lists the commands under their category headings, combat first.
func (r *Registry) WriteHelp(w io.Writer) error {
	for i, cat := range []string{CategoryCombat, CategorySystem} {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s:\n", strings.ToUpper(cat[:1])+cat[1:]); err != nil {
			return err
		}
		for _, cmd := range r.cmds {
			if cmd.Category != cat {
				continue
			}
			if _, err := fmt.Fprintf(w, "  %-8s %s\n", cmd.Name, cmd.Help); err != nil {
				return err
			}
		}
	}
	return nil
}
