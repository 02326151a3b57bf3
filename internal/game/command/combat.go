package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// Kind is the type of an upstream combat command.
type Kind int

const (
	Advance Kind = iota
	Retreat
	Attack
	UseSkill
	Block
	Dodge
)

// String returns the command verb.
func (k Kind) String() string {
	switch k {
	case Advance:
		return "advance"
	case Retreat:
		return "retreat"
	case Attack:
		return "attack"
	case UseSkill:
		return "use"
	case Block:
		return "block"
	case Dodge:
		return "dodge"
	default:
		return "unknown"
	}
}

// Combat is one typed combat command tagged with the acting entity. Skill
// and Target are unresolved tokens; Target may be empty.
type Combat struct {
	Kind   Kind
	Actor  entity.Handle
	Skill  string
	Target string
}

// ErrNotCombat is returned for lines that parse to a non-combat command.
var ErrNotCombat = errors.New("not a combat command")

// SkillMatcher reports whether token names a skill the actor could use.
type SkillMatcher func(token string) bool

// Translate turns one parsed line into a combat command. A verb that is
// not a command but matches a skill is treated as "use <skill>".
//
// Postcondition: returns ErrNotCombat for recognised non-combat commands and
// a descriptive error for unknown input.
func Translate(reg *Registry, actor entity.Handle, in Input, isSkill SkillMatcher) (Combat, error) {
	if in.Empty() {
		return Combat{}, errors.New("empty command")
	}
	cmd, ok := reg.Resolve(in.Verb)
	if !ok {
		if isSkill != nil && isSkill(in.Verb) {
			return Combat{Kind: UseSkill, Actor: actor, Skill: in.Verb, Target: in.Target(0)}, nil
		}
		return Combat{}, fmt.Errorf("unknown command %q", in.Verb)
	}
	switch cmd.Handler {
	case HandlerAdvance:
		return Combat{Kind: Advance, Actor: actor}, nil
	case HandlerRetreat:
		return Combat{Kind: Retreat, Actor: actor}, nil
	case HandlerBlock:
		return Combat{Kind: Block, Actor: actor}, nil
	case HandlerDodge:
		return Combat{Kind: Dodge, Actor: actor}, nil
	case HandlerAttack:
		return Combat{Kind: Attack, Actor: actor, Target: in.Target(0)}, nil
	case HandlerUse:
		if len(in.Words) == 0 {
			return Combat{}, errors.New("use what?")
		}
		return Combat{Kind: UseSkill, Actor: actor, Skill: strings.ToLower(in.Words[0]), Target: in.Target(1)}, nil
	}
	return Combat{}, ErrNotCombat
}
