package effect

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// Op is the action a Step produces.
type Op int

const (
	OpApplyDamage Op = iota
	OpApplyCondition
	OpSetDistance
	OpSetApproach
	OpAddStatModifier
	OpRemoveStatModifier
	OpCombatLog
	OpSendMessage
)

var opNames = map[string]Op{
	"apply_damage":         OpApplyDamage,
	"apply_condition":      OpApplyCondition,
	"set_distance":         OpSetDistance,
	"set_approach":         OpSetApproach,
	"add_stat_modifier":    OpAddStatModifier,
	"remove_stat_modifier": OpRemoveStatModifier,
	"combat_log":           OpCombatLog,
	"send_message":         OpSendMessage,
}

// Step is one compiled program instruction. Fields not used by Op are zero.
type Step struct {
	Op Op
	// OnSource directs the action at the invoking entity instead of its target.
	OnSource    bool
	Roll        dice.Expression
	Kind        combat.DamageKind
	ConditionID string
	Duration    time.Duration
	Distance    combat.Distance
	Approach    combat.Approach
	Stat        combat.StatKind
	Amount      int
	ModifierID  string
	Message     string
	Log         LogKind
}

type rawStep struct {
	Do        string  `yaml:"do"`
	On        string  `yaml:"on"`
	Damage    string  `yaml:"damage"`
	Kind      string  `yaml:"kind"`
	Condition string  `yaml:"condition"`
	Duration  float64 `yaml:"duration"`
	Distance  string  `yaml:"distance"`
	Approach  string  `yaml:"approach"`
	Stat      string  `yaml:"stat"`
	Amount    int     `yaml:"amount"`
	ID        string  `yaml:"id"`
	Message   string  `yaml:"message"`
	Log       string  `yaml:"log"`
}

func (r rawStep) compile() (Step, error) {
	op, ok := opNames[r.Do]
	if !ok {
		return Step{}, fmt.Errorf("unknown action %q", r.Do)
	}
	s := Step{Op: op, Amount: r.Amount, ModifierID: r.ID, Message: r.Message, ConditionID: r.Condition}
	switch r.On {
	case "", "target":
	case "source":
		s.OnSource = true
	default:
		return Step{}, fmt.Errorf("on: want source or target, got %q", r.On)
	}
	if r.Duration < 0 {
		return Step{}, fmt.Errorf("negative duration %v", r.Duration)
	}
	s.Duration = time.Duration(r.Duration * float64(time.Second))

	var err error
	switch op {
	case OpApplyDamage:
		if r.Damage != "" {
			if s.Roll, err = dice.Parse(r.Damage); err != nil {
				return Step{}, fmt.Errorf("damage: %w", err)
			}
		}
		if r.Kind != "" {
			if s.Kind, err = combat.ParseDamageKind(r.Kind); err != nil {
				return Step{}, err
			}
		}
	case OpApplyCondition:
		if r.Condition == "" {
			return Step{}, fmt.Errorf("apply_condition requires condition")
		}
	case OpSetDistance:
		if s.Distance, err = combat.ParseDistance(r.Distance); err != nil {
			return Step{}, err
		}
	case OpSetApproach:
		if s.Approach, err = combat.ParseApproach(r.Approach); err != nil {
			return Step{}, err
		}
	case OpAddStatModifier:
		if s.Stat, err = combat.ParseStatKind(r.Stat); err != nil {
			return Step{}, err
		}
		if !s.Stat.Modifiable() {
			return Step{}, fmt.Errorf("stat %q cannot be modified", r.Stat)
		}
	case OpRemoveStatModifier:
		if r.ID == "" {
			return Step{}, fmt.Errorf("remove_stat_modifier requires id")
		}
	case OpCombatLog:
		if s.Log, err = ParseLogKind(r.Log); err != nil {
			return Step{}, err
		}
	case OpSendMessage:
		if r.Message == "" {
			return Step{}, fmt.Errorf("send_message requires message")
		}
	}
	return s, nil
}

// Program is a data-described effect: the steps to run per phase.
type Program map[Phase][]Step

// UnmarshalYAML decodes a mapping of phase name to step list, compiling and
// validating every step.
func (p *Program) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string][]rawStep
	if err := DecodeStrict(node, &raw); err != nil {
		return err
	}
	out := make(Program, len(raw))
	for name, steps := range raw {
		phase, err := ParsePhase(name)
		if err != nil {
			return err
		}
		for i, rs := range steps {
			s, err := rs.compile()
			if err != nil {
				return fmt.Errorf("%s step %d: %w", name, i, err)
			}
			out[phase] = append(out[phase], s)
		}
	}
	*p = out
	return nil
}

// ConditionIDs returns every condition a program may apply, sorted.
func (p Program) ConditionIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, steps := range p {
		for _, s := range steps {
			if s.Op == OpApplyCondition && !seen[s.ConditionID] {
				seen[s.ConditionID] = true
				ids = append(ids, s.ConditionID)
			}
		}
	}
	sort.Strings(ids)
	return ids
}

// Expand turns the steps for phase into Actions, in order.
func (p Program) Expand(phase Phase, source, target entity.Handle) []Action {
	steps := p[phase]
	if len(steps) == 0 {
		return nil
	}
	out := make([]Action, 0, len(steps))
	for _, s := range steps {
		who := target
		if s.OnSource {
			who = source
		}
		out = append(out, s.action(source, who))
	}
	return out
}

func (s Step) action(source, who entity.Handle) Action {
	switch s.Op {
	case OpApplyDamage:
		return ApplyDamage{Target: who, Roll: s.Roll, Kind: s.Kind}
	case OpApplyCondition:
		return ApplyCondition{Target: who, ConditionID: s.ConditionID, Duration: s.Duration}
	case OpSetDistance:
		return SetDistance{Target: who, Distance: s.Distance}
	case OpSetApproach:
		return SetApproach{Target: who, Approach: s.Approach}
	case OpAddStatModifier:
		id := s.ModifierID
		if id == "" {
			id = uuid.NewString()
		}
		return AddStatModifier{Target: who, ModifierID: id, Stat: s.Stat, Amount: s.Amount}
	case OpRemoveStatModifier:
		return RemoveStatModifier{Target: who, ModifierID: s.ModifierID}
	case OpCombatLog:
		return CombatLog{Source: source, Target: who, Entry: LogEntry{Kind: s.Log, Message: s.Message}}
	case OpSendMessage:
		return SendMessage{Target: who, Text: s.Message}
	}
	panic(fmt.Sprintf("effect: unhandled op %d", s.Op))
}

// DefaultSkillProgram is used by skills that declare neither scripts nor
// actions: log the use and each miss outcome, and deal the skill's damage
// on hit.
func DefaultSkillProgram() Program {
	return Program{
		PhaseUse:   {{Op: OpCombatLog, Log: LogUsed}},
		PhaseMiss:  {{Op: OpCombatLog, Log: LogMissed}},
		PhaseDodge: {{Op: OpCombatLog, Log: LogDodged}},
		PhaseBlock: {{Op: OpCombatLog, Log: LogBlocked}},
		PhaseHit:   {{Op: OpApplyDamage}},
	}
}

// DecodeStrict decodes node into v, rejecting unknown fields the way a
// decoder with KnownFields(true) would. Custom UnmarshalYAML methods lose
// that setting when they call node.Decode.
func DecodeStrict(node *yaml.Node, v any) error {
	b, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	return dec.Decode(v)
}
