package effect

import (
	"fmt"
	"time"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// Action is one effect request. The set of variants is closed; consumers
// switch over the concrete types and treat anything else as a programming
// error.
type Action interface {
	isAction()
}

// ApplyDamage asks for damage to be rolled against Target. A zero Roll means
// "use the trigger's damage roll". A non-empty Callback names a continuation
// waiting for the realized damage.
type ApplyDamage struct {
	Target   entity.Handle
	Roll     dice.Expression
	Kind     combat.DamageKind
	Callback string
}

// ApplyCondition applies a condition. A zero Duration means the condition's
// own default.
type ApplyCondition struct {
	Target      entity.Handle
	ConditionID string
	Duration    time.Duration
}

// SetDistance changes the distance of Target's engagement link.
type SetDistance struct {
	Target   entity.Handle
	Distance combat.Distance
}

// SetApproach changes the approach on Target's side of its link.
type SetApproach struct {
	Target   entity.Handle
	Approach combat.Approach
}

// AddStatModifier installs a modifier under ModifierID.
type AddStatModifier struct {
	Target     entity.Handle
	ModifierID string
	Stat       combat.StatKind
	Amount     int
}

// RemoveStatModifier removes the modifier with ModifierID.
type RemoveStatModifier struct {
	Target     entity.Handle
	ModifierID string
}

// CombatLog appends an entry to the combat log.
type CombatLog struct {
	Source entity.Handle
	Target entity.Handle
	Entry  LogEntry
}

// SendMessage delivers text to Target's session, if it has one.
type SendMessage struct {
	Target entity.Handle
	Text   string
}

func (ApplyDamage) isAction()        {}
func (ApplyCondition) isAction()     {}
func (SetDistance) isAction()        {}
func (SetApproach) isAction()        {}
func (AddStatModifier) isAction()    {}
func (RemoveStatModifier) isAction() {}
func (CombatLog) isAction()          {}
func (SendMessage) isAction()        {}

// Name returns the script-facing name of a, e.g. "apply_damage".
func Name(a Action) string {
	switch a.(type) {
	case ApplyDamage:
		return "apply_damage"
	case ApplyCondition:
		return "apply_condition"
	case SetDistance:
		return "set_distance"
	case SetApproach:
		return "set_approach"
	case AddStatModifier:
		return "add_stat_modifier"
	case RemoveStatModifier:
		return "remove_stat_modifier"
	case CombatLog:
		return "combat_log"
	case SendMessage:
		return "send_message"
	}
	panic(fmt.Sprintf("effect.Name: unhandled action %T", a))
}

// LogKind is the kind of a combat log entry.
type LogKind int

const (
	LogUsed LogKind = iota
	LogMissed
	LogDodged
	LogBlocked
	LogDamaged
	LogConditionApplied
	LogConditionRemoved
)

// LogKinds lists every LogKind.
var LogKinds = []LogKind{LogUsed, LogMissed, LogDodged, LogBlocked, LogDamaged, LogConditionApplied, LogConditionRemoved}

var logKindNames = [...]string{"used", "missed", "dodged", "blocked", "damaged", "condition_applied", "condition_removed"}

// String returns the script-facing name, e.g. "condition_applied".
func (k LogKind) String() string {
	if k < 0 || int(k) >= len(logKindNames) {
		return "unknown"
	}
	return logKindNames[k]
}

// ParseLogKind validates s.
func ParseLogKind(s string) (LogKind, error) {
	for _, k := range LogKinds {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown combat log kind %q", s)
}

// LogEntry is one combat log line. Damage fields are set for LogDamaged;
// ConditionID for the condition kinds.
type LogEntry struct {
	Kind        LogKind
	Message     string
	Damage      int
	DamageKind  combat.DamageKind
	Crit        bool
	ConditionID string
}
