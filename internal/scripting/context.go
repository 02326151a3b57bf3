package scripting

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// ExecutionContext identifies one script invocation: a fresh sandbox id,
// the triggering definition, and the two entities involved.
type ExecutionContext struct {
	SandboxID string
	Trigger   *effect.Trigger
	Source    entity.Handle
	Target    entity.Handle
}

// NewExecutionContext returns a context with a new random sandbox id.
//
// Precondition: trigger must not be nil.
func NewExecutionContext(trigger *effect.Trigger, source, target entity.Handle) *ExecutionContext {
	if trigger == nil {
		panic("scripting.NewExecutionContext: trigger must not be nil")
	}
	return &ExecutionContext{
		SandboxID: uuid.NewString(),
		Trigger:   trigger,
		Source:    source,
		Target:    target,
	}
}
