package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// DefaultCallbackTTL is the number of sweeps a released sandbox may wait
// for outstanding damage responses before it is dropped.
const DefaultCallbackTTL = 50

// CombatEvent is one translated action, tagged with the invocation that
// produced it.
type CombatEvent struct {
	SandboxID string
	Trigger   *effect.Trigger
	Source    entity.Handle
	Target    entity.Handle
	Action    effect.Action
}

// DamageResponse reports the realized outcome of an ApplyDamage that carried
// a callback.
type DamageResponse struct {
	Callback string
	Damage   int
	Kind     combat.DamageKind
	Crit     bool
}

// EventSink receives combat events in the order they were queued.
type EventSink interface {
	Emit(ev CombatEvent)
}

// Deliverer sends text straight to an entity's session.
type Deliverer interface {
	Deliver(h entity.Handle, text string) error
}

// Pipeline drains sandbox queues into host events and resumes callbacks
// when their damage responses arrive.
//
// Pipeline is not safe for concurrent use; the simulation tick owns it.
type Pipeline struct {
	bridge  *Bridge
	sink    EventSink
	deliver Deliverer
	ttl     int
	logger  *zap.Logger
}

// NewPipeline wires a bridge to its downstream consumers.
//
// Precondition: bridge, sink, deliver and logger must be non-nil.
// Postcondition: ttl <= 0 uses DefaultCallbackTTL.
func NewPipeline(bridge *Bridge, sink EventSink, deliver Deliverer, ttl int, logger *zap.Logger) *Pipeline {
	if bridge == nil || sink == nil || deliver == nil || logger == nil {
		panic("scripting.NewPipeline: bridge, sink, deliver and logger must be non-nil")
	}
	if ttl <= 0 {
		ttl = DefaultCallbackTTL
	}
	return &Pipeline{bridge: bridge, sink: sink, deliver: deliver, ttl: ttl, logger: logger}
}

// Bridge returns the underlying bridge.
func (p *Pipeline) Bridge() *Bridge { return p.bridge }

// Invoke runs phase for ec and processes whatever it queued.
func (p *Pipeline) Invoke(ec *ExecutionContext, phase effect.Phase) error {
	sb := p.bridge.Run(ec, phase)
	return p.Process(sb.ID())
}

// Process translates the queue of sandbox id in FIFO order. SendMessage is
// delivered directly; every other action goes to the sink.
//
// Postcondition: the queue is empty once every action has been translated.
func (p *Pipeline) Process(id string) error {
	sb, ok := p.bridge.sandboxes.Get(id)
	if !ok {
		p.logger.Warn("scripting: process for missing sandbox", zap.String("sandbox", id))
		return fmt.Errorf("%w: %s", ErrNoSandbox, id)
	}
	n := sb.events.Len()
	actions := make([]effect.Action, 0, n)
	for i := 1; i <= n; i++ {
		ud, ok := sb.events.RawGetInt(i).(*lua.LUserData)
		if !ok {
			continue
		}
		if a, ok := ud.Value.(effect.Action); ok {
			actions = append(actions, a)
		}
	}
	sb.events = p.bridge.L.NewTable()
	sb.env.RawSetString("events", sb.events)

	ec := sb.Context
	for _, a := range actions {
		p.logger.Debug("scripting: action",
			zap.String("sandbox", id),
			zap.String("action", effect.Name(a)),
		)
		if m, ok := a.(effect.SendMessage); ok {
			if err := p.deliver.Deliver(m.Target, m.Text); err != nil {
				p.logger.Warn("scripting: message delivery failed",
					zap.String("sandbox", id),
					zap.Stringer("target", m.Target),
					zap.Error(err),
				)
			}
			continue
		}
		p.sink.Emit(CombatEvent{
			SandboxID: id,
			Trigger:   ec.Trigger,
			Source:    ec.Source,
			Target:    ec.Target,
			Action:    a,
		})
	}
	return nil
}

// OnDamageResponse resumes the continuation registered under r.Callback
// with (damage, kind, crit) and processes whatever it queued. The callback
// is removed whether or not it succeeds.
func (p *Pipeline) OnDamageResponse(r DamageResponse) error {
	sb, ok := p.bridge.sandboxes.Owner(r.Callback)
	if !ok {
		p.logger.Warn("scripting: damage response for unknown callback", zap.String("callback", r.Callback))
		return fmt.Errorf("%w: %s", ErrUnknownCallback, r.Callback)
	}
	fn, ok := p.bridge.sandboxes.takeCallback(sb, r.Callback)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCallback, r.Callback)
	}
	sb.idle = 0
	err := p.bridge.callback(sb, fn, lua.LNumber(r.Damage), lua.LString(r.Kind), lua.LBool(r.Crit))
	if err != nil {
		p.logger.Warn("scripting: Lua runtime error",
			zap.String("callback", r.Callback),
			zap.String("sandbox", sb.ID()),
			zap.Error(err),
		)
	}
	if perr := p.Process(sb.ID()); perr != nil {
		return perr
	}
	p.reap(sb)
	return nil
}

// Release marks the sandbox finished. It is dropped now when no callbacks
// are outstanding, otherwise once they resolve or the TTL lapses.
func (p *Pipeline) Release(id string) {
	sb, ok := p.bridge.sandboxes.Get(id)
	if !ok {
		return
	}
	sb.finished = true
	p.reap(sb)
}

// Sweep ages every finished sandbox that still waits on callbacks and
// drops the ones idle for the TTL. Called once per tick.
//
// Postcondition: returns the ids dropped, sorted.
func (p *Pipeline) Sweep() []string {
	var dropped []string
	for _, id := range p.bridge.sandboxes.IDs() {
		sb, _ := p.bridge.sandboxes.Get(id)
		if !sb.finished {
			continue
		}
		sb.idle++
		if sb.idle >= p.ttl {
			p.logger.Debug("scripting: discarding abandoned callbacks",
				zap.String("sandbox", id),
				zap.Strings("callbacks", sb.Pending()),
			)
			p.bridge.sandboxes.Drop(id)
			dropped = append(dropped, id)
		}
	}
	return dropped
}

func (p *Pipeline) reap(sb *Sandbox) {
	if sb.finished && len(sb.pending) == 0 && sb.events.Len() == 0 {
		p.bridge.sandboxes.Drop(sb.ID())
	}
}
