package gameserver

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/entity"
	"github.com/cory-johannsen/skirmish/internal/game/session"
	"github.com/cory-johannsen/skirmish/internal/storage/postgres"
)

// combatLog writes entries to the combat logger, narrates them to the room
// and, when persistence is on, buffers them for the next writer job.
type combatLog struct {
	engine   *combat.Engine
	sessions *session.Manager
	logger   *zap.Logger
	persist  bool
	pending  []postgres.CombatLogRecord
}

func (l *combatLog) name(h entity.Handle) (string, string) {
	if c, ok := l.engine.Get(h); ok {
		return c.Name, c.RoomID
	}
	return "someone", ""
}

// record appends one entry. trig may be nil for host-originated entries.
func (l *combatLog) record(tick uint64, sandboxID string, trig *effect.Trigger, source, target entity.Handle, entry effect.LogEntry) {
	srcName, srcRoom := l.name(source)
	tgtName, tgtRoom := l.name(target)
	var trigID, trigName string
	if trig != nil {
		trigID, trigName = trig.ID, trig.Name
	}
	msg := entry.Message
	if msg == "" {
		msg = narrate(entry, srcName, tgtName, trigName)
	}

	l.logger.Info(msg,
		zap.Uint64("tick", tick),
		zap.Stringer("kind", entry.Kind),
		zap.String("source", srcName),
		zap.String("target", tgtName),
		zap.String("trigger", trigID),
		zap.Int("damage", entry.Damage),
		zap.Bool("crit", entry.Crit),
	)

	room := tgtRoom
	if room == "" {
		room = srcRoom
	}
	if room != "" {
		for _, c := range l.engine.InRoom(room) {
			_ = l.sessions.Deliver(c.Handle, msg)
		}
	}

	if l.persist {
		l.pending = append(l.pending, postgres.CombatLogRecord{
			Tick:        tick,
			Kind:        entry.Kind.String(),
			SandboxID:   sandboxID,
			TriggerID:   trigID,
			SourceName:  srcName,
			TargetName:  tgtName,
			Message:     msg,
			Damage:      entry.Damage,
			DamageKind:  string(entry.DamageKind),
			Crit:        entry.Crit,
			ConditionID: entry.ConditionID,
		})
	}
}

// take returns and clears the buffered records.
func (l *combatLog) take() []postgres.CombatLogRecord {
	out := l.pending
	l.pending = nil
	return out
}

// narrate renders the stock text for an entry that carries no message.
func narrate(e effect.LogEntry, src, tgt, what string) string {
	if what == "" {
		what = "an attack"
	}
	switch e.Kind {
	case effect.LogUsed:
		return fmt.Sprintf("%s uses %s on %s.", src, what, tgt)
	case effect.LogMissed:
		return fmt.Sprintf("%s misses %s.", src, tgt)
	case effect.LogDodged:
		return fmt.Sprintf("%s dodges %s's %s.", tgt, src, what)
	case effect.LogBlocked:
		return fmt.Sprintf("%s blocks %s's %s.", tgt, src, what)
	case effect.LogDamaged:
		s := fmt.Sprintf("%s hits %s for %d %s damage.", src, tgt, e.Damage, e.DamageKind)
		if e.Crit {
			s = "Critical! " + s
		}
		return s
	case effect.LogConditionApplied:
		return fmt.Sprintf("%s is afflicted by %s.", tgt, e.ConditionID)
	case effect.LogConditionRemoved:
		return fmt.Sprintf("%s is no longer afflicted by %s.", tgt, e.ConditionID)
	}
	return fmt.Sprintf("%s: %s -> %s", e.Kind, src, tgt)
}
