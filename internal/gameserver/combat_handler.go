package gameserver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/skill"
)

// CombatHandler validates combat commands and turns the accepted ones into
// state changes and SkillUsed events.
//
// Precondition: All fields must be non-nil after construction.
//
// CombatHandler is not safe for concurrent use; the simulation tick owns it.
type CombatHandler struct {
	engine   *combat.Engine
	skills   *skill.Registry
	classes  *skill.Book
	settings Settings
	logger   *zap.Logger
	used     []SkillUsed
}

// NewCombatHandler creates a CombatHandler.
//
// Precondition: engine, skills, classes and logger must be non-nil.
// Postcondition: Returns a non-nil CombatHandler.
func NewCombatHandler(engine *combat.Engine, skills *skill.Registry, classes *skill.Book, settings Settings, logger *zap.Logger) *CombatHandler {
	if engine == nil || skills == nil || classes == nil || logger == nil {
		panic("gameserver.NewCombatHandler: engine, skills, classes and logger must be non-nil")
	}
	return &CombatHandler{
		engine:   engine,
		skills:   skills,
		classes:  classes,
		settings: settings,
		logger:   logger,
	}
}

// Available returns the skill ids c may use: its own list when set,
// otherwise its class book at its mastery.
func (h *CombatHandler) Available(c *combat.Combatant) []string {
	if len(c.Skills) > 0 {
		return c.Skills
	}
	return h.classes.Available(c.Class, c.Mastery)
}

// Handle executes one command and returns the acknowledgment for the actor.
//
// Postcondition: a *UserError leaves all state unchanged; any other error
// is a consistency fault.
func (h *CombatHandler) Handle(cmd command.Combat) (string, error) {
	actor, ok := h.engine.Get(cmd.Actor)
	if !ok {
		return "", fmt.Errorf("command %s from %s: %w", cmd.Kind, cmd.Actor, combat.ErrStaleHandle)
	}
	switch cmd.Kind {
	case command.Attack, command.UseSkill:
		return h.use(actor, cmd)
	case command.Block:
		return h.prepare(actor, &actor.Block, h.settings.BlockCooldown, msgBlockNotReady, msgBlockPrepared)
	case command.Dodge:
		return h.prepare(actor, &actor.Dodge, h.settings.DodgeCooldown, msgDodgeNotReady, msgDodgePrepared)
	case command.Advance:
		return h.move(actor, combat.Near, "You close in on %s.")
	case command.Retreat:
		return h.move(actor, combat.Far, "You fall back from %s.")
	}
	return "", fmt.Errorf("unhandled command kind %d", cmd.Kind)
}

// TakeUsed returns and clears the SkillUsed events emitted since the last call.
func (h *CombatHandler) TakeUsed() []SkillUsed {
	out := h.used
	h.used = nil
	return out
}

func (h *CombatHandler) use(actor *combat.Combatant, cmd command.Combat) (string, error) {
	token := cmd.Skill
	if token == "" {
		token = skill.BasicAttack
	}

	// 1. skill
	def, ok := h.skills.Resolve(token, h.Available(actor))
	if !ok {
		return "", userErrorf("You don't know how to %s.", token)
	}
	// 2. vigor
	if def.Cost > 0 && actor.Base.Status.Vigor < def.Cost {
		return "", userErrorf("You don't have enough vigor to use %s (%d needed).", def.Name, def.Cost)
	}
	// 3. cooldown
	if left, cooling := actor.Cooldowns.Remaining(def.ID); cooling {
		return "", userErrorf("%s is not ready yet (%.1fs remaining).", def.Name, left.Seconds())
	}
	// 4. pacing
	if actor.Pacing != nil {
		actor.Pacing.Queue(combat.QueuedAttack{Skill: def.ID, Target: cmd.Target})
		return fmt.Sprintf("You will use %s as soon as you are able.", def.Name), nil
	}
	// 5. target
	if cmd.Target != "" {
		target, err := h.resolveTarget(actor, cmd.Target)
		if err != nil {
			return "", err
		}
		dist, approach := def.Distance, def.Approach
		if dist == "" {
			dist = combat.Near
		}
		if approach == "" {
			approach = combat.Front
		}
		if err := h.engine.Engage(actor.Handle, target.Handle, dist, approach); err != nil {
			if errors.Is(err, combat.ErrSelfTarget) {
				return "", userErrorf("You can't attack yourself.")
			}
			return "", fmt.Errorf("engaging %s: %w", target.Name, err)
		}
	}
	// 6. engagement
	opponent, err := h.engine.Opponent(actor.Handle)
	if errors.Is(err, combat.ErrNotEngaged) {
		return "", &UserError{Text: msgNotInCombat}
	}
	if err != nil {
		return "", err
	}
	if def.Distance != "" && actor.Engagement.Distance != def.Distance {
		return "", userErrorf("You are too %s from %s to use %s.", actor.Engagement.Distance, opponent.Name, def.Name)
	}
	if def.Approach != "" && actor.Engagement.Approach != def.Approach {
		return "", userErrorf("You must be at %s's %s to use %s.", opponent.Name, def.Approach, def.Name)
	}
	// 7. commit and emit
	actor.Spend(def.Cost)
	if def.Cooldown > 0 {
		actor.Cooldowns.Start(def.ID, def.Cooldown)
	}
	actor.Pacing = combat.NewPacing(actor.Effective().AttackSpeed())
	h.used = append(h.used, SkillUsed{Actor: actor.Handle, Target: opponent.Handle, Skill: def})
	h.logger.Debug("skill used",
		zap.String("actor", actor.Name),
		zap.String("target", opponent.Name),
		zap.String("skill", def.ID),
	)
	return fmt.Sprintf("You use %s on %s.", def.Name, opponent.Name), nil
}

// resolveTarget finds token among the actor's co-located combatants. An
// exact name beats a prefix.
func (h *CombatHandler) resolveTarget(actor *combat.Combatant, token string) (*combat.Combatant, error) {
	token = strings.TrimSpace(token)
	var prefix *combat.Combatant
	var found *combat.Combatant
	for _, c := range h.engine.InRoom(actor.RoomID) {
		if c.Handle == actor.Handle {
			continue
		}
		if strings.EqualFold(c.Name, token) {
			found = c
			break
		}
		if prefix == nil && strings.HasPrefix(strings.ToLower(c.Name), strings.ToLower(token)) {
			prefix = c
		}
	}
	if found == nil {
		found = prefix
	}
	if found == nil {
		return nil, userErrorf("You don't see %q here.", token)
	}
	if found.IsDead() || len(h.Available(found)) == 0 {
		return nil, userErrorf("You can't attack %s.", found.Name)
	}
	return found, nil
}

func (h *CombatHandler) prepare(actor *combat.Combatant, st *combat.Stance, cooldown time.Duration, notReady, prepared string) (string, error) {
	if !st.Ready() {
		return "", &UserError{Text: notReady}
	}
	st.Prepare(h.settings.GuardDuration, cooldown)
	return prepared, nil
}

// move sets the distance on both sides and rearms the actor's pacing.
func (h *CombatHandler) move(actor *combat.Combatant, d combat.Distance, ack string) (string, error) {
	opponent, err := h.engine.Opponent(actor.Handle)
	if errors.Is(err, combat.ErrNotEngaged) {
		return "", &UserError{Text: msgNotInCombat}
	}
	if err != nil {
		return "", err
	}
	if err := h.engine.SetDistance(actor.Handle, d); err != nil {
		return "", err
	}
	speed := actor.Effective().AttackSpeed()
	if actor.Pacing != nil {
		actor.Pacing.Timer.Reset(speed)
	} else {
		actor.Pacing = combat.NewPacing(speed)
	}
	return fmt.Sprintf(ack, opponent.Name), nil
}
