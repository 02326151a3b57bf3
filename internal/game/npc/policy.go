package npc

import "github.com/cory-johannsen/skirmish/internal/game/combat"

// Retaliate picks the skill an engaged, idle NPC swings back with: the
// first of available that is off cooldown.
func Retaliate(c *combat.Combatant, available []string) (string, bool) {
	if c.Kind != combat.KindNPC || c.IsDead() || c.Engagement == nil || c.Pacing != nil {
		return "", false
	}
	for _, id := range available {
		if !c.Cooldowns.Active(id) {
			return id, true
		}
	}
	return "", false
}
