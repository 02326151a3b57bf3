package combat

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/entity"
)

// Distance is the range between two engaged combatants.
type Distance string

const (
	Near Distance = "near"
	Far  Distance = "far"
)

// ParseDistance validates s. The empty string means Near.
func ParseDistance(s string) (Distance, error) {
	switch Distance(s) {
	case "", Near:
		return Near, nil
	case Far:
		return Far, nil
	}
	return "", fmt.Errorf("unknown distance %q", s)
}

// Approach is the side of the target an attacker is positioned on.
type Approach string

const (
	Front Approach = "front"
	Rear  Approach = "rear"
)

// ParseApproach validates s. The empty string means Front.
func ParseApproach(s string) (Approach, error) {
	switch Approach(s) {
	case "", Front:
		return Front, nil
	case Rear:
		return Rear, nil
	}
	return "", fmt.Errorf("unknown approach %q", s)
}

// Engagement is one side of a mutual combat link.
type Engagement struct {
	Target   entity.Handle
	Distance Distance
	Approach Approach
}
