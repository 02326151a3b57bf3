package combat

import (
	"fmt"
	"time"
)

// StatKind names one numeric stat. The string values are the names scripts
// see in var.stat and that definition files use.
type StatKind string

const (
	StatLevel        StatKind = "level"
	StatVitality     StatKind = "vitality"
	StatProficiency  StatKind = "proficiency"
	StatStrength     StatKind = "strength"
	StatDexterity    StatKind = "dexterity"
	StatIntelligence StatKind = "intelligence"
	StatHealth       StatKind = "health"
	StatVigor        StatKind = "vigor"
	StatVigorRegen   StatKind = "vigor_regen"
	StatDodge        StatKind = "dodge"
	StatBlock        StatKind = "block"
	StatArmor        StatKind = "armor"
	StatAttackSpeed  StatKind = "attack_speed"
	StatDominance    StatKind = "dominance"
	StatCritChance   StatKind = "crit_chance"
	StatCritDamage   StatKind = "crit_damage"
)

// AllStats lists every StatKind in a stable order.
var AllStats = []StatKind{
	StatLevel, StatVitality, StatProficiency, StatStrength, StatDexterity, StatIntelligence,
	StatHealth, StatVigor, StatVigorRegen, StatDodge, StatBlock, StatArmor,
	StatAttackSpeed, StatDominance, StatCritChance, StatCritDamage,
}

// ParseStatKind validates s as a StatKind.
func ParseStatKind(s string) (StatKind, error) {
	for _, k := range AllStats {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown stat %q", s)
}

// Modifiable reports whether stat modifiers may target k. Current health and
// vigor are pools, not stats, and change only through damage and regen.
func (k StatKind) Modifiable() bool {
	return k != StatHealth && k != StatVigor && k != StatLevel
}

// Attributes are the primary scores.
type Attributes struct {
	Vitality     int `yaml:"vitality"`
	Proficiency  int `yaml:"proficiency"`
	Strength     int `yaml:"strength"`
	Dexterity    int `yaml:"dexterity"`
	Intelligence int `yaml:"intelligence"`
}

// Status holds the current pools.
type Status struct {
	Health     int `yaml:"health"`
	Vigor      int `yaml:"vigor"`
	VigorRegen int `yaml:"vigor_regen"`
}

// Defense holds the flat dodge and block chances.
type Defense struct {
	Dodge int `yaml:"dodge"`
	Block int `yaml:"block"`
}

// Resistance holds per-kind mitigation scores.
type Resistance struct {
	Armor int `yaml:"armor"`
}

// Offense holds attack pacing and crit scores.
type Offense struct {
	// AttackSpeedMs is the pacing interval between attacks in milliseconds.
	AttackSpeedMs int `yaml:"attack_speed_ms"`
	Dominance     int `yaml:"dominance"`
	CritChance    int `yaml:"crit_chance"`
	CritDamage    int `yaml:"crit_damage"`
}

// Stats is a combatant's full numeric snapshot.
type Stats struct {
	Level      int        `yaml:"level"`
	Attributes Attributes `yaml:"attributes"`
	Status     Status     `yaml:"status"`
	Defense    Defense    `yaml:"defense"`
	Resistance Resistance `yaml:"resistance"`
	Offense    Offense    `yaml:"offense"`
}

// MaxHealth is vitality × 10.
func (s Stats) MaxHealth() int { return s.Attributes.Vitality * 10 }

// MaxVigor is proficiency × 10.
func (s Stats) MaxVigor() int { return s.Attributes.Proficiency * 10 }

// AttackSpeed returns the pacing interval. A non-positive speed falls back to
// one second so a misconfigured combatant can still act.
func (s Stats) AttackSpeed() time.Duration {
	if s.Offense.AttackSpeedMs <= 0 {
		return time.Second
	}
	return time.Duration(s.Offense.AttackSpeedMs) * time.Millisecond
}

// Get returns the value of stat k. Unknown kinds return 0.
func (s Stats) Get(k StatKind) int {
	if p := s.field(k); p != nil {
		return *p
	}
	return 0
}

// With returns a copy of s with amount added to stat k.
func (s Stats) With(k StatKind, amount int) Stats {
	if p := s.field(k); p != nil {
		*p += amount
	}
	return s
}

// field returns a pointer into s; s is a copy at every call site.
func (s *Stats) field(k StatKind) *int {
	switch k {
	case StatLevel:
		return &s.Level
	case StatVitality:
		return &s.Attributes.Vitality
	case StatProficiency:
		return &s.Attributes.Proficiency
	case StatStrength:
		return &s.Attributes.Strength
	case StatDexterity:
		return &s.Attributes.Dexterity
	case StatIntelligence:
		return &s.Attributes.Intelligence
	case StatHealth:
		return &s.Status.Health
	case StatVigor:
		return &s.Status.Vigor
	case StatVigorRegen:
		return &s.Status.VigorRegen
	case StatDodge:
		return &s.Defense.Dodge
	case StatBlock:
		return &s.Defense.Block
	case StatArmor:
		return &s.Resistance.Armor
	case StatAttackSpeed:
		return &s.Offense.AttackSpeedMs
	case StatDominance:
		return &s.Offense.Dominance
	case StatCritChance:
		return &s.Offense.CritChance
	case StatCritDamage:
		return &s.Offense.CritDamage
	}
	return nil
}

// DamageKind tags damage for resistance lookup.
type DamageKind string

const (
	DamagePhysical DamageKind = "physical"
	DamageMagical  DamageKind = "magical"
	DamageTrue     DamageKind = "true"
)

// AllDamageKinds lists every DamageKind.
var AllDamageKinds = []DamageKind{DamagePhysical, DamageMagical, DamageTrue}

// ParseDamageKind validates s. The empty string means physical.
func ParseDamageKind(s string) (DamageKind, error) {
	switch DamageKind(s) {
	case "", DamagePhysical:
		return DamagePhysical, nil
	case DamageMagical:
		return DamageMagical, nil
	case DamageTrue:
		return DamageTrue, nil
	}
	return "", fmt.Errorf("unknown damage kind %q", s)
}

// ResistanceFor returns the defender's resistance score against kind and
// whether the kind can be mitigated at all.
func (s Stats) ResistanceFor(kind DamageKind) (int, bool) {
	switch kind {
	case DamageMagical:
		return s.Attributes.Intelligence / 2, true
	case DamageTrue:
		return 0, false
	default:
		return s.Resistance.Armor, true
	}
}
