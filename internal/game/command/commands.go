// Package command parses player text into the typed combat commands the
// simulation consumes.
package command

// Command categories for help display.
const (
	CategoryCombat = "combat"
	CategorySystem = "system"
)

// Handler identifiers mapping commands to simulation inputs.
const (
	HandlerAdvance = "advance"
	HandlerRetreat = "retreat"
	HandlerAttack  = "attack"
	HandlerUse     = "use"
	HandlerBlock   = "block"
	HandlerDodge   = "dodge"
	HandlerStatus  = "status"
	HandlerHelp    = "help"
	HandlerQuit    = "quit"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text displayed to players.
	Help string
	// Category groups the command (combat, system).
	Category string
	// Handler maps to the simulation input it produces.
	Handler string
}

// BuiltinCommands returns all built-in commands.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "advance", Aliases: []string{"adv", "close"}, Help: "Close the distance to your opponent", Category: CategoryCombat, Handler: HandlerAdvance},
		{Name: "retreat", Aliases: []string{"ret", "back"}, Help: "Open the distance to your opponent", Category: CategoryCombat, Handler: HandlerRetreat},
		{Name: "attack", Aliases: []string{"att", "kill", "k"}, Help: "Attack a target", Category: CategoryCombat, Handler: HandlerAttack},
		{Name: "use", Aliases: []string{"u"}, Help: "Use a skill: use <skill> [target]", Category: CategoryCombat, Handler: HandlerUse},
		{Name: "block", Aliases: []string{"bl"}, Help: "Prepare to block the next blow", Category: CategoryCombat, Handler: HandlerBlock},
		{Name: "dodge", Aliases: []string{"dg"}, Help: "Prepare to dodge the next blow", Category: CategoryCombat, Handler: HandlerDodge},
		{Name: "status", Aliases: []string{"st", "score"}, Help: "Show your condition", Category: CategorySystem, Handler: HandlerStatus},
		{Name: "help", Aliases: []string{"?"}, Help: "List commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"q", "exit"}, Help: "Leave the simulation", Category: CategorySystem, Handler: HandlerQuit},
	}
}
