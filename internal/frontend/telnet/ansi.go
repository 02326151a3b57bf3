package telnet

// ANSI escape codes for the colors the lobby uses.
const (
	Reset        = "\033[0m"
	Bold         = "\033[1m"
	Red          = "\033[31m"
	Green        = "\033[32m"
	BrightYellow = "\033[93m"
	BrightWhite  = "\033[97m"
)

// Colorize wraps text with color and a reset suffix.
//
// Precondition: color must be a valid ANSI escape sequence.
func Colorize(color, text string) string {
	return color + text + Reset
}
