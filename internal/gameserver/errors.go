package gameserver

import (
	"errors"
	"fmt"
)

// UserError is a recoverable failure reported to the acting entity. Its
// Error text is sent verbatim; no state has changed.
type UserError struct {
	Text string
}

func (e *UserError) Error() string { return e.Text }

func userErrorf(format string, args ...any) *UserError {
	return &UserError{Text: fmt.Sprintf(format, args...)}
}

// IsUserError reports whether err is, or wraps, a UserError.
func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// User-facing messages with fixed wording.
const (
	msgNotInCombat   = "You are not in combat."
	msgBlockNotReady = "You are not ready to block again."
	msgDodgeNotReady = "You are not ready to dodge again."
	msgBlockPrepared = "You prepare to block."
	msgDodgePrepared = "You prepare to dodge."
	msgMayActAgain   = "You may act again."
)
