package lifecycle

import "fmt"

// AuthorityViolationError is returned when a caller other than the designated
// writer requests a state change. It is a programmer error: never retried,
// always logged at the highest severity.
type AuthorityViolationError struct {
	Actor string
}

func (e *AuthorityViolationError) Error() string {
	return fmt.Sprintf("authority violation: actor %q is not the designated session writer", e.Actor)
}

// InvalidTransitionError is returned when the target state is not reachable
// from the session's current state. The session is left unchanged.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
}
