package lifecycle

// SessionWriterActor is the single designated writer identity for session
// state. Every transition request must carry it; there is no bypass.
const SessionWriterActor = "lifecycle-service"

// TransitionContext carries the who and why of a state change. Fields are
// named and typed so the authority check is statically verifiable instead of
// fishing values out of a loose metadata bag.
type TransitionContext struct {
	Reason   string
	Actor    string
	UserID   string
	Metadata map[string]any
}

// checkAuthority rejects any actor other than the designated writer.
func checkAuthority(tc TransitionContext) error {
	if tc.Actor != SessionWriterActor {
		return &AuthorityViolationError{Actor: tc.Actor}
	}
	return nil
}
