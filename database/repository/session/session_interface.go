package sessionRepo

import (
	"time"

	"mindwell/models"
)

// SessionRepository defines the data access contract for sessions.
//
// TransitionState is the only write path for the lifecycle state: it applies
// the state change and its companion fields as one guarded server-side update
// and returns the post-update document. MarkReminderSent is similarly a
// guarded checked-then-set so a reminder marker can be claimed exactly once.
type SessionRepository interface {
	Create(session *models.Session) error
	GetByID(id string) (*models.Session, error)

	// TransitionState atomically moves the session from fromState to toState,
	// applying extra document fields in the same update. It returns
	// ErrStateConflict if the stored state no longer equals fromState.
	TransitionState(id string, fromState, toState models.SessionState, set map[string]any) (*models.Session, error)

	// SetVideoState writes the cascaded video-access field.
	SetVideoState(id string, video models.VideoAccessState) error

	// MarkReminderSent claims the sent-marker for the given kind. It returns
	// false when another invocation already claimed it.
	MarkReminderSent(id string, kind models.ReminderKind, at time.Time) (bool, error)

	// AppendPaymentAttempt pushes one entry onto the append-only attempt log.
	AppendPaymentAttempt(id string, attempt models.PaymentAttempt) error

	// SetPaymentFacts updates the locally stored payment facts.
	SetPaymentFacts(id string, status models.PaymentStatus, transactionRef string, amount int64) error

	FindDueForReminder(kind models.ReminderKind, windowStart, windowEnd time.Time) ([]models.Session, error)
	FindStaleProcessing(olderThan time.Time, limit int) ([]models.Session, error)
	FindByTransactionRef(ref string) ([]models.Session, error)
}
