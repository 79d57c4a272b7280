package lifecycle

import (
	"fmt"
	"time"

	auditRepo "mindwell/database/repository/audit"
	sessionRepo "mindwell/database/repository/session"
	"mindwell/models"

	"go.uber.org/zap"
)

// AtomicStateUpdater performs a session state transition as one indivisible
// write. It is the sole consumer of the repository's guarded transition
// update; on persistence failure the pre-transition state remains effective.
type AtomicStateUpdater struct {
	Repo   sessionRepo.SessionRepository
	Audit  auditRepo.AuditSink
	Logger *zap.Logger
}

// Transition validates the caller's authority and the target state, applies
// the guarded write, and records an audit event. It returns the post-update
// entity.
func (u *AtomicStateUpdater) Transition(
	session *models.Session,
	target models.SessionState,
	tc TransitionContext,
	set map[string]any,
) (*models.Session, error) {
	if err := checkAuthority(tc); err != nil {
		u.Logger.Error("session transition rejected: authority violation",
			zap.String("sessionId", session.ID),
			zap.String("actor", tc.Actor),
			zap.String("target", string(target)))
		return nil, err
	}

	if !CanTransition(session.State, target) {
		return nil, &InvalidTransitionError{From: string(session.State), To: string(target)}
	}

	updated, err := u.Repo.TransitionState(session.ID, session.State, target, set)
	if err != nil {
		return nil, fmt.Errorf("failed to persist transition of session %s: %w", session.ID, err)
	}

	u.Audit.Append(models.AuditEvent{
		Type:      models.AuditStateTransition,
		SessionID: session.ID,
		Actor:     tc.Actor,
		OldState:  string(session.State),
		NewState:  string(target),
		Reason:    tc.Reason,
		Details:   tc.Metadata,
		Timestamp: time.Now(),
	})

	u.Logger.Info("session state transitioned",
		zap.String("sessionId", session.ID),
		zap.String("from", string(session.State)),
		zap.String("to", string(target)),
		zap.String("reason", tc.Reason))

	return updated, nil
}

// UpdateMetadata applies a metadata-only write under the same guard and
// authority check as a transition. The state filter still protects against a
// concurrent transition clobbering the write, and the update is audited with
// an unchanged state pair.
func (u *AtomicStateUpdater) UpdateMetadata(
	session *models.Session,
	tc TransitionContext,
	set map[string]any,
) (*models.Session, error) {
	if err := checkAuthority(tc); err != nil {
		u.Logger.Error("session metadata update rejected: authority violation",
			zap.String("sessionId", session.ID),
			zap.String("actor", tc.Actor))
		return nil, err
	}

	updated, err := u.Repo.TransitionState(session.ID, session.State, session.State, set)
	if err != nil {
		return nil, fmt.Errorf("failed to persist metadata update of session %s: %w", session.ID, err)
	}

	u.Audit.Append(models.AuditEvent{
		Type:      models.AuditStateTransition,
		SessionID: session.ID,
		Actor:     tc.Actor,
		OldState:  string(session.State),
		NewState:  string(session.State),
		Reason:    tc.Reason,
		Details:   tc.Metadata,
		Timestamp: time.Now(),
	})

	return updated, nil
}
