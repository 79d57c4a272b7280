package lifecycle

import "mindwell/models"

// CompleteInput carries the closing details of a finished session.
type CompleteInput struct {
	DurationMinutes int
	Notes           string
	UserID          string
}

// SessionLifecycleService is the only call surface permitted to mutate
// session state. Each method is a named wrapper around the atomic updater
// that fixes the target state and drives the cascading side effects.
type SessionLifecycleService interface {
	Approve(session *models.Session, therapistID string, extra map[string]any) (*models.Session, error)
	MarkReady(session *models.Session, extra map[string]any) (*models.Session, error)
	Start(session *models.Session, userID string) (*models.Session, error)
	Complete(session *models.Session, input CompleteInput) (*models.Session, error)
	Cancel(session *models.Session, reason, userID string) (*models.Session, error)
	MarkNoShow(session *models.Session, who models.PartyRole, detectedBy string) (*models.Session, error)
	UpdateFormsStatus(session *models.Session, complete bool, userID string) (*models.Session, error)
}

// ErrorTracker is the slice of the alerting surface the lifecycle service
// needs for reporting cascade failures.
type ErrorTracker interface {
	TrackError(category models.ErrorCategory, code, message string, severity models.Severity, context map[string]any)
}
