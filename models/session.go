package models

import "time"

// SessionState is the authoritative lifecycle state of a therapy session.
type SessionState string

const (
	SessionRequested       SessionState = "Requested"
	SessionApproved        SessionState = "Approved"
	SessionPaymentPending  SessionState = "PaymentPending"
	SessionProcessing      SessionState = "Processing"
	SessionFormsRequired   SessionState = "FormsRequired"
	SessionReady           SessionState = "Ready"
	SessionInProgress      SessionState = "InProgress"
	SessionCompleted       SessionState = "Completed"
	SessionCancelled       SessionState = "Cancelled"
	SessionNoShowClient    SessionState = "NoShowClient"
	SessionNoShowTherapist SessionState = "NoShowTherapist"
)

// VideoAccessState is derived from the session state and never set directly.
type VideoAccessState string

const (
	VideoNotStarted             VideoAccessState = "NotStarted"
	VideoWaitingForParticipants VideoAccessState = "WaitingForParticipants"
	VideoActive                 VideoAccessState = "Active"
	VideoEnded                  VideoAccessState = "Ended"
)

// ReminderKind identifies one of the scheduled reminder sweeps.
type ReminderKind string

const (
	Reminder24Hour ReminderKind = "24h"
	Reminder1Hour  ReminderKind = "1h"
)

// ReminderMarker records that a reminder of one kind was attempted.
type ReminderMarker struct {
	Sent   bool       `bson:"sent" json:"sent"`
	SentAt *time.Time `bson:"sent_at,omitempty" json:"sentAt,omitempty"`
}

// Session is the central entity. It is mutated exclusively through the
// lifecycle service; terminal sessions are never deleted.
type Session struct {
	ID          string `bson:"id" json:"id"`
	ClientID    string `bson:"client_id" json:"clientId"`
	TherapistID string `bson:"therapist_id" json:"therapistId"`

	ScheduledAt     time.Time `bson:"scheduled_at" json:"scheduledAt"`
	DurationMinutes int       `bson:"duration_minutes" json:"durationMinutes"`

	State SessionState     `bson:"state" json:"state"`
	Video VideoAccessState `bson:"video" json:"video"`

	Payment PaymentInfo `bson:"payment" json:"payment"`

	FormsComplete    bool       `bson:"forms_complete" json:"formsComplete"`
	FormsCompletedBy string     `bson:"forms_completed_by,omitempty" json:"formsCompletedBy,omitempty"`
	FormsCompletedAt *time.Time `bson:"forms_completed_at,omitempty" json:"formsCompletedAt,omitempty"`

	Reminder24H ReminderMarker `bson:"reminder_24h" json:"reminder24h"`
	Reminder1H  ReminderMarker `bson:"reminder_1h" json:"reminder1h"`

	StartedAt    *time.Time `bson:"started_at,omitempty" json:"startedAt,omitempty"`
	EndedAt      *time.Time `bson:"ended_at,omitempty" json:"endedAt,omitempty"`
	ActualLength int        `bson:"actual_length,omitempty" json:"actualLength,omitempty"`
	Notes        string     `bson:"notes,omitempty" json:"notes,omitempty"`
	CancelReason string     `bson:"cancel_reason,omitempty" json:"cancelReason,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsTerminal reports whether the session has reached a final state.
func (s *Session) IsTerminal() bool {
	switch s.State {
	case SessionCompleted, SessionCancelled, SessionNoShowClient, SessionNoShowTherapist:
		return true
	}
	return false
}

// ReminderSent reports whether the reminder of the given kind was attempted.
func (s *Session) ReminderSent(kind ReminderKind) bool {
	if kind == Reminder24Hour {
		return s.Reminder24H.Sent
	}
	return s.Reminder1H.Sent
}
