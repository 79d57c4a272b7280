package models

import "time"

// AuditEventType names the kinds of events recorded on the audit trail.
type AuditEventType string

const (
	AuditStateTransition AuditEventType = "state_transition"
	AuditReconciliation  AuditEventType = "reconciliation"
	AuditDiscrepancy     AuditEventType = "discrepancy"
	AuditReminderRun     AuditEventType = "reminder_run"
	AuditAlert           AuditEventType = "alert"
)

// AuditEvent is the append-only audit trail record. Writes are
// fire-and-forget; a failed append never fails the primary operation.
type AuditEvent struct {
	ID        string         `bson:"id" json:"id"`
	Type      AuditEventType `bson:"type" json:"type"`
	SessionID string         `bson:"session_id,omitempty" json:"sessionId,omitempty"`
	Actor     string         `bson:"actor,omitempty" json:"actor,omitempty"`
	OldState  string         `bson:"old_state,omitempty" json:"oldState,omitempty"`
	NewState  string         `bson:"new_state,omitempty" json:"newState,omitempty"`
	Reason    string         `bson:"reason,omitempty" json:"reason,omitempty"`
	Details   map[string]any `bson:"details,omitempty" json:"details,omitempty"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
}
