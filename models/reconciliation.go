package models

import "time"

// ReconciliationOutcome classifies a completed reconciliation.
type ReconciliationOutcome string

const (
	ReconciliationMatched     ReconciliationOutcome = "Matched"
	ReconciliationDiscrepancy ReconciliationOutcome = "Discrepancy"
	ReconciliationError       ReconciliationOutcome = "Error"
)

// IssueType identifies one kind of divergence between local and gateway facts.
type IssueType string

const (
	IssueAmountMismatch       IssueType = "amount_mismatch"
	IssueStatusMismatch       IssueType = "status_mismatch"
	IssueResultCodeMismatch   IssueType = "result_code_mismatch"
	IssueDuplicateTransaction IssueType = "duplicate_transaction"
)

// Severity grades discrepancies and error events.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ReconcileTrigger names the event that caused a reconciliation run.
type ReconcileTrigger string

const (
	TriggerCallback   ReconcileTrigger = "payment_callback"
	TriggerInitiation ReconcileTrigger = "payment_initiation"
	TriggerStaleSweep ReconcileTrigger = "stale_sweep"
	TriggerManual     ReconcileTrigger = "manual"
)

// ReconciliationIssue is one detected mismatch.
type ReconciliationIssue struct {
	Type     IssueType `json:"type"`
	Local    string    `json:"local,omitempty"`
	External string    `json:"external,omitempty"`
	Detail   string    `json:"detail,omitempty"`
}

// ReconciliationResult is a derived report, not primary state. It is
// broadcast to observers and logged to the audit trail, never persisted
// as session data.
type ReconciliationResult struct {
	SessionID  string                `json:"sessionId"`
	Outcome    ReconciliationOutcome `json:"outcome"`
	Issues     []ReconciliationIssue `json:"issues,omitempty"`
	Severity   Severity              `json:"severity,omitempty"`
	Trigger    ReconcileTrigger      `json:"trigger"`
	StartedAt  time.Time             `json:"startedAt"`
	Duration   time.Duration         `json:"duration"`
	Error      string                `json:"error,omitempty"`
}
