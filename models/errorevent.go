package models

import "time"

// ErrorCategory groups tracked error events for counters and retention.
type ErrorCategory string

const (
	CategoryLifecycle      ErrorCategory = "lifecycle"
	CategoryPayment        ErrorCategory = "payment"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryNotification   ErrorCategory = "notification"
	CategoryReminder       ErrorCategory = "reminder"
	CategoryPersistence    ErrorCategory = "persistence"
)

// ErrorEvent is one tracked failure, with secrets redacted from context.
type ErrorEvent struct {
	ID        string         `json:"id"`
	Category  ErrorCategory  `json:"category"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Severity  Severity       `json:"severity"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Resolved  bool           `json:"resolved"`
}
