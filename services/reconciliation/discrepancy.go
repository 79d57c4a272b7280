package reconciliation

import (
	"context"
	"fmt"
	"time"

	auditRepo "mindwell/database/repository/audit"
	"mindwell/models"
	"mindwell/services/broadcast"
	"mindwell/services/notification"

	"go.uber.org/zap"
)

// OperatorContact is the out-of-band escalation target for high-severity
// discrepancies.
type OperatorContact struct {
	Email string
	Phone string
}

// DiscrepancyHandler consumes discrepancy results, broadcasts an alert for
// every one, escalates high severity to the operator contact, and always
// appends to the audit trail.
type DiscrepancyHandler struct {
	Hub      *broadcast.ObserverHub
	Channel  notification.NotificationChannel
	Retry    *notification.RetryManager
	Audit    auditRepo.AuditSink
	Operator OperatorContact
	Logger   *zap.Logger
}

// Handle processes one discrepancy result.
func (h *DiscrepancyHandler) Handle(result *models.ReconciliationResult) {
	severity := result.Severity
	if severity == "" {
		severity = SeverityForIssues(result.Issues)
	}

	if h.Hub != nil {
		h.Hub.Broadcast(broadcast.Message{Type: "discrepancy_alert", Payload: result})
	}

	if severity == models.SeverityHigh {
		h.notifyOperator(result)
	}

	h.Audit.Append(models.AuditEvent{
		Type:      models.AuditDiscrepancy,
		SessionID: result.SessionID,
		Reason:    string(severity),
		Details: map[string]any{
			"issues":  result.Issues,
			"trigger": string(result.Trigger),
		},
		Timestamp: time.Now(),
	})
}

// notifyOperator sends the out-of-band email and SMS escalation through the
// same channel collaborator the reminder path uses.
func (h *DiscrepancyHandler) notifyOperator(result *models.ReconciliationResult) {
	if h.Channel == nil || h.Retry == nil {
		return
	}

	correlationID := "discrepancy:" + result.SessionID
	summary := summarizeIssues(result.Issues)

	if h.Operator.Email != "" {
		email := models.EmailMessage{
			To:       h.Operator.Email,
			Subject:  fmt.Sprintf("High-severity payment discrepancy on session %s", result.SessionID),
			HTMLBody: fmt.Sprintf("<p>Session %s: %s</p>", result.SessionID, summary),
			TextBody: fmt.Sprintf("Session %s: %s", result.SessionID, summary),
		}
		res := h.Retry.SendWithRetry(func() error {
			return h.Channel.SendEmail(context.Background(), email)
		}, correlationID, "operator-email")
		if res.Outcome != models.SendSucceeded {
			h.Logger.Error("operator email escalation failed",
				zap.String("sessionId", result.SessionID), zap.Error(res.Err))
		}
	}

	if h.Operator.Phone != "" {
		sms := models.SMSMessage{
			To:   h.Operator.Phone,
			Body: fmt.Sprintf("Payment discrepancy (high): session %s, %s", result.SessionID, summary),
		}
		res := h.Retry.SendWithRetry(func() error {
			return h.Channel.SendSMS(context.Background(), sms)
		}, correlationID, "operator-sms")
		if res.Outcome != models.SendSucceeded {
			h.Logger.Error("operator sms escalation failed",
				zap.String("sessionId", result.SessionID), zap.Error(res.Err))
		}
	}
}

func summarizeIssues(issues []models.ReconciliationIssue) string {
	if len(issues) == 0 {
		return "no issue detail"
	}
	out := ""
	for i, issue := range issues {
		if i > 0 {
			out += "; "
		}
		out += string(issue.Type)
		if issue.Local != "" || issue.External != "" {
			out += fmt.Sprintf(" (local=%s external=%s)", issue.Local, issue.External)
		}
	}
	return out
}
