package reminder

import (
	"context"
	"fmt"
	"time"

	"mindwell/models"

	"go.uber.org/zap"
)

// Summary is the structured result of one reminder sweep.
type Summary struct {
	Kind      models.ReminderKind `json:"kind"`
	Processed int                 `json:"processed"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// sendRecord tracks one attempted channel send for escalation reporting.
type sendRecord struct {
	PartyID string
	Channel string
	Err     error
}

// RunReminderCheck selects sessions inside the kind's window that have not
// yet received this reminder and attempts delivery for both parties. It is
// also the manual-trigger entry point.
func (s *Scheduler) RunReminderCheck(kind models.ReminderKind) Summary {
	now := s.Clock.Now()

	var windowStart, windowEnd time.Time
	if kind == models.Reminder24Hour {
		windowStart, windowEnd = now.Add(window24Start), now.Add(window24End)
	} else {
		windowStart, windowEnd = now.Add(window1Start), now.Add(window1End)
	}

	summary := Summary{Kind: kind}

	sessions, err := s.Repo.FindDueForReminder(kind, windowStart, windowEnd)
	if err != nil {
		s.Logger.Error("reminder window query failed",
			zap.String("kind", string(kind)), zap.Error(err))
		s.Health.TrackError(models.CategoryReminder, "window_query_failed", err.Error(),
			models.SeverityHigh, nil)
		return summary
	}

	for i := range sessions {
		session := &sessions[i]
		summary.Processed++

		// Claim the sent-marker first: the guarded update makes the
		// check-then-set atomic, so a racing sweep for the same (session,
		// kind) performs zero sends. The marker means "attempted", not
		// "delivered".
		claimed, err := s.Repo.MarkReminderSent(session.ID, kind, now)
		if err != nil {
			s.Logger.Error("failed to claim reminder marker",
				zap.String("sessionId", session.ID), zap.Error(err))
			summary.Failed++
			continue
		}
		if !claimed {
			continue
		}

		if s.sendForSession(session, kind, now) {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}

	return summary
}

// sendForSession attempts every non-skipped channel for both parties. It
// returns false when nothing succeeded and at least one failure, send or
// party lookup, was recorded, in which case it escalates to the operator.
func (s *Scheduler) sendForSession(session *models.Session, kind models.ReminderKind, now time.Time) bool {
	attempted := 0
	succeeded := 0
	var failures []sendRecord

	for _, partyID := range []string{session.ClientID, session.TherapistID} {
		party, err := s.Parties.GetByID(partyID)
		if err != nil {
			s.Logger.Warn("reminder party lookup failed",
				zap.String("sessionId", session.ID),
				zap.String("partyId", partyID),
				zap.Error(err))
			s.Health.TrackError(models.CategoryReminder, "party_lookup_failed", err.Error(),
				models.SeverityMedium,
				map[string]any{"sessionId": session.ID, "partyId": partyID})
			failures = append(failures, sendRecord{PartyID: partyID, Channel: "lookup", Err: err})
			continue
		}

		if party.Preferences.OptedOut {
			continue
		}

		if reason := emailSkip(party); reason == "" {
			attempted++
			if err := s.sendEmail(session, party, kind); err != nil {
				failures = append(failures, sendRecord{PartyID: party.ID, Channel: "email", Err: err})
			} else {
				succeeded++
			}
		}

		if reason := smsSkip(party, now); reason == "" {
			attempted++
			if err := s.sendSMS(session, party, kind); err != nil {
				failures = append(failures, sendRecord{PartyID: party.ID, Channel: "sms", Err: err})
			} else {
				succeeded++
			}
		}
	}

	s.Audit.Append(models.AuditEvent{
		Type:      models.AuditReminderRun,
		SessionID: session.ID,
		Reason:    string(kind),
		Details: map[string]any{
			"attempted": attempted,
			"succeeded": succeeded,
			"failed":    len(failures),
		},
		Timestamp: time.Now(),
	})

	// Escalate only when at least one real failure was recorded: a session
	// where every channel was skipped produces no failures and no
	// escalation. Lookup failures count so a broken party store is not
	// silently a success.
	if succeeded == 0 && len(failures) > 0 {
		s.escalate(session, kind, failures)
		return false
	}
	return true
}

func (s *Scheduler) sendEmail(session *models.Session, party *models.Party, kind models.ReminderKind) error {
	msg := reminderEmail(session, party, kind)
	correlationID := fmt.Sprintf("reminder:%s:%s", session.ID, party.ID)

	result := s.Retry.SendWithRetry(func() error {
		return s.Channel.SendEmail(context.Background(), msg)
	}, correlationID, string(kind)+"-email")

	if result.Outcome == models.SendSucceeded {
		s.Health.TrackChannelSuccess("email")
		return nil
	}
	s.Health.TrackChannelFailure("email")
	s.Health.TrackError(models.CategoryNotification, "reminder_email_failed",
		fmt.Sprintf("reminder email failed after %d attempts", result.Attempts),
		models.SeverityMedium,
		map[string]any{"sessionId": session.ID, "partyId": party.ID})
	return result.Err
}

func (s *Scheduler) sendSMS(session *models.Session, party *models.Party, kind models.ReminderKind) error {
	msg := reminderSMS(session, party, kind)
	correlationID := fmt.Sprintf("reminder:%s:%s", session.ID, party.ID)

	result := s.Retry.SendWithRetry(func() error {
		return s.Channel.SendSMS(context.Background(), msg)
	}, correlationID, string(kind)+"-sms")

	if result.Outcome == models.SendSucceeded {
		s.Health.TrackChannelSuccess("sms")
		return nil
	}
	s.Health.TrackChannelFailure("sms")
	s.Health.TrackError(models.CategoryNotification, "reminder_sms_failed",
		fmt.Sprintf("reminder sms failed after %d attempts", result.Attempts),
		models.SeverityMedium,
		map[string]any{"sessionId": session.ID, "partyId": party.ID})
	return result.Err
}

// escalate notifies the operator that every attempted send for a session
// failed. End users never see reminder failures.
func (s *Scheduler) escalate(session *models.Session, kind models.ReminderKind, failures []sendRecord) {
	detail := ""
	for i, f := range failures {
		if i > 0 {
			detail += "; "
		}
		detail += fmt.Sprintf("%s/%s: %v", f.PartyID, f.Channel, f.Err)
	}

	s.Logger.Error("all reminder sends failed for session",
		zap.String("sessionId", session.ID),
		zap.String("kind", string(kind)),
		zap.String("failures", detail))

	s.Health.TrackError(models.CategoryReminder, "all_sends_failed",
		"no reminder delivery succeeded",
		models.SeverityHigh,
		map[string]any{"sessionId": session.ID, "kind": string(kind), "failures": detail})

	if s.Operator.Email == "" {
		return
	}
	msg := models.EmailMessage{
		To:       s.Operator.Email,
		Subject:  fmt.Sprintf("Reminder delivery failed for session %s", session.ID),
		TextBody: fmt.Sprintf("All attempted %s reminder sends failed for session %s: %s", kind, session.ID, detail),
		HTMLBody: fmt.Sprintf("<p>All attempted %s reminder sends failed for session %s: %s</p>", kind, session.ID, detail),
	}
	result := s.Retry.SendWithRetry(func() error {
		return s.Channel.SendEmail(context.Background(), msg)
	}, "escalation:"+session.ID, string(kind)+"-operator")
	if result.Outcome != models.SendSucceeded {
		s.Logger.Error("operator escalation email failed",
			zap.String("sessionId", session.ID), zap.Error(result.Err))
	}
}

func reminderEmail(session *models.Session, party *models.Party, kind models.ReminderKind) models.EmailMessage {
	lead := "24 hours"
	if kind == models.Reminder1Hour {
		lead = "1 hour"
	}
	when := session.ScheduledAt.Format("Mon, Jan 2 at 15:04")
	return models.EmailMessage{
		To:       party.Email,
		Subject:  fmt.Sprintf("Your therapy session is in %s", lead),
		TextBody: fmt.Sprintf("Hi %s, this is a reminder that your session is scheduled for %s.", party.Name, when),
		HTMLBody: fmt.Sprintf("<p>Hi %s,</p><p>This is a reminder that your session is scheduled for <strong>%s</strong>.</p>", party.Name, when),
	}
}

func reminderSMS(session *models.Session, party *models.Party, kind models.ReminderKind) models.SMSMessage {
	lead := "24 hours"
	if kind == models.Reminder1Hour {
		lead = "1 hour"
	}
	return models.SMSMessage{
		To:   party.Phone,
		Body: fmt.Sprintf("Reminder: your therapy session starts in %s (%s).", lead, session.ScheduledAt.Format("Jan 2 15:04")),
	}
}
