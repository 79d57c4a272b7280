package lifecycle

import (
	"fmt"
	"time"

	"mindwell/models"
)

// RecordPaymentInitiated moves an approved session into PaymentPending and
// stores the initiated payment facts.
func (s *DefaultLifecycleService) RecordPaymentInitiated(session *models.Session, amount int64, methodRef, userID string) (*models.Session, error) {
	tc := s.context("payment initiated", userID, map[string]any{
		"amount":    amount,
		"methodRef": methodRef,
	})

	updated, err := s.Updater.Transition(session, models.SessionPaymentPending, tc, map[string]any{
		"payment.status":            models.PaymentPending,
		"payment.amount":            amount,
		"payment.method_ref":        methodRef,
		"payment.status_changed_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RecordPaymentProcessing marks the external charge as in flight.
func (s *DefaultLifecycleService) RecordPaymentProcessing(session *models.Session, transactionRef string) (*models.Session, error) {
	tc := s.context("payment processing", "", map[string]any{
		"transactionRef": transactionRef,
	})

	return s.Updater.Transition(session, models.SessionProcessing, tc, map[string]any{
		"payment.status":            models.PaymentProcessing,
		"payment.transaction_ref":   transactionRef,
		"payment.status_changed_at": time.Now(),
	})
}

// RecordPaymentOutcome applies a gateway callback verdict. A successful
// payment advances the session toward Ready (via FormsRequired when intake
// forms are still outstanding); a failed one records the facts and leaves
// the state for a retried charge.
func (s *DefaultLifecycleService) RecordPaymentOutcome(session *models.Session, attempt models.PaymentAttempt) (*models.Session, error) {
	if err := s.Repo.AppendPaymentAttempt(session.ID, attempt); err != nil {
		return nil, fmt.Errorf("failed to record payment attempt for session %s: %w", session.ID, err)
	}

	if !attempt.Success {
		if err := s.Repo.SetPaymentFacts(session.ID, models.PaymentFailed, attempt.Reference, 0); err != nil {
			return nil, err
		}
		return s.Repo.GetByID(session.ID)
	}

	target := models.SessionReady
	if !session.FormsComplete {
		target = models.SessionFormsRequired
	}

	tc := s.context("payment confirmed", "", map[string]any{
		"transactionRef": attempt.Reference,
		"resultCode":     attempt.ResultCode,
	})

	return s.Updater.Transition(session, target, tc, map[string]any{
		"payment.status":            models.PaymentPaid,
		"payment.transaction_ref":   attempt.Reference,
		"payment.status_changed_at": time.Now(),
	})
}
