package reconciliation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	sessionRepo "mindwell/database/repository/session"
	"mindwell/models"
	"mindwell/services/broadcast"
	"mindwell/services/payment"

	"go.uber.org/zap"
)

// inFlightRun is shared by every caller that joins a reconciliation already
// running for the same session.
type inFlightRun struct {
	done   chan struct{}
	result *models.ReconciliationResult
	err    error
}

// Engine is the production reconciliation implementation.
type Engine struct {
	Repo        sessionRepo.SessionRepository
	Gateway     payment.PaymentGateway
	Hub         *broadcast.ObserverHub
	Discrepancy *DiscrepancyHandler
	Logger      *zap.Logger

	BatchSize  int
	BatchPause time.Duration

	mu       sync.Mutex
	inFlight map[string]*inFlightRun
	stats    Stats
}

// NewEngine creates a reconciliation engine.
func NewEngine(
	repo sessionRepo.SessionRepository,
	gateway payment.PaymentGateway,
	hub *broadcast.ObserverHub,
	discrepancy *DiscrepancyHandler,
	logger *zap.Logger,
	batchSize int,
	batchPause time.Duration,
) *Engine {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Engine{
		Repo:        repo,
		Gateway:     gateway,
		Hub:         hub,
		Discrepancy: discrepancy,
		Logger:      logger,
		BatchSize:   batchSize,
		BatchPause:  batchPause,
		inFlight:    make(map[string]*inFlightRun),
	}
}

// Reconcile runs the reconciliation for one session, or joins the run
// already in flight for it. The in-flight map keyed by session id serializes
// reconciliation per session without a global lock.
func (e *Engine) Reconcile(ctx context.Context, sessionID string, trigger models.ReconcileTrigger) (*models.ReconciliationResult, error) {
	e.mu.Lock()
	if run, ok := e.inFlight[sessionID]; ok {
		e.mu.Unlock()
		select {
		case <-run.done:
			return run.result, run.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	run := &inFlightRun{done: make(chan struct{})}
	e.inFlight[sessionID] = run
	e.mu.Unlock()

	result, err := e.execute(ctx, sessionID, trigger)

	run.result = result
	run.err = err
	close(run.done)

	e.mu.Lock()
	delete(e.inFlight, sessionID)
	e.mu.Unlock()

	return result, err
}

// execute performs one reconciliation run end to end.
func (e *Engine) execute(ctx context.Context, sessionID string, trigger models.ReconcileTrigger) (*models.ReconciliationResult, error) {
	started := time.Now()

	session, err := e.Repo.GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: failed to load session %s: %w", sessionID, err)
	}

	result := &models.ReconciliationResult{
		SessionID: sessionID,
		Trigger:   trigger,
		StartedAt: started,
	}

	external, err := e.Gateway.FetchPaymentFacts(ctx, session.Payment.TransactionRef)
	if err != nil {
		result.Outcome = models.ReconciliationError
		result.Error = err.Error()
		result.Duration = time.Since(started)
		e.recordAndFanOut(result)
		e.Logger.Warn("reconciliation gateway query failed",
			zap.String("sessionId", sessionID),
			zap.Error(err))
		return result, nil
	}

	result.Issues = e.compare(session, external)
	result.Duration = time.Since(started)

	if len(result.Issues) == 0 {
		result.Outcome = models.ReconciliationMatched
	} else {
		result.Outcome = models.ReconciliationDiscrepancy
		result.Severity = SeverityForIssues(result.Issues)
	}

	e.recordAndFanOut(result)
	return result, nil
}

// compare diffs local against external payment facts.
func (e *Engine) compare(session *models.Session, external *models.ExternalPaymentFacts) []models.ReconciliationIssue {
	var issues []models.ReconciliationIssue

	if session.Payment.Amount != external.Amount {
		issues = append(issues, models.ReconciliationIssue{
			Type:     models.IssueAmountMismatch,
			Local:    strconv.FormatInt(session.Payment.Amount, 10),
			External: strconv.FormatInt(external.Amount, 10),
		})
	}

	if session.Payment.Status != external.Status {
		issues = append(issues, models.ReconciliationIssue{
			Type:     models.IssueStatusMismatch,
			Local:    string(session.Payment.Status),
			External: string(external.Status),
		})
	}

	if code := lastResultCode(session); code != "" && external.ResultCode != "" && code != external.ResultCode {
		issues = append(issues, models.ReconciliationIssue{
			Type:     models.IssueResultCodeMismatch,
			Local:    code,
			External: external.ResultCode,
		})
	}

	if session.Payment.TransactionRef != "" {
		holders, err := e.Repo.FindByTransactionRef(session.Payment.TransactionRef)
		if err != nil {
			e.Logger.Warn("duplicate transaction check failed",
				zap.String("sessionId", session.ID), zap.Error(err))
		} else if len(holders) > 1 {
			issues = append(issues, models.ReconciliationIssue{
				Type:   models.IssueDuplicateTransaction,
				Detail: fmt.Sprintf("transaction ref used by %d sessions", len(holders)),
			})
		}
	}

	return issues
}

// recordAndFanOut updates the rolling stats and pushes the result to every
// subscriber; discrepancies are additionally routed to the handler.
func (e *Engine) recordAndFanOut(result *models.ReconciliationResult) {
	e.mu.Lock()
	e.stats.TotalProcessed++
	switch result.Outcome {
	case models.ReconciliationMatched:
		e.stats.Matched++
	case models.ReconciliationDiscrepancy:
		e.stats.Discrepancies++
	case models.ReconciliationError:
		e.stats.Errors++
	}
	n := float64(e.stats.TotalProcessed)
	latest := float64(result.Duration.Milliseconds())
	e.stats.AvgLatencyMs = (e.stats.AvgLatencyMs*(n-1) + latest) / n
	e.mu.Unlock()

	if e.Hub != nil {
		e.Hub.Broadcast(broadcast.Message{Type: "reconciliation", Payload: result})
	}

	if result.Outcome == models.ReconciliationDiscrepancy && e.Discrepancy != nil {
		e.Discrepancy.Handle(result)
	}
}

// GetStats returns the rolling statistics snapshot.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

func lastResultCode(session *models.Session) string {
	if n := len(session.Payment.Attempts); n > 0 {
		return session.Payment.Attempts[n-1].ResultCode
	}
	return ""
}

// SeverityForIssues computes discrepancy severity from the issue-type set:
// amount mismatch or duplicate transaction is high, status or result-code
// disagreement is medium, anything else low.
func SeverityForIssues(issues []models.ReconciliationIssue) models.Severity {
	severity := models.SeverityLow
	for _, issue := range issues {
		switch issue.Type {
		case models.IssueAmountMismatch, models.IssueDuplicateTransaction:
			return models.SeverityHigh
		case models.IssueStatusMismatch, models.IssueResultCodeMismatch:
			severity = models.SeverityMedium
		}
	}
	return severity
}
