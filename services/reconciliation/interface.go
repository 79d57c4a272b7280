package reconciliation

import (
	"context"

	"mindwell/models"
)

// ReconciliationService diffs local payment facts against the external
// gateway and fans out the classified result.
type ReconciliationService interface {
	// Reconcile runs (or joins) the reconciliation for one session. Two
	// concurrent calls for the same session share one run and one gateway
	// query.
	Reconcile(ctx context.Context, sessionID string, trigger models.ReconcileTrigger) (*models.ReconciliationResult, error)

	// ReconcileBulk processes ids in fixed-size batches with a pause between
	// batches. Per-item failures are captured alongside successes; ctx
	// cancellation aborts between batches without losing computed results.
	ReconcileBulk(ctx context.Context, sessionIDs []string, trigger models.ReconcileTrigger) []BulkItemResult

	// GetStats returns the rolling statistics snapshot.
	GetStats() Stats
}

// BulkItemResult pairs one session id with its outcome in a bulk run.
type BulkItemResult struct {
	SessionID string                       `json:"sessionId"`
	Result    *models.ReconciliationResult `json:"result,omitempty"`
	Error     string                       `json:"error,omitempty"`
}

// Stats are the engine's rolling statistics.
type Stats struct {
	TotalProcessed int64   `json:"totalProcessed"`
	Matched        int64   `json:"matched"`
	Discrepancies  int64   `json:"discrepancies"`
	Errors         int64   `json:"errors"`
	AvgLatencyMs   float64 `json:"avgLatencyMs"`
}
