package reconciliation

import (
	"context"
	"time"

	"mindwell/models"

	"go.uber.org/zap"
)

// timeAfter is swapped in tests to avoid real inter-batch pauses.
var timeAfter = time.After

// ReconcileBulk processes the given session ids in fixed-size batches with a
// pause between batches to bound gateway load. Per-item failures are
// captured and returned alongside successes and never abort the batch;
// cancelling ctx aborts between batches, returning the results computed so
// far.
func (e *Engine) ReconcileBulk(ctx context.Context, sessionIDs []string, trigger models.ReconcileTrigger) []BulkItemResult {
	results := make([]BulkItemResult, 0, len(sessionIDs))

	for start := 0; start < len(sessionIDs); start += e.BatchSize {
		end := start + e.BatchSize
		if end > len(sessionIDs) {
			end = len(sessionIDs)
		}

		for _, id := range sessionIDs[start:end] {
			item := BulkItemResult{SessionID: id}
			result, err := e.Reconcile(ctx, id, trigger)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Result = result
			}
			results = append(results, item)
		}

		if end == len(sessionIDs) {
			break
		}

		select {
		case <-ctx.Done():
			e.Logger.Info("bulk reconciliation aborted between batches",
				zap.Int("processed", len(results)),
				zap.Int("requested", len(sessionIDs)))
			return results
		case <-timeAfter(e.BatchPause):
		}
	}

	return results
}
