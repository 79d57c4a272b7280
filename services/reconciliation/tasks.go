package reconciliation

import (
	"encoding/json"
	"time"

	"mindwell/models"

	"github.com/hibiken/asynq"
)

// TypeReconcileSession is the asynq task type for queued reconciliations.
const TypeReconcileSession = "reconcile:session"

// ReconcilePayload is the queued task body.
type ReconcilePayload struct {
	SessionID string                  `json:"sessionId"`
	Trigger   models.ReconcileTrigger `json:"trigger"`
}

// NewReconcileTask builds the asynq task for a session reconciliation. A
// non-zero delay defers processing, used to let callback handling settle
// before the post-callback reconciliation runs.
func NewReconcileTask(payload ReconcilePayload, delay time.Duration) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReconcileSession, b)

	var opts []asynq.Option
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	return task, opts, nil
}
