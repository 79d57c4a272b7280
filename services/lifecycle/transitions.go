package lifecycle

import "mindwell/models"

// validTransitions is the session state DAG. Terminal states have no
// successors, and no path leads back to Requested.
var validTransitions = map[models.SessionState][]models.SessionState{
	models.SessionRequested: {
		models.SessionApproved,
		models.SessionCancelled,
	},
	models.SessionApproved: {
		models.SessionPaymentPending,
		models.SessionCancelled,
	},
	models.SessionPaymentPending: {
		models.SessionProcessing,
		models.SessionCancelled,
	},
	models.SessionProcessing: {
		models.SessionFormsRequired,
		models.SessionReady,
		models.SessionCancelled,
	},
	models.SessionFormsRequired: {
		models.SessionReady,
		models.SessionCancelled,
	},
	models.SessionReady: {
		models.SessionInProgress,
		models.SessionNoShowClient,
		models.SessionNoShowTherapist,
		models.SessionCancelled,
	},
	models.SessionInProgress: {
		models.SessionCompleted,
		models.SessionNoShowClient,
		models.SessionNoShowTherapist,
		models.SessionCancelled,
	},
}

// CanTransition reports whether target is reachable from current.
func CanTransition(current, target models.SessionState) bool {
	for _, next := range validTransitions[current] {
		if next == target {
			return true
		}
	}
	return false
}
