package handlers

import (
	"net/http"
	"time"

	"mindwell/models"
	"mindwell/services/alerting"
	"mindwell/services/reconciliation"
	"mindwell/services/reminder"
	"mindwell/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler groups the operator-facing endpoints behind admin auth.
type AdminHandler struct {
	reconciler reconciliation.ReconciliationService
	scheduler  *reminder.Scheduler
	tracker    *alerting.Tracker
	logger     *zap.Logger
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(reconciler reconciliation.ReconciliationService, scheduler *reminder.Scheduler, tracker *alerting.Tracker, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{reconciler: reconciler, scheduler: scheduler, tracker: tracker, logger: logger}
}

// ReconcileSession forces a reconciliation run for one session.
func (h *AdminHandler) ReconcileSession(c *gin.Context) {
	result, err := h.reconciler.Reconcile(c.Request.Context(), c.Param("id"), models.TriggerManual)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "reconciliation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReconcileBulk runs reconciliation over an explicit list of sessions.
func (h *AdminHandler) ReconcileBulk(c *gin.Context) {
	var input struct {
		SessionIDs []string `json:"sessionIds" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	results := h.reconciler.ReconcileBulk(c.Request.Context(), input.SessionIDs, models.TriggerManual)
	c.JSON(http.StatusOK, gin.H{"count": len(results), "results": results})
}

// ReconciliationStats returns the engine's rolling statistics.
func (h *AdminHandler) ReconciliationStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.reconciler.GetStats())
}

// RunReminderCheck triggers one reminder sweep outside the schedule.
func (h *AdminHandler) RunReminderCheck(c *gin.Context) {
	kind := models.ReminderKind(c.Query("kind"))
	if kind != models.Reminder24Hour && kind != models.Reminder1Hour {
		utils.JSONError(c, http.StatusBadRequest, "invalid reminder kind", string(kind))
		return
	}
	summary := h.scheduler.RunReminderCheck(kind)
	c.JSON(http.StatusOK, summary)
}

// ErrorStats returns the aggregated error counters.
func (h *AdminHandler) ErrorStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.GetStats())
}

// ErrorRate returns the error count over a query-supplied window.
func (h *AdminHandler) ErrorRate(c *gin.Context) {
	window := 5 * time.Minute
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			utils.JSONError(c, http.StatusBadRequest, "invalid window", raw)
			return
		}
		window = parsed
	}
	c.JSON(http.StatusOK, gin.H{"window": window.String(), "count": h.tracker.ErrorRate(window)})
}

// Health reports the dependency health snapshot.
func (h *AdminHandler) Health(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if !status.Mongo {
		code = http.StatusServiceUnavailable
	}
	for _, ok := range status.Redis {
		if !ok {
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, status)
}
