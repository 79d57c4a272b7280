package handlers

import (
	"errors"
	"net/http"
	"time"

	"mindwell/config"
	"mindwell/cron"
	sessionRepo "mindwell/database/repository/session"
	"mindwell/models"
	"mindwell/services/lifecycle"
	"mindwell/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentHandler receives payment initiations and provider callbacks.
type PaymentHandler struct {
	repo    sessionRepo.SessionRepository
	service *lifecycle.DefaultLifecycleService
	logger  *zap.Logger
}

// NewPaymentHandler creates a payment handler.
func NewPaymentHandler(repo sessionRepo.SessionRepository, service *lifecycle.DefaultLifecycleService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{repo: repo, service: service, logger: logger}
}

// InitiatePayment records that a payment has been started for a session.
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var input struct {
		Amount    int64  `json:"amount" binding:"required"`
		MethodRef string `json:"methodRef"`
		UserID    string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, sessionRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "session not found", c.Param("id"))
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to load session", err.Error())
		return
	}

	updated, err := h.service.RecordPaymentInitiated(session, input.Amount, input.MethodRef, input.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := cron.EnqueueReconcile(updated.ID, models.TriggerInitiation, 0); err != nil {
		h.logger.Error("failed to enqueue reconciliation after initiation",
			zap.String("sessionId", updated.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, updated)
}

// PaymentCallback ingests the provider's asynchronous payment result.
// The attempt is recorded before any state transition so the attempt
// history survives even when the transition is rejected.
func (h *PaymentHandler) PaymentCallback(c *gin.Context) {
	var input struct {
		SessionID      string `json:"sessionId" binding:"required"`
		TransactionRef string `json:"transactionRef" binding:"required"`
		Amount         int64  `json:"amount"`
		ResultCode     string `json:"resultCode"`
		ResultDesc     string `json:"resultDesc"`
		Success        bool   `json:"success"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, err := h.repo.GetByID(input.SessionID)
	if err != nil {
		if errors.Is(err, sessionRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "session not found", input.SessionID)
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to load session", err.Error())
		return
	}

	if session.State == models.SessionPaymentPending {
		session, err = h.service.RecordPaymentProcessing(session, input.TransactionRef)
		if err != nil {
			h.respondError(c, err)
			return
		}
	}

	attempt := models.PaymentAttempt{
		Timestamp:  time.Now(),
		Amount:     input.Amount,
		Reference:  input.TransactionRef,
		ResultCode: input.ResultCode,
		ResultDesc: input.ResultDesc,
		Success:    input.Success,
	}

	updated, err := h.service.RecordPaymentOutcome(session, attempt)
	if err != nil {
		h.respondError(c, err)
		return
	}

	settle := time.Duration(config.AppConfig.ReconcileSettleDelaySec) * time.Second
	if err := cron.EnqueueReconcile(updated.ID, models.TriggerCallback, settle); err != nil {
		h.logger.Error("failed to enqueue reconciliation after callback",
			zap.String("sessionId", updated.ID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted", "sessionState": updated.State})
}

func (h *PaymentHandler) respondError(c *gin.Context, err error) {
	var transErr *lifecycle.InvalidTransitionError
	switch {
	case errors.As(err, &transErr):
		utils.JSONError(c, http.StatusConflict, "invalid transition", err.Error())
	case errors.Is(err, sessionRepo.ErrStateConflict):
		utils.JSONError(c, http.StatusConflict, "session changed concurrently", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "payment update failed", err.Error())
	}
}
