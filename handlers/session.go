package handlers

import (
	"errors"
	"net/http"
	"time"

	sessionRepo "mindwell/database/repository/session"
	"mindwell/models"
	"mindwell/services/lifecycle"
	"mindwell/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHandler exposes the lifecycle operations over HTTP.
type SessionHandler struct {
	repo    sessionRepo.SessionRepository
	service *lifecycle.DefaultLifecycleService
	logger  *zap.Logger
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(repo sessionRepo.SessionRepository, service *lifecycle.DefaultLifecycleService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{repo: repo, service: service, logger: logger}
}

// CreateSession registers a new booking request.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var input struct {
		ClientID        string    `json:"clientId" binding:"required"`
		TherapistID     string    `json:"therapistId" binding:"required"`
		ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
		DurationMinutes int       `json:"durationMinutes"`
		Amount          int64     `json:"amount"`
		Currency        string    `json:"currency"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session := &models.Session{
		ID:              uuid.New().String(),
		ClientID:        input.ClientID,
		TherapistID:     input.TherapistID,
		ScheduledAt:     input.ScheduledAt,
		DurationMinutes: input.DurationMinutes,
		State:           models.SessionRequested,
		Video:           models.VideoNotStarted,
		Payment: models.PaymentInfo{
			Status:          models.PaymentPending,
			Amount:          input.Amount,
			Currency:        input.Currency,
			Attempts:        []models.PaymentAttempt{},
			StatusChangedAt: time.Now(),
		},
	}

	if err := h.repo.Create(session); err != nil {
		h.logger.Error("failed to create session", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to create session", err.Error())
		return
	}

	c.JSON(http.StatusCreated, session)
}

// GetSession returns one session by id.
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session)
}

// ApproveSession moves a requested session to Approved.
func (h *SessionHandler) ApproveSession(c *gin.Context) {
	var input struct {
		TherapistID string `json:"therapistId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, ok := h.load(c)
	if !ok {
		return
	}

	updated, err := h.service.Approve(session, input.TherapistID, nil)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// MarkSessionReady moves a session to Ready.
func (h *SessionHandler) MarkSessionReady(c *gin.Context) {
	session, ok := h.load(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkReady(session, nil)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// StartSession moves a session to InProgress.
func (h *SessionHandler) StartSession(c *gin.Context) {
	var input struct {
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, ok := h.load(c)
	if !ok {
		return
	}

	updated, err := h.service.Start(session, input.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// CompleteSession moves a session to Completed.
func (h *SessionHandler) CompleteSession(c *gin.Context) {
	var input struct {
		DurationMinutes int    `json:"durationMinutes"`
		Notes           string `json:"notes"`
		UserID          string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, ok := h.load(c)
	if !ok {
		return
	}

	updated, err := h.service.Complete(session, lifecycle.CompleteInput{
		DurationMinutes: input.DurationMinutes,
		Notes:           input.Notes,
		UserID:          input.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// CancelSession moves a session to Cancelled.
func (h *SessionHandler) CancelSession(c *gin.Context) {
	var input struct {
		Reason string `json:"reason" binding:"required"`
		UserID string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, ok := h.load(c)
	if !ok {
		return
	}

	updated, err := h.service.Cancel(session, input.Reason, input.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// MarkNoShow records a client or therapist no-show.
func (h *SessionHandler) MarkNoShow(c *gin.Context) {
	var input struct {
		Party      string `json:"party" binding:"required"`
		DetectedBy string `json:"detectedBy" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	who := models.PartyClient
	if input.Party == string(models.PartyTherapist) {
		who = models.PartyTherapist
	}

	session, ok := h.load(c)
	if !ok {
		return
	}

	updated, err := h.service.MarkNoShow(session, who, input.DetectedBy)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// UpdateFormsStatus sets the intake-forms completion flag.
func (h *SessionHandler) UpdateFormsStatus(c *gin.Context) {
	var input struct {
		Complete bool   `json:"complete"`
		UserID   string `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, ok := h.load(c)
	if !ok {
		return
	}

	updated, err := h.service.UpdateFormsStatus(session, input.Complete, input.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *SessionHandler) load(c *gin.Context) (*models.Session, bool) {
	session, err := h.repo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, sessionRepo.ErrNotFound) {
			utils.JSONError(c, http.StatusNotFound, "session not found", c.Param("id"))
			return nil, false
		}
		utils.JSONError(c, http.StatusInternalServerError, "failed to load session", err.Error())
		return nil, false
	}
	return session, true
}

func (h *SessionHandler) respondError(c *gin.Context, err error) {
	var authErr *lifecycle.AuthorityViolationError
	var transErr *lifecycle.InvalidTransitionError
	switch {
	case errors.As(err, &authErr):
		h.logger.Error("authority violation on lifecycle endpoint", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "internal error", "")
	case errors.As(err, &transErr):
		utils.JSONError(c, http.StatusConflict, "invalid transition", err.Error())
	case errors.Is(err, sessionRepo.ErrStateConflict):
		utils.JSONError(c, http.StatusConflict, "session changed concurrently", err.Error())
	case errors.Is(err, sessionRepo.ErrNotFound):
		utils.JSONError(c, http.StatusNotFound, "session not found", "")
	default:
		utils.JSONError(c, http.StatusInternalServerError, "operation failed", err.Error())
	}
}
