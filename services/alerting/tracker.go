package alerting

import (
	"context"
	"sync"
	"time"

	"mindwell/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertType names the alert conditions the tracker evaluates.
type AlertType string

const (
	AlertErrorRate     AlertType = "ERROR_RATE"
	AlertRepeatedError AlertType = "REPEATED_ERROR"
	AlertCritical      AlertType = "CRITICAL_ERROR"
	AlertChannelDown   AlertType = "CHANNEL_DOWN"
)

// Alert is one emitted threshold alert.
type Alert struct {
	Type      AlertType            `json:"type"`
	Category  models.ErrorCategory `json:"category,omitempty"`
	Code      string               `json:"code,omitempty"`
	Channel   string               `json:"channel,omitempty"`
	Message   string               `json:"message"`
	Severity  models.Severity      `json:"severity"`
	Count     int                  `json:"count,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Tuning constants for the alert conditions.
const (
	rateWindow    = 5 * time.Minute
	rateThreshold = 10

	repeatWindow    = time.Minute
	repeatThreshold = 3

	channelDownThreshold = 5

	// alertBucket is the de-duplication bucket: at most one alert of a
	// given type per bucket, coarser than the detection windows.
	alertBucket = 10 * time.Minute

	defaultRetention = 24 * time.Hour
)

// categoryRetention overrides the default retention window per category.
var categoryRetention = map[models.ErrorCategory]time.Duration{
	models.CategoryNotification: 6 * time.Hour,
	models.CategoryReminder:     6 * time.Hour,
	models.CategoryPayment:      72 * time.Hour,
}

// Tracker accumulates categorized error events, computes rolling error
// rates, and emits threshold-based alerts with per-type de-duplication.
type Tracker struct {
	logger  *zap.Logger
	onAlert func(Alert)
	now     func() time.Time

	mu               sync.Mutex
	events           []models.ErrorEvent
	categoryCounts   map[models.ErrorCategory]int
	severityCounts   map[models.Severity]int
	consecutiveFails map[string]int
	lastAlertAt      map[AlertType]time.Time
}

// NewTracker creates a tracker. onAlert receives every emitted alert; it may
// be nil.
func NewTracker(logger *zap.Logger, onAlert func(Alert)) *Tracker {
	return &Tracker{
		logger:           logger,
		onAlert:          onAlert,
		now:              time.Now,
		categoryCounts:   make(map[models.ErrorCategory]int),
		severityCounts:   make(map[models.Severity]int),
		consecutiveFails: make(map[string]int),
		lastAlertAt:      make(map[AlertType]time.Time),
	}
}

// TrackError stores the event with secrets redacted, updates counters, logs
// per severity tier, and evaluates the alert conditions.
func (t *Tracker) TrackError(category models.ErrorCategory, code, message string, severity models.Severity, ctx map[string]any) {
	now := t.now()
	event := models.ErrorEvent{
		ID:        uuid.New().String(),
		Category:  category,
		Code:      code,
		Message:   message,
		Severity:  severity,
		Context:   redactContext(ctx),
		Timestamp: now,
	}

	t.mu.Lock()
	t.events = append(t.events, event)
	t.categoryCounts[category]++
	t.severityCounts[severity]++

	var alerts []Alert

	if severity == models.SeverityCritical {
		alerts = t.appendIfDue(alerts, Alert{
			Type:      AlertCritical,
			Category:  category,
			Code:      code,
			Message:   message,
			Severity:  models.SeverityCritical,
			Timestamp: now,
		})
	}

	if n := t.countSinceLocked(now.Add(-rateWindow), ""); n > rateThreshold {
		alerts = t.appendIfDue(alerts, Alert{
			Type:      AlertErrorRate,
			Message:   "error rate threshold exceeded",
			Severity:  models.SeverityHigh,
			Count:     n,
			Timestamp: now,
		})
	}

	if n := t.countSinceLocked(now.Add(-repeatWindow), code); n > repeatThreshold {
		alerts = t.appendIfDue(alerts, Alert{
			Type:      AlertRepeatedError,
			Category:  category,
			Code:      code,
			Message:   "error code repeating",
			Severity:  models.SeverityHigh,
			Count:     n,
			Timestamp: now,
		})
	}
	t.mu.Unlock()

	t.logEvent(event)
	for _, alert := range alerts {
		t.emit(alert)
	}
}

// TrackChannelFailure bumps the consecutive-failure counter for a
// notification channel and alerts when it crosses the threshold.
func (t *Tracker) TrackChannelFailure(channel string) {
	now := t.now()

	t.mu.Lock()
	t.consecutiveFails[channel]++
	count := t.consecutiveFails[channel]

	var alerts []Alert
	if count >= channelDownThreshold {
		alerts = t.appendIfDue(alerts, Alert{
			Type:      AlertChannelDown,
			Channel:   channel,
			Message:   "notification channel appears down",
			Severity:  models.SeverityCritical,
			Count:     count,
			Timestamp: now,
		})
	}
	t.mu.Unlock()

	for _, alert := range alerts {
		t.emit(alert)
	}
}

// TrackChannelSuccess resets the consecutive-failure counter for a channel.
func (t *Tracker) TrackChannelSuccess(channel string) {
	t.mu.Lock()
	t.consecutiveFails[channel] = 0
	t.mu.Unlock()
}

// ErrorRate returns the number of tracked errors inside the given window.
func (t *Tracker) ErrorRate(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.countSinceLocked(t.now().Add(-window), "")
}

// Stats is a read-only snapshot of the tracker's counters.
type Stats struct {
	Total      int                          `json:"total"`
	ByCategory map[models.ErrorCategory]int `json:"byCategory"`
	BySeverity map[models.Severity]int      `json:"bySeverity"`
}

// GetStats returns a snapshot of the counters.
func (t *Tracker) GetStats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{
		ByCategory: make(map[models.ErrorCategory]int, len(t.categoryCounts)),
		BySeverity: make(map[models.Severity]int, len(t.severityCounts)),
	}
	for c, n := range t.categoryCounts {
		stats.ByCategory[c] = n
		stats.Total += n
	}
	for s, n := range t.severityCounts {
		stats.BySeverity[s] = n
	}
	return stats
}

// Sweep purges stored events older than their category's retention window.
func (t *Tracker) Sweep() {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.events[:0]
	for _, event := range t.events {
		retention := defaultRetention
		if r, ok := categoryRetention[event.Category]; ok {
			retention = r
		}
		if now.Sub(event.Timestamp) < retention {
			kept = append(kept, event)
		}
	}
	t.events = kept
}

// StartRetentionSweep runs Sweep periodically until ctx is cancelled.
func (t *Tracker) StartRetentionSweep(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Sweep()
			}
		}
	}()
}

// countSinceLocked counts events at or after cutoff; a non-empty code
// restricts the count to that code. Caller holds the lock.
func (t *Tracker) countSinceLocked(cutoff time.Time, code string) int {
	n := 0
	for i := len(t.events) - 1; i >= 0; i-- {
		if t.events[i].Timestamp.Before(cutoff) {
			break
		}
		if code == "" || t.events[i].Code == code {
			n++
		}
	}
	return n
}

// appendIfDue applies per-type de-duplication: at most one alert of a given
// type per bucket. Caller holds the lock.
func (t *Tracker) appendIfDue(alerts []Alert, alert Alert) []Alert {
	if last, ok := t.lastAlertAt[alert.Type]; ok && alert.Timestamp.Sub(last) < alertBucket {
		return alerts
	}
	t.lastAlertAt[alert.Type] = alert.Timestamp
	return append(alerts, alert)
}

func (t *Tracker) logEvent(event models.ErrorEvent) {
	fields := []zap.Field{
		zap.String("category", string(event.Category)),
		zap.String("code", event.Code),
		zap.Any("context", event.Context),
	}
	switch event.Severity {
	case models.SeverityCritical, models.SeverityHigh:
		t.logger.Error(event.Message, fields...)
	case models.SeverityMedium:
		t.logger.Warn(event.Message, fields...)
	default:
		t.logger.Info(event.Message, fields...)
	}
}

func (t *Tracker) emit(alert Alert) {
	t.logger.Warn("alert emitted",
		zap.String("alertType", string(alert.Type)),
		zap.String("code", alert.Code),
		zap.Int("count", alert.Count))
	if t.onAlert != nil {
		t.onAlert(alert)
	}
}
