package reminder

import (
	"sync"
	"time"

	auditRepo "mindwell/database/repository/audit"
	partyRepo "mindwell/database/repository/party"
	sessionRepo "mindwell/database/repository/session"
	"mindwell/models"
	"mindwell/services/notification"

	"go.uber.org/zap"
)

// Reminder window geometry. The coarse hourly sweep looks 23-25 hours out so
// an hourly tick cannot miss a session; the fine sweep looks 45-75 minutes
// out on a 15-minute cadence.
const (
	coarseInterval = time.Hour
	fineInterval   = 15 * time.Minute

	window24Start = 23 * time.Hour
	window24End   = 25 * time.Hour
	window1Start  = 45 * time.Minute
	window1End    = 75 * time.Minute
)

// ChannelHealth is the slice of the alerting surface the scheduler reports
// to.
type ChannelHealth interface {
	TrackError(category models.ErrorCategory, code, message string, severity models.Severity, context map[string]any)
	TrackChannelFailure(channel string)
	TrackChannelSuccess(channel string)
}

// OperatorContact is the escalation target when every attempted send for a
// session failed.
type OperatorContact struct {
	Email string
	Phone string
}

// Scheduler drives the periodic reminder sweeps. It owns its tickers and
// stops them, along with any pending notification retries, on Stop.
type Scheduler struct {
	Repo     sessionRepo.SessionRepository
	Parties  partyRepo.PartyRepository
	Channel  notification.NotificationChannel
	Retry    *notification.RetryManager
	Audit    auditRepo.AuditSink
	Health   ChannelHealth
	Operator OperatorContact
	Logger   *zap.Logger
	Clock    notification.Clock

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
}

// Start launches the two periodic triggers. It is a no-op if already
// started.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	if s.Clock == nil {
		s.Clock = notification.RealClock{}
	}
	s.started = true
	s.stop = make(chan struct{})

	s.wg.Add(2)
	go s.loop(coarseInterval, models.Reminder24Hour)
	go s.loop(fineInterval, models.Reminder1Hour)

	s.Logger.Info("reminder scheduler started")
}

// Stop halts both triggers and cancels all pending notification retries so
// nothing fires after shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	s.mu.Unlock()

	// Cancel retries before waiting on the loops. A sweep parked in a
	// backoff wait is released immediately instead of holding its loop
	// goroutine through the rest of the ladder.
	s.Retry.Stop()
	s.wg.Wait()
	s.Logger.Info("reminder scheduler stopped")
}

func (s *Scheduler) loop(interval time.Duration, kind models.ReminderKind) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			summary := s.RunReminderCheck(kind)
			s.Logger.Info("reminder check completed",
				zap.String("kind", string(kind)),
				zap.Int("processed", summary.Processed),
				zap.Int("succeeded", summary.Succeeded),
				zap.Int("failed", summary.Failed))
		}
	}
}
