package notification

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"mindwell/models"

	"go.uber.org/zap"
)

// MaxRetries is the number of retries beyond the first attempt.
const MaxRetries = 3

// DefaultBackoff is the fixed backoff ladder. Beyond its length the last
// delay is reused.
var DefaultBackoff = []time.Duration{30 * time.Second, 2 * time.Minute, 10 * time.Minute}

// SendFunc performs one send attempt.
type SendFunc func() error

// SendResult is the terminal result of SendWithRetry.
type SendResult struct {
	Outcome  models.SendOutcome
	Attempts int
	Err      error
}

// RetryManager wraps a single notification send with bounded retries and
// backoff, independent of channel. Every scheduled retry is tracked by a
// cancellable handle keyed by (correlationID, kind, attempt) so Stop can
// cancel all pending retries cleanly on shutdown.
type RetryManager struct {
	Logger  *zap.Logger
	Clock   Clock
	Backoff []time.Duration

	mu      sync.Mutex
	pending map[string]chan struct{}
	stopped bool
}

// NewRetryManager builds a retry manager with the default backoff ladder.
func NewRetryManager(logger *zap.Logger, clock Clock) *RetryManager {
	if clock == nil {
		clock = RealClock{}
	}
	return &RetryManager{
		Logger:  logger,
		Clock:   clock,
		Backoff: DefaultBackoff,
		pending: make(map[string]chan struct{}),
	}
}

// SendWithRetry attempts send, rescheduling retryable failures per the
// backoff ladder up to MaxRetries beyond the first attempt. An unconfigured
// channel stops immediately. The returned result distinguishes success,
// terminal failure, and policy skip (the last is never produced here; it is
// reserved for callers that decide not to send at all).
func (m *RetryManager) SendWithRetry(send SendFunc, correlationID string, kind string) SendResult {
	var lastErr error

	for attempt := 1; attempt <= 1+MaxRetries; attempt++ {
		err := send()
		if err == nil {
			return SendResult{Outcome: models.SendSucceeded, Attempts: attempt}
		}
		lastErr = err

		if errors.Is(err, ErrChannelNotConfigured) {
			m.Logger.Warn("notification channel not configured, not retrying",
				zap.String("correlationId", correlationID),
				zap.String("kind", kind))
			return SendResult{Outcome: models.SendFailed, Attempts: attempt, Err: err}
		}

		if attempt == 1+MaxRetries {
			break
		}

		delay := m.delayFor(attempt)
		m.Logger.Warn("notification send failed, retrying",
			zap.String("correlationId", correlationID),
			zap.String("kind", kind),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))

		if !m.wait(correlationID, kind, attempt+1, delay) {
			return SendResult{
				Outcome:  models.SendFailed,
				Attempts: attempt,
				Err:      fmt.Errorf("retry cancelled: %w", lastErr),
			}
		}
	}

	m.Logger.Error("notification retries exhausted",
		zap.String("correlationId", correlationID),
		zap.String("kind", kind),
		zap.Error(lastErr))
	return SendResult{Outcome: models.SendFailed, Attempts: 1 + MaxRetries, Err: lastErr}
}

// delayFor returns the backoff delay preceding the given attempt number.
func (m *RetryManager) delayFor(attempt int) time.Duration {
	idx := attempt - 1
	if idx >= len(m.Backoff) {
		idx = len(m.Backoff) - 1
	}
	return m.Backoff[idx]
}

// wait blocks until the delay elapses or the pending handle is cancelled.
// It returns false when cancelled.
func (m *RetryManager) wait(correlationID, kind string, attempt int, delay time.Duration) bool {
	key := fmt.Sprintf("%s|%s|%d", correlationID, kind, attempt)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return false
	}
	cancel := make(chan struct{})
	m.pending[key] = cancel
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.pending, key)
		m.mu.Unlock()
	}()

	select {
	case <-m.Clock.After(delay):
		return true
	case <-cancel:
		return false
	}
}

// PendingCount reports the number of currently scheduled retries.
func (m *RetryManager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Stop cancels all pending retries. Subsequent retries are refused.
func (m *RetryManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	for key, cancel := range m.pending {
		close(cancel)
		delete(m.pending, key)
	}
}
