package reconciliation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sessionRepo "mindwell/database/repository/session"
	"mindwell/models"
	"mindwell/services/broadcast"
	"mindwell/services/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	refUsers map[string][]models.Session
}

func newFakeSessionRepo(sessions ...*models.Session) *fakeSessionRepo {
	repo := &fakeSessionRepo{
		sessions: make(map[string]*models.Session),
		refUsers: make(map[string][]models.Session),
	}
	for _, s := range sessions {
		repo.sessions[s.ID] = s
		if s.Payment.TransactionRef != "" {
			repo.refUsers[s.Payment.TransactionRef] = append(repo.refUsers[s.Payment.TransactionRef], *s)
		}
	}
	return repo
}

func (r *fakeSessionRepo) Create(session *models.Session) error { return nil }

func (r *fakeSessionRepo) GetByID(id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, sessionRepo.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) TransitionState(id string, fromState, toState models.SessionState, set map[string]any) (*models.Session, error) {
	return nil, nil
}

func (r *fakeSessionRepo) SetVideoState(id string, video models.VideoAccessState) error { return nil }

func (r *fakeSessionRepo) MarkReminderSent(id string, kind models.ReminderKind, at time.Time) (bool, error) {
	return true, nil
}

func (r *fakeSessionRepo) AppendPaymentAttempt(id string, attempt models.PaymentAttempt) error {
	return nil
}

func (r *fakeSessionRepo) SetPaymentFacts(id string, status models.PaymentStatus, transactionRef string, amount int64) error {
	return nil
}

func (r *fakeSessionRepo) FindDueForReminder(kind models.ReminderKind, windowStart, windowEnd time.Time) ([]models.Session, error) {
	return nil, nil
}

func (r *fakeSessionRepo) FindStaleProcessing(olderThan time.Time, limit int) ([]models.Session, error) {
	return nil, nil
}

func (r *fakeSessionRepo) FindByTransactionRef(ref string) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refUsers[ref], nil
}

type fakeGateway struct {
	facts   *models.ExternalPaymentFacts
	err     error
	calls   int64
	release chan struct{}
}

func (g *fakeGateway) FetchPaymentFacts(ctx context.Context, transactionRef string) (*models.ExternalPaymentFacts, error) {
	atomic.AddInt64(&g.calls, 1)
	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.facts, nil
}

type fakeAuditSink struct {
	mu     sync.Mutex
	events []models.AuditEvent
}

func (a *fakeAuditSink) Append(event models.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func paidSession(id, ref string, amount int64) *models.Session {
	return &models.Session{
		ID:    id,
		State: models.SessionReady,
		Payment: models.PaymentInfo{
			Status:         models.PaymentPaid,
			TransactionRef: ref,
			Amount:         amount,
			Attempts: []models.PaymentAttempt{
				{Reference: ref, Amount: amount, ResultCode: "0", Success: true},
			},
		},
	}
}

func matchingFacts(session *models.Session) *models.ExternalPaymentFacts {
	return &models.ExternalPaymentFacts{
		TransactionRef: session.Payment.TransactionRef,
		Amount:         session.Payment.Amount,
		Status:         session.Payment.Status,
		ResultCode:     "0",
	}
}

func newTestEngine(repo *fakeSessionRepo, gateway *fakeGateway) *Engine {
	return NewEngine(repo, gateway, nil, nil, zap.NewNop(), 10, 0)
}

func TestReconcileMatched(t *testing.T) {
	session := paidSession("sess-1", "txn-1", 5000)
	repo := newFakeSessionRepo(session)
	gateway := &fakeGateway{facts: matchingFacts(session)}
	engine := newTestEngine(repo, gateway)

	result, err := engine.Reconcile(context.Background(), "sess-1", models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationMatched, result.Outcome)
	assert.Empty(t, result.Issues)

	stats := engine.GetStats()
	assert.Equal(t, int64(1), stats.TotalProcessed)
	assert.Equal(t, int64(1), stats.Matched)
}

func TestReconcileClassifiesAmountMismatchAsHigh(t *testing.T) {
	session := paidSession("sess-1", "txn-1", 1000)
	repo := newFakeSessionRepo(session)
	gateway := &fakeGateway{facts: &models.ExternalPaymentFacts{
		TransactionRef: "txn-1",
		Amount:         1500,
		Status:         models.PaymentPaid,
		ResultCode:     "0",
	}}
	engine := newTestEngine(repo, gateway)

	result, err := engine.Reconcile(context.Background(), "sess-1", models.TriggerCallback)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationDiscrepancy, result.Outcome)
	assert.Equal(t, models.SeverityHigh, result.Severity)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueAmountMismatch, result.Issues[0].Type)
	assert.Equal(t, "1000", result.Issues[0].Local)
	assert.Equal(t, "1500", result.Issues[0].External)
}

func TestReconcileClassifiesStatusMismatchAsMedium(t *testing.T) {
	session := paidSession("sess-1", "txn-1", 5000)
	repo := newFakeSessionRepo(session)
	gateway := &fakeGateway{facts: &models.ExternalPaymentFacts{
		TransactionRef: "txn-1",
		Amount:         5000,
		Status:         models.PaymentProcessing,
		ResultCode:     "0",
	}}
	engine := newTestEngine(repo, gateway)

	result, err := engine.Reconcile(context.Background(), "sess-1", models.TriggerStaleSweep)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationDiscrepancy, result.Outcome)
	assert.Equal(t, models.SeverityMedium, result.Severity)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueStatusMismatch, result.Issues[0].Type)
}

func TestReconcileDetectsDuplicateTransactionRef(t *testing.T) {
	a := paidSession("sess-1", "txn-shared", 5000)
	b := paidSession("sess-2", "txn-shared", 5000)
	repo := newFakeSessionRepo(a, b)
	gateway := &fakeGateway{facts: matchingFacts(a)}
	engine := newTestEngine(repo, gateway)

	result, err := engine.Reconcile(context.Background(), "sess-1", models.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationDiscrepancy, result.Outcome)
	assert.Equal(t, models.SeverityHigh, result.Severity)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, models.IssueDuplicateTransaction, result.Issues[0].Type)
}

func TestReconcileGatewayFailureIsErrorOutcomeNotError(t *testing.T) {
	session := paidSession("sess-1", "txn-1", 5000)
	repo := newFakeSessionRepo(session)
	gateway := &fakeGateway{err: errors.New("gateway timeout")}
	engine := newTestEngine(repo, gateway)

	result, err := engine.Reconcile(context.Background(), "sess-1", models.TriggerCallback)
	require.NoError(t, err, "a gateway failure is a classified outcome, not a run failure")
	assert.Equal(t, models.ReconciliationError, result.Outcome)
	assert.Contains(t, result.Error, "gateway timeout")
	assert.Equal(t, int64(1), engine.GetStats().Errors)
}

func TestConcurrentReconcileSharesOneRun(t *testing.T) {
	session := paidSession("sess-1", "txn-1", 5000)
	repo := newFakeSessionRepo(session)
	gateway := &fakeGateway{facts: matchingFacts(session), release: make(chan struct{})}
	engine := newTestEngine(repo, gateway)

	var wg sync.WaitGroup
	results := make([]*models.ReconciliationResult, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = engine.Reconcile(context.Background(), "sess-1", models.TriggerManual)
	}()

	// The first caller is parked inside the gateway; the second must join
	// its in-flight run instead of starting another.
	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&gateway.calls) == 1
	}, time.Second, time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = engine.Reconcile(context.Background(), "sess-1", models.TriggerManual)
	}()
	time.Sleep(20 * time.Millisecond)

	close(gateway.release)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, int64(1), atomic.LoadInt64(&gateway.calls), "concurrent requests share one gateway query")
	assert.Equal(t, results[0], results[1])
	assert.Equal(t, int64(1), engine.GetStats().TotalProcessed)
}

func TestReconcileBulkReportsPerItemFailures(t *testing.T) {
	session := paidSession("sess-1", "txn-1", 5000)
	repo := newFakeSessionRepo(session)
	gateway := &fakeGateway{facts: matchingFacts(session)}
	engine := newTestEngine(repo, gateway)

	results := engine.ReconcileBulk(context.Background(), []string{"sess-1", "missing"}, models.TriggerManual)
	require.Len(t, results, 2)
	assert.NotNil(t, results[0].Result)
	assert.Empty(t, results[0].Error)
	assert.Nil(t, results[1].Result)
	assert.NotEmpty(t, results[1].Error, "a missing session fails its item, not the batch")
}

func TestReconcileBulkAbortsBetweenBatches(t *testing.T) {
	a := paidSession("sess-1", "txn-1", 5000)
	b := paidSession("sess-2", "txn-2", 5000)
	c := paidSession("sess-3", "txn-3", 5000)
	repo := newFakeSessionRepo(a, b, c)
	gateway := &fakeGateway{facts: matchingFacts(a)}
	engine := NewEngine(repo, gateway, nil, nil, zap.NewNop(), 1, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := engine.ReconcileBulk(ctx, []string{"sess-1", "sess-2", "sess-3"}, models.TriggerManual)
	assert.Len(t, results, 1, "cancellation aborts between batches, keeping completed results")
}

func TestReconcileBulkProcessesAllBatches(t *testing.T) {
	restore := timeAfter
	timeAfter = func(d time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	defer func() { timeAfter = restore }()

	a := paidSession("sess-1", "txn-1", 5000)
	b := paidSession("sess-2", "txn-2", 5000)
	c := paidSession("sess-3", "txn-3", 5000)
	repo := newFakeSessionRepo(a, b, c)
	gateway := &fakeGateway{facts: matchingFacts(a)}
	engine := NewEngine(repo, gateway, nil, nil, zap.NewNop(), 2, time.Hour)

	results := engine.ReconcileBulk(context.Background(), []string{"sess-1", "sess-2", "sess-3"}, models.TriggerStaleSweep)
	assert.Len(t, results, 3)
	assert.Equal(t, int64(3), engine.GetStats().TotalProcessed)
}

func TestSeverityForIssues(t *testing.T) {
	assert.Equal(t, models.SeverityHigh, SeverityForIssues([]models.ReconciliationIssue{
		{Type: models.IssueStatusMismatch},
		{Type: models.IssueAmountMismatch},
	}))
	assert.Equal(t, models.SeverityMedium, SeverityForIssues([]models.ReconciliationIssue{
		{Type: models.IssueResultCodeMismatch},
	}))
	assert.Equal(t, models.SeverityLow, SeverityForIssues(nil))
}

type recordingChannel struct {
	mu     sync.Mutex
	emails []models.EmailMessage
	sms    []models.SMSMessage
}

func (c *recordingChannel) SendEmail(ctx context.Context, msg models.EmailMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emails = append(c.emails, msg)
	return nil
}

func (c *recordingChannel) SendSMS(ctx context.Context, msg models.SMSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sms = append(c.sms, msg)
	return nil
}

func TestDiscrepancyHandlerEscalatesHighSeverity(t *testing.T) {
	channel := &recordingChannel{}
	audit := &fakeAuditSink{}
	hub := broadcast.NewObserverHub(zap.NewNop(), nil, "test")
	observer := hub.Subscribe("obs-1")

	handler := &DiscrepancyHandler{
		Hub:      hub,
		Channel:  channel,
		Retry:    notification.NewRetryManager(zap.NewNop(), nil),
		Audit:    audit,
		Operator: OperatorContact{Email: "ops@example.com", Phone: "+15550100"},
		Logger:   zap.NewNop(),
	}

	handler.Handle(&models.ReconciliationResult{
		SessionID: "sess-1",
		Outcome:   models.ReconciliationDiscrepancy,
		Severity:  models.SeverityHigh,
		Issues: []models.ReconciliationIssue{
			{Type: models.IssueAmountMismatch, Local: "1000", External: "1500"},
		},
	})

	require.Len(t, channel.emails, 1)
	assert.Equal(t, "ops@example.com", channel.emails[0].To)
	require.Len(t, channel.sms, 1)
	assert.Contains(t, channel.sms[0].Body, "sess-1")

	require.Len(t, audit.events, 1)
	assert.Equal(t, models.AuditDiscrepancy, audit.events[0].Type)

	select {
	case msg := <-observer:
		assert.Equal(t, "discrepancy_alert", msg.Type)
	default:
		t.Fatal("expected a broadcast discrepancy alert")
	}
}

func TestDiscrepancyHandlerMediumSeverityStaysInBand(t *testing.T) {
	channel := &recordingChannel{}
	audit := &fakeAuditSink{}

	handler := &DiscrepancyHandler{
		Channel:  channel,
		Retry:    notification.NewRetryManager(zap.NewNop(), nil),
		Audit:    audit,
		Operator: OperatorContact{Email: "ops@example.com"},
		Logger:   zap.NewNop(),
	}

	handler.Handle(&models.ReconciliationResult{
		SessionID: "sess-1",
		Outcome:   models.ReconciliationDiscrepancy,
		Severity:  models.SeverityMedium,
		Issues: []models.ReconciliationIssue{
			{Type: models.IssueStatusMismatch},
		},
	})

	assert.Empty(t, channel.emails, "only high severity reaches the operator")
	assert.Empty(t, channel.sms)
	require.Len(t, audit.events, 1, "every discrepancy is audited")
}
