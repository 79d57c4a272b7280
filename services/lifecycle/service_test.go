package lifecycle

import (
	"errors"
	"testing"
	"time"

	sessionRepo "mindwell/database/repository/session"
	"mindwell/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSessionRepo struct {
	sessions      map[string]*models.Session
	transitionErr error
	videoErr      error
	attempts      map[string][]models.PaymentAttempt
	videoWrites   int
}

func newFakeSessionRepo(sessions ...*models.Session) *fakeSessionRepo {
	repo := &fakeSessionRepo{
		sessions: make(map[string]*models.Session),
		attempts: make(map[string][]models.PaymentAttempt),
	}
	for _, s := range sessions {
		copied := *s
		repo.sessions[s.ID] = &copied
	}
	return repo
}

func (r *fakeSessionRepo) Create(session *models.Session) error {
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) GetByID(id string) (*models.Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return nil, sessionRepo.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) TransitionState(id string, fromState, toState models.SessionState, set map[string]any) (*models.Session, error) {
	if r.transitionErr != nil {
		return nil, r.transitionErr
	}
	s, ok := r.sessions[id]
	if !ok {
		return nil, sessionRepo.ErrNotFound
	}
	if s.State != fromState {
		return nil, sessionRepo.ErrStateConflict
	}
	s.State = toState
	if v, ok := set["forms_complete"].(bool); ok {
		s.FormsComplete = v
	}
	if v, ok := set["payment.status"].(models.PaymentStatus); ok {
		s.Payment.Status = v
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) SetVideoState(id string, video models.VideoAccessState) error {
	if r.videoErr != nil {
		return r.videoErr
	}
	r.videoWrites++
	if s, ok := r.sessions[id]; ok {
		s.Video = video
	}
	return nil
}

func (r *fakeSessionRepo) MarkReminderSent(id string, kind models.ReminderKind, at time.Time) (bool, error) {
	return true, nil
}

func (r *fakeSessionRepo) AppendPaymentAttempt(id string, attempt models.PaymentAttempt) error {
	r.attempts[id] = append(r.attempts[id], attempt)
	if s, ok := r.sessions[id]; ok {
		s.Payment.Attempts = append(s.Payment.Attempts, attempt)
	}
	return nil
}

func (r *fakeSessionRepo) SetPaymentFacts(id string, status models.PaymentStatus, transactionRef string, amount int64) error {
	if s, ok := r.sessions[id]; ok {
		s.Payment.Status = status
		s.Payment.TransactionRef = transactionRef
		if amount > 0 {
			s.Payment.Amount = amount
		}
	}
	return nil
}

func (r *fakeSessionRepo) FindDueForReminder(kind models.ReminderKind, windowStart, windowEnd time.Time) ([]models.Session, error) {
	return nil, nil
}

func (r *fakeSessionRepo) FindStaleProcessing(olderThan time.Time, limit int) ([]models.Session, error) {
	return nil, nil
}

func (r *fakeSessionRepo) FindByTransactionRef(ref string) ([]models.Session, error) {
	return nil, nil
}

type fakeAuditSink struct {
	events []models.AuditEvent
}

func (a *fakeAuditSink) Append(event models.AuditEvent) {
	a.events = append(a.events, event)
}

type fakeTracker struct {
	codes []string
}

func (t *fakeTracker) TrackError(category models.ErrorCategory, code, message string, severity models.Severity, context map[string]any) {
	t.codes = append(t.codes, code)
}

func newTestService(repo *fakeSessionRepo) (*DefaultLifecycleService, *fakeAuditSink, *fakeTracker) {
	audit := &fakeAuditSink{}
	tracker := &fakeTracker{}
	svc := &DefaultLifecycleService{
		Updater: &AtomicStateUpdater{Repo: repo, Audit: audit, Logger: zap.NewNop()},
		Repo:    repo,
		Tracker: tracker,
		Logger:  zap.NewNop(),
	}
	return svc, audit, tracker
}

func testSession(state models.SessionState) *models.Session {
	return &models.Session{
		ID:          "sess-1",
		ClientID:    "client-1",
		TherapistID: "therapist-1",
		ScheduledAt: time.Now().Add(48 * time.Hour),
		State:       state,
		Video:       models.VideoNotStarted,
		Payment:     models.PaymentInfo{Status: models.PaymentPending},
	}
}

func TestTransitionRejectsForeignActor(t *testing.T) {
	session := testSession(models.SessionRequested)
	repo := newFakeSessionRepo(session)
	audit := &fakeAuditSink{}
	updater := &AtomicStateUpdater{Repo: repo, Audit: audit, Logger: zap.NewNop()}

	_, err := updater.Transition(session, models.SessionApproved, TransitionContext{
		Actor:  "api-handler",
		Reason: "shortcut",
	}, nil)

	var authErr *AuthorityViolationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "api-handler", authErr.Actor)
	assert.Equal(t, models.SessionRequested, repo.sessions["sess-1"].State)
	assert.Empty(t, audit.events)
}

func TestTransitionRejectsUnreachableTarget(t *testing.T) {
	session := testSession(models.SessionRequested)
	repo := newFakeSessionRepo(session)
	updater := &AtomicStateUpdater{Repo: repo, Audit: &fakeAuditSink{}, Logger: zap.NewNop()}

	_, err := updater.Transition(session, models.SessionCompleted, TransitionContext{
		Actor: SessionWriterActor,
	}, nil)

	var transErr *InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, models.SessionRequested, repo.sessions["sess-1"].State)
}

func TestTransitionPersistenceFailureLeavesStateEffective(t *testing.T) {
	session := testSession(models.SessionRequested)
	repo := newFakeSessionRepo(session)
	repo.transitionErr = errors.New("connection reset")
	audit := &fakeAuditSink{}
	updater := &AtomicStateUpdater{Repo: repo, Audit: audit, Logger: zap.NewNop()}

	_, err := updater.Transition(session, models.SessionApproved, TransitionContext{
		Actor: SessionWriterActor,
	}, nil)

	require.Error(t, err)
	assert.Equal(t, models.SessionRequested, repo.sessions["sess-1"].State)
	assert.Empty(t, audit.events, "no audit event for a failed write")
}

func TestTransitionAppendsAuditEvent(t *testing.T) {
	session := testSession(models.SessionRequested)
	repo := newFakeSessionRepo(session)
	svc, audit, _ := newTestService(repo)

	updated, err := svc.Approve(session, "therapist-1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.SessionApproved, updated.State)

	require.Len(t, audit.events, 1)
	event := audit.events[0]
	assert.Equal(t, models.AuditStateTransition, event.Type)
	assert.Equal(t, string(models.SessionRequested), event.OldState)
	assert.Equal(t, string(models.SessionApproved), event.NewState)
	assert.Equal(t, SessionWriterActor, event.Actor)
}

func TestStartCascadesVideoToWaiting(t *testing.T) {
	session := testSession(models.SessionReady)
	repo := newFakeSessionRepo(session)
	svc, _, _ := newTestService(repo)

	updated, err := svc.Start(session, "client-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionInProgress, updated.State)
	assert.Equal(t, models.VideoWaitingForParticipants, updated.Video)
	assert.Equal(t, models.VideoWaitingForParticipants, repo.sessions["sess-1"].Video)
}

func TestTerminalTransitionsCascadeVideoToEnded(t *testing.T) {
	cases := []struct {
		name string
		from models.SessionState
		run  func(svc *DefaultLifecycleService, s *models.Session) (*models.Session, error)
		want models.SessionState
	}{
		{
			name: "complete",
			from: models.SessionInProgress,
			run: func(svc *DefaultLifecycleService, s *models.Session) (*models.Session, error) {
				return svc.Complete(s, CompleteInput{DurationMinutes: 50, UserID: "therapist-1"})
			},
			want: models.SessionCompleted,
		},
		{
			name: "cancel",
			from: models.SessionReady,
			run: func(svc *DefaultLifecycleService, s *models.Session) (*models.Session, error) {
				return svc.Cancel(s, "client unavailable", "client-1")
			},
			want: models.SessionCancelled,
		},
		{
			name: "client no-show",
			from: models.SessionReady,
			run: func(svc *DefaultLifecycleService, s *models.Session) (*models.Session, error) {
				return svc.MarkNoShow(s, models.PartyClient, "therapist-1")
			},
			want: models.SessionNoShowClient,
		},
		{
			name: "therapist no-show",
			from: models.SessionInProgress,
			run: func(svc *DefaultLifecycleService, s *models.Session) (*models.Session, error) {
				return svc.MarkNoShow(s, models.PartyTherapist, "client-1")
			},
			want: models.SessionNoShowTherapist,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session := testSession(tc.from)
			repo := newFakeSessionRepo(session)
			svc, _, _ := newTestService(repo)

			updated, err := tc.run(svc, session)
			require.NoError(t, err)
			assert.Equal(t, tc.want, updated.State)
			assert.Equal(t, models.VideoEnded, updated.Video)
		})
	}
}

func TestVideoCascadeFailureDoesNotRollBackTransition(t *testing.T) {
	session := testSession(models.SessionReady)
	repo := newFakeSessionRepo(session)
	repo.videoErr = errors.New("video service unavailable")
	svc, _, tracker := newTestService(repo)

	updated, err := svc.Start(session, "client-1")
	require.NoError(t, err, "committed transition survives a failed cascade")
	assert.Equal(t, models.SessionInProgress, updated.State)
	assert.Equal(t, models.VideoNotStarted, updated.Video)
	assert.Contains(t, tracker.codes, "video_cascade_failed")
}

func TestUpdateFormsStatusChainsToReady(t *testing.T) {
	session := testSession(models.SessionFormsRequired)
	repo := newFakeSessionRepo(session)
	svc, audit, _ := newTestService(repo)

	updated, err := svc.UpdateFormsStatus(session, true, "client-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionReady, updated.State)
	assert.True(t, updated.FormsComplete)
	require.Len(t, audit.events, 1)
}

func TestUpdateFormsStatusWithoutStateChange(t *testing.T) {
	session := testSession(models.SessionReady)
	session.FormsComplete = true
	repo := newFakeSessionRepo(session)
	svc, audit, _ := newTestService(repo)

	updated, err := svc.UpdateFormsStatus(session, false, "client-1")
	require.NoError(t, err)
	assert.Equal(t, models.SessionReady, updated.State)
	assert.False(t, updated.FormsComplete)
	require.Len(t, audit.events, 1, "bookkeeping update is still audited")
	assert.Equal(t, string(models.SessionReady), audit.events[0].OldState)
	assert.Equal(t, audit.events[0].OldState, audit.events[0].NewState)
}

func TestUpdateMetadataRejectsForeignActor(t *testing.T) {
	session := testSession(models.SessionReady)
	repo := newFakeSessionRepo(session)
	audit := &fakeAuditSink{}
	updater := &AtomicStateUpdater{Repo: repo, Audit: audit, Logger: zap.NewNop()}

	tc := TransitionContext{Reason: "forms update", Actor: "payment-service"}
	_, err := updater.UpdateMetadata(session, tc, map[string]any{"forms_complete": true})

	var authErr *AuthorityViolationError
	require.ErrorAs(t, err, &authErr)
	assert.False(t, repo.sessions[session.ID].FormsComplete, "rejected update must not persist")
	assert.Empty(t, audit.events)
}

func TestUpdateMetadataGuardsAgainstConcurrentTransition(t *testing.T) {
	session := testSession(models.SessionReady)
	repo := newFakeSessionRepo(session)
	audit := &fakeAuditSink{}
	updater := &AtomicStateUpdater{Repo: repo, Audit: audit, Logger: zap.NewNop()}

	// Another writer moved the session after our caller read it.
	repo.sessions[session.ID].State = models.SessionInProgress

	tc := TransitionContext{Reason: "forms update", Actor: SessionWriterActor}
	_, err := updater.UpdateMetadata(session, tc, map[string]any{"forms_complete": true})
	require.ErrorIs(t, err, sessionRepo.ErrStateConflict)
	assert.Empty(t, audit.events)
}

func TestRecordPaymentOutcomeSuccessRoutesOnFormsStatus(t *testing.T) {
	attempt := models.PaymentAttempt{
		Timestamp:  time.Now(),
		Amount:     5000,
		Reference:  "txn-42",
		ResultCode: "0",
		Success:    true,
	}

	t.Run("forms outstanding", func(t *testing.T) {
		session := testSession(models.SessionProcessing)
		repo := newFakeSessionRepo(session)
		svc, _, _ := newTestService(repo)

		updated, err := svc.RecordPaymentOutcome(session, attempt)
		require.NoError(t, err)
		assert.Equal(t, models.SessionFormsRequired, updated.State)
		assert.Equal(t, models.PaymentPaid, updated.Payment.Status)
		require.Len(t, repo.attempts["sess-1"], 1)
	})

	t.Run("forms already complete", func(t *testing.T) {
		session := testSession(models.SessionProcessing)
		session.FormsComplete = true
		repo := newFakeSessionRepo(session)
		svc, _, _ := newTestService(repo)

		updated, err := svc.RecordPaymentOutcome(session, attempt)
		require.NoError(t, err)
		assert.Equal(t, models.SessionReady, updated.State)
	})
}

func TestRecordPaymentOutcomeFailureKeepsState(t *testing.T) {
	session := testSession(models.SessionProcessing)
	repo := newFakeSessionRepo(session)
	svc, audit, _ := newTestService(repo)

	updated, err := svc.RecordPaymentOutcome(session, models.PaymentAttempt{
		Timestamp:  time.Now(),
		Amount:     5000,
		Reference:  "txn-43",
		ResultCode: "1032",
		ResultDesc: "cancelled by user",
		Success:    false,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionProcessing, updated.State)
	assert.Equal(t, models.PaymentFailed, updated.Payment.Status)
	require.Len(t, repo.attempts["sess-1"], 1)
	assert.Empty(t, audit.events, "failed payment is facts only, not a transition")
}

func TestTransitionGraph(t *testing.T) {
	assert.True(t, CanTransition(models.SessionRequested, models.SessionApproved))
	assert.True(t, CanTransition(models.SessionApproved, models.SessionPaymentPending))
	assert.True(t, CanTransition(models.SessionProcessing, models.SessionReady))
	assert.True(t, CanTransition(models.SessionProcessing, models.SessionFormsRequired))
	assert.True(t, CanTransition(models.SessionInProgress, models.SessionCompleted))

	assert.False(t, CanTransition(models.SessionRequested, models.SessionInProgress))
	assert.False(t, CanTransition(models.SessionCompleted, models.SessionInProgress), "terminal states have no successors")
	assert.False(t, CanTransition(models.SessionCancelled, models.SessionRequested))
	assert.False(t, CanTransition(models.SessionNoShowClient, models.SessionReady))
	assert.False(t, CanTransition(models.SessionApproved, models.SessionRequested), "no path returns to Requested")
}
