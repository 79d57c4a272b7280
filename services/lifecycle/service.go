package lifecycle

import (
	"time"

	sessionRepo "mindwell/database/repository/session"
	"mindwell/models"

	"go.uber.org/zap"
)

// DefaultLifecycleService is the production implementation.
type DefaultLifecycleService struct {
	Updater *AtomicStateUpdater
	Repo    sessionRepo.SessionRepository
	Tracker ErrorTracker
	Logger  *zap.Logger
}

func (s *DefaultLifecycleService) context(reason, userID string, metadata map[string]any) TransitionContext {
	return TransitionContext{
		Reason:   reason,
		Actor:    SessionWriterActor,
		UserID:   userID,
		Metadata: metadata,
	}
}

// Approve moves a requested session to Approved.
func (s *DefaultLifecycleService) Approve(session *models.Session, therapistID string, extra map[string]any) (*models.Session, error) {
	tc := s.context("therapist approved session", therapistID, extra)
	return s.Updater.Transition(session, models.SessionApproved, tc, nil)
}

// MarkReady moves a session to Ready. It is called automatically once forms
// are complete and the session is in FormsRequired, and is also available for
// direct invocation.
func (s *DefaultLifecycleService) MarkReady(session *models.Session, extra map[string]any) (*models.Session, error) {
	tc := s.context("session ready", "", extra)
	return s.Updater.Transition(session, models.SessionReady, tc, nil)
}

// Start moves a session to InProgress and cascades the video-access state to
// WaitingForParticipants.
func (s *DefaultLifecycleService) Start(session *models.Session, userID string) (*models.Session, error) {
	now := time.Now()
	tc := s.context("session started", userID, nil)

	updated, err := s.Updater.Transition(session, models.SessionInProgress, tc, map[string]any{
		"started_at": now,
	})
	if err != nil {
		return nil, err
	}

	s.cascadeVideo(updated, models.VideoWaitingForParticipants)
	return updated, nil
}

// Complete moves a session to Completed, records duration and notes, and
// cascades video access to Ended.
func (s *DefaultLifecycleService) Complete(session *models.Session, input CompleteInput) (*models.Session, error) {
	now := time.Now()
	tc := s.context("session completed", input.UserID, nil)

	updated, err := s.Updater.Transition(session, models.SessionCompleted, tc, map[string]any{
		"ended_at":      now,
		"actual_length": input.DurationMinutes,
		"notes":         input.Notes,
	})
	if err != nil {
		return nil, err
	}

	s.cascadeVideo(updated, models.VideoEnded)
	return updated, nil
}

// Cancel moves a session to Cancelled and cascades video access to Ended if
// it was not already ended.
func (s *DefaultLifecycleService) Cancel(session *models.Session, reason, userID string) (*models.Session, error) {
	tc := s.context(reason, userID, nil)

	updated, err := s.Updater.Transition(session, models.SessionCancelled, tc, map[string]any{
		"cancel_reason": reason,
	})
	if err != nil {
		return nil, err
	}

	if updated.Video != models.VideoEnded {
		s.cascadeVideo(updated, models.VideoEnded)
	}
	return updated, nil
}

// MarkNoShow records a no-show for the given party and cascades video access
// to Ended.
func (s *DefaultLifecycleService) MarkNoShow(session *models.Session, who models.PartyRole, detectedBy string) (*models.Session, error) {
	target := models.SessionNoShowClient
	if who == models.PartyTherapist {
		target = models.SessionNoShowTherapist
	}

	tc := s.context("no-show recorded", detectedBy, map[string]any{
		"party":      string(who),
		"detectedBy": detectedBy,
	})

	updated, err := s.Updater.Transition(session, target, tc, map[string]any{
		"ended_at": time.Now(),
	})
	if err != nil {
		return nil, err
	}

	s.cascadeVideo(updated, models.VideoEnded)
	return updated, nil
}

// UpdateFormsStatus sets the forms-completion flag and metadata. When the
// forms just became complete and the session is waiting on them, it chains
// into MarkReady.
func (s *DefaultLifecycleService) UpdateFormsStatus(session *models.Session, complete bool, userID string) (*models.Session, error) {
	now := time.Now()
	set := map[string]any{
		"forms_complete": complete,
	}
	if complete {
		set["forms_completed_by"] = userID
		set["forms_completed_at"] = now
	}

	if complete && session.State == models.SessionFormsRequired {
		tc := s.context("intake forms completed", userID, nil)
		return s.Updater.Transition(session, models.SessionReady, tc, set)
	}

	// Forms bookkeeping without a state change still goes through the
	// updater so the write stays guarded, authority-checked, and audited.
	tc := s.context("intake forms updated", userID, nil)
	return s.Updater.UpdateMetadata(session, tc, set)
}

// cascadeVideo writes the derived video-access state after the transition has
// committed. A failed cascade is logged and tracked, never rolled back: the
// state transition is already durable.
func (s *DefaultLifecycleService) cascadeVideo(session *models.Session, video models.VideoAccessState) {
	if err := s.Repo.SetVideoState(session.ID, video); err != nil {
		s.Logger.Error("video access cascade failed",
			zap.String("sessionId", session.ID),
			zap.String("video", string(video)),
			zap.Error(err))
		if s.Tracker != nil {
			s.Tracker.TrackError(models.CategoryLifecycle, "video_cascade_failed",
				"video access cascade failed after committed transition",
				models.SeverityHigh,
				map[string]any{"sessionId": session.ID, "video": string(video)})
		}
		return
	}
	session.Video = video
}
