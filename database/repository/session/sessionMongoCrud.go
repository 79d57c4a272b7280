// File: database/repository/session/sessionMongoCrud.go
package sessionRepo

import (
	"errors"
	"fmt"
	"time"

	"mindwell/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new session document.
func (r *MongoSessionRepo) Create(session *models.Session) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	session.CreatedAt = now
	session.UpdatedAt = now

	_, err := r.coll.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by its unique ID.
func (r *MongoSessionRepo) GetByID(id string) (*models.Session, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var session models.Session
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch session with id %s: %w", id, err)
	}
	return &session, nil
}

// TransitionState applies the state change plus companion fields as a single
// guarded update and returns the post-update document. The $eq guard on the
// current state makes the transition atomic: a concurrent writer that changed
// the state first causes ErrStateConflict, leaving the document untouched.
func (r *MongoSessionRepo) TransitionState(
	id string,
	fromState, toState models.SessionState,
	set map[string]any,
) (*models.Session, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	setDoc := bson.M{
		"state":      toState,
		"updated_at": time.Now(),
	}
	for k, v := range set {
		setDoc[k] = v
	}

	filter := bson.M{"id": id, "state": bson.M{"$eq": fromState}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Session
	err := r.coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": setDoc}, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Either the session does not exist or the guard lost.
			if _, getErr := r.GetByID(id); getErr != nil {
				return nil, ErrNotFound
			}
			return nil, ErrStateConflict
		}
		return nil, fmt.Errorf("failed to transition session %s: %w", id, err)
	}
	return &updated, nil
}

// SetVideoState writes the cascaded video-access field.
func (r *MongoSessionRepo) SetVideoState(id string, video models.VideoAccessState) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"video": video, "updated_at": time.Now()}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set video state for session %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkReminderSent claims the sent-marker for the given kind. The filter on
// the unsent marker makes check-then-set one server-side operation, so at
// most one caller wins.
func (r *MongoSessionRepo) MarkReminderSent(id string, kind models.ReminderKind, at time.Time) (bool, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	field := "reminder_24h"
	if kind == models.Reminder1Hour {
		field = "reminder_1h"
	}

	filter := bson.M{"id": id, field + ".sent": bson.M{"$ne": true}}
	update := bson.M{"$set": bson.M{
		field + ".sent":    true,
		field + ".sent_at": at,
		"updated_at":       at,
	}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark %s reminder for session %s: %w", kind, id, err)
	}
	return result.ModifiedCount == 1, nil
}

// AppendPaymentAttempt pushes one entry onto the append-only attempt log.
// The log is only ever grown, never rewritten.
func (r *MongoSessionRepo) AppendPaymentAttempt(id string, attempt models.PaymentAttempt) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	update := bson.M{
		"$push": bson.M{"payment.attempts": attempt},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to append payment attempt for session %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPaymentFacts updates the locally stored payment facts.
func (r *MongoSessionRepo) SetPaymentFacts(id string, status models.PaymentStatus, transactionRef string, amount int64) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	now := time.Now()
	setDoc := bson.M{
		"payment.status":            status,
		"payment.status_changed_at": now,
		"updated_at":                now,
	}
	if transactionRef != "" {
		setDoc["payment.transaction_ref"] = transactionRef
	}
	if amount > 0 {
		setDoc["payment.amount"] = amount
	}

	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": setDoc})
	if err != nil {
		return fmt.Errorf("failed to set payment facts for session %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
