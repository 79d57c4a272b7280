// File: database/repository/session/sessionMongoQueries.go
package sessionRepo

import (
	"fmt"
	"time"

	"mindwell/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// reminderEligibleStates are the booking states a session must be in for
// reminders to fire: the booking is confirmed and paid for.
var reminderEligibleStates = []models.SessionState{
	models.SessionFormsRequired,
	models.SessionReady,
}

// FindDueForReminder returns sessions scheduled inside [windowStart,
// windowEnd) that have not yet received the reminder of the given kind.
func (r *MongoSessionRepo) FindDueForReminder(
	kind models.ReminderKind,
	windowStart, windowEnd time.Time,
) ([]models.Session, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	field := "reminder_24h"
	if kind == models.Reminder1Hour {
		field = "reminder_1h"
	}

	filter := bson.M{
		"scheduled_at":  bson.M{"$gte": windowStart, "$lt": windowEnd},
		"state":         bson.M{"$in": reminderEligibleStates},
		field + ".sent": bson.M{"$ne": true},
	}

	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions due for %s reminder: %w", kind, err)
	}
	defer cursor.Close(ctx)

	var sessions []models.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions due for %s reminder: %w", kind, err)
	}
	return sessions, nil
}

// FindStaleProcessing returns sessions whose payment status has been
// Processing since before olderThan, capped at limit.
func (r *MongoSessionRepo) FindStaleProcessing(olderThan time.Time, limit int) ([]models.Session, error) {
	ctx, cancel := newContext(10 * time.Second)
	defer cancel()

	filter := bson.M{
		"payment.status":            models.PaymentProcessing,
		"payment.status_changed_at": bson.M{"$lt": olderThan},
	}
	opts := options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "payment.status_changed_at", Value: 1}})

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale processing sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode stale processing sessions: %w", err)
	}
	return sessions, nil
}

// FindByTransactionRef returns every session that stores the given external
// transaction reference. More than one match means the reference was reused.
func (r *MongoSessionRepo) FindByTransactionRef(ref string) ([]models.Session, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"payment.transaction_ref": ref})
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions by transaction ref: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions by transaction ref: %w", err)
	}
	return sessions, nil
}
