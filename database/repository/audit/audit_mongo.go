package auditRepo

import (
	"context"
	"fmt"
	"time"

	"mindwell/database"
	"mindwell/models"
	"mindwell/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// AuditSink appends events to the audit trail. Appends are fire-and-forget
// from the caller's perspective: failures are logged locally and never
// propagated to fail the primary operation.
type AuditSink interface {
	Append(event models.AuditEvent)
}

// MongoAuditSink implements AuditSink using MongoDB.
type MongoAuditSink struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongoAuditSink creates a new instance of AuditSink using MongoDB.
func NewMongoAuditSink() AuditSink {
	coll := database.MongoClient.Database("mindwell").Collection("audit_events")
	return &MongoAuditSink{coll: coll, logger: utils.GetLogger()}
}

// Append writes one audit event. Errors are swallowed after local logging.
func (s *MongoAuditSink) Append(event models.AuditEvent) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.coll.InsertOne(ctx, event); err != nil {
		s.logger.Error("audit append failed",
			zap.String("type", string(event.Type)),
			zap.String("sessionId", event.SessionID),
			zap.Error(fmt.Errorf("failed to insert audit event: %w", err)))
	}
}
