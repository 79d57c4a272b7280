package partyRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindwell/database"
	"mindwell/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no party matches the given id.
var ErrNotFound = errors.New("party not found")

// PartyRepository defines data access for session participants.
type PartyRepository interface {
	GetByID(id string) (*models.Party, error)
	Upsert(party *models.Party) error
}

// MongoPartyRepo implements PartyRepository using MongoDB.
type MongoPartyRepo struct {
	coll *mongo.Collection
}

// NewMongoPartyRepo creates a new instance of PartyRepository using MongoDB.
func NewMongoPartyRepo() PartyRepository {
	coll := database.MongoClient.Database("mindwell").Collection("parties")
	return &MongoPartyRepo{coll: coll}
}

func newContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// GetByID retrieves a party by its unique ID.
func (r *MongoPartyRepo) GetByID(id string) (*models.Party, error) {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	var party models.Party
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&party)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch party with id %s: %w", id, err)
	}
	return &party, nil
}

// Upsert stores or replaces a party document.
func (r *MongoPartyRepo) Upsert(party *models.Party) error {
	ctx, cancel := newContext(5 * time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": party.ID}, party, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert party with id %s: %w", party.ID, err)
	}
	return nil
}
