package database

import (
	"context"
	"log"
	"time"

	"mindwell/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient is the global MongoDB client. Repositories resolve their
// collections from it after InitDB has run.
var MongoClient *mongo.Client

// InitDB connects to MongoDB using the configured URL and verifies the
// connection with a ping. Startup aborts if the database is unreachable.
func InitDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.AppConfig.DatabaseURL))
	if err != nil {
		log.Fatalf("failed to connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("failed to ping MongoDB: %v", err)
	}

	MongoClient = client
	log.Println("Connected to MongoDB")
}
