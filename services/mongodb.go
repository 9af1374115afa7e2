package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InitMongoDB initializes the MongoDB connection.
func InitMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	slog.Info("Connected to MongoDB")

	return client, nil
}

// CreateIndexes creates the indexes the stores rely on. The unique index on
// users.email closes the read-then-write race under concurrent registration.
func CreateIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	usersCollection := db.Collection("users")
	if _, err := usersCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"email": 1},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	sessionsCollection := db.Collection("sessions")
	if _, err := sessionsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"session_id": 1},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.M{"user_id": 1}},
		{Keys: bson.M{"expires_at": 1}},
	}); err != nil {
		return fmt.Errorf("failed to create sessions indexes: %w", err)
	}

	scansCollection := db.Collection("email_scans")
	if _, err := scansCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"user_id": 1}},
		{Keys: bson.M{"scan_time": -1}},
	}); err != nil {
		return fmt.Errorf("failed to create email_scans indexes: %w", err)
	}

	return nil
}
