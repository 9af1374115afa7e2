package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"email-scanner/models"
)

// ScanStore persists per-user scan results with latest-only semantics.
type ScanStore interface {
	Replace(ctx context.Context, userID primitive.ObjectID, result *models.ScanResult) error
	Latest(ctx context.Context, userID primitive.ObjectID) (*models.ScanResult, error)
}

// MongoScanStore implements ScanStore on the email_scans collection.
type MongoScanStore struct {
	collection *mongo.Collection
}

func NewScanStore(db *mongo.Database) *MongoScanStore {
	return &MongoScanStore{collection: db.Collection("email_scans")}
}

// Replace removes any prior results for the user and inserts the new one.
// The two operations are not transactional: a crash in between loses the
// previous scan rather than keeping a stale one.
func (s *MongoScanStore) Replace(ctx context.Context, userID primitive.ObjectID, result *models.ScanResult) error {
	if _, err := s.collection.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("failed to delete previous scans: %w", err)
	}

	result.UserID = userID
	if _, err := s.collection.InsertOne(ctx, result); err != nil {
		return fmt.Errorf("failed to insert scan result: %w", err)
	}

	return nil
}

// Latest returns the most recent scan for the user, or nil when none exists.
func (s *MongoScanStore) Latest(ctx context.Context, userID primitive.ObjectID) (*models.ScanResult, error) {
	var result models.ScanResult
	err := s.collection.FindOne(
		ctx,
		bson.M{"user_id": userID},
		options.FindOne().SetSort(bson.M{"scan_time": -1}),
	).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest scan: %w", err)
	}

	return &result, nil
}
