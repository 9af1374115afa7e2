package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"email-scanner/models"
)

// SessionStore persists the authoritative active-session records.
type SessionStore interface {
	Create(ctx context.Context, userID primitive.ObjectID, data map[string]interface{}) (*models.Session, error)
	GetByID(ctx context.Context, sessionID string) (*models.Session, error)
	Delete(ctx context.Context, sessionID string) error
}

// MongoSessionStore implements SessionStore on the sessions collection.
type MongoSessionStore struct {
	collection *mongo.Collection
	lifetime   time.Duration
}

func NewSessionStore(db *mongo.Database, lifetime time.Duration) *MongoSessionStore {
	return &MongoSessionStore{
		collection: db.Collection("sessions"),
		lifetime:   lifetime,
	}
}

// Create inserts a new session document with a fresh random session id.
func (s *MongoSessionStore) Create(ctx context.Context, userID primitive.ObjectID, data map[string]interface{}) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:        primitive.NewObjectID(),
		SessionID: uuid.NewString(),
		UserID:    userID,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(s.lifetime),
	}

	if _, err := s.collection.InsertOne(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetByID returns the session with the given id, or nil when it does not
// exist or has expired. Expiry is enforced here, not by a sweeper.
func (s *MongoSessionStore) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	err := s.collection.FindOne(ctx, bson.M{
		"session_id": sessionID,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// Delete removes the session document. Deleting a missing session is a no-op.
func (s *MongoSessionStore) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"session_id": sessionID}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
