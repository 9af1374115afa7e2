package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"email-scanner/models"
)

// GoogleIdentity carries the provider profile fields applied to a user on a
// Google sign-in. Empty values never override stored ones.
type GoogleIdentity struct {
	GoogleID string
	Tokens   map[string]interface{}
	Name     string
	Picture  string
	Verified bool
}

// UserStore persists user documents and their embedded session history.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, userID primitive.ObjectID) error
	ApplyGoogleIdentity(ctx context.Context, userID primitive.ObjectID, identity GoogleIdentity) error
	AppendSessionInfo(ctx context.Context, userID primitive.ObjectID, info models.SessionInfo) error
	CloseSessionInfo(ctx context.Context, userID primitive.ObjectID, sessionID string, end time.Time) error
	ExpireStaleSessionInfos(ctx context.Context, user *models.User, lifetime time.Duration) error
}

// MongoUserStore implements UserStore on the users collection.
type MongoUserStore struct {
	collection *mongo.Collection
}

func NewUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{collection: db.Collection("users")}
}

// Create inserts a new user. A duplicate email surfaces as ErrDuplicateEmail,
// backed by the unique index on email.
func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.Sessions == nil {
		user.Sessions = []models.SessionInfo{}
	}

	_, err := s.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("User created", "userID", user.ID.Hex(), "email", user.Email)
	return nil
}

func (s *MongoUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

func (s *MongoUserStore) GetByID(ctx context.Context, userID string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID format: %w", err)
	}

	var user models.User
	err = s.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *MongoUserStore) UpdateLastLogin(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"last_login": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// ApplyGoogleIdentity links or refreshes the Google identity on a user.
func (s *MongoUserStore) ApplyGoogleIdentity(ctx context.Context, userID primitive.ObjectID, identity GoogleIdentity) error {
	update := bson.M{
		"google_id":  identity.GoogleID,
		"verified":   identity.Verified,
		"last_login": time.Now().UTC(),
	}
	if identity.Tokens != nil {
		update["google_tokens"] = identity.Tokens
	}
	if identity.Name != "" {
		update["name"] = identity.Name
	}
	if identity.Picture != "" {
		update["picture"] = identity.Picture
	}

	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": update})
	if err != nil {
		return fmt.Errorf("failed to apply google identity: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// AppendSessionInfo pushes a new session record onto the user's history.
func (s *MongoUserStore) AppendSessionInfo(ctx context.Context, userID primitive.ObjectID, info models.SessionInfo) error {
	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$push": bson.M{"sessions": info}},
	)
	if err != nil {
		return fmt.Errorf("failed to append session info: %w", err)
	}
	return nil
}

// CloseSessionInfo sets the end time and real elapsed duration on the matching
// open session record. Closing an already closed record is a no-op.
func (s *MongoUserStore) CloseSessionInfo(ctx context.Context, userID primitive.ObjectID, sessionID string, end time.Time) error {
	var user models.User
	err := s.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to load user sessions: %w", err)
	}

	if !CloseSessionRecord(user.Sessions, sessionID, end) {
		return nil
	}

	_, err = s.collection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"sessions": user.Sessions}},
	)
	if err != nil {
		return fmt.Errorf("failed to close session info: %w", err)
	}
	return nil
}

// ExpireStaleSessionInfos lazily closes open session records older than the
// session lifetime and persists the result when anything changed.
func (s *MongoUserStore) ExpireStaleSessionInfos(ctx context.Context, user *models.User, lifetime time.Duration) error {
	if !ExpireStaleSessionRecords(user.Sessions, lifetime, time.Now().UTC()) {
		return nil
	}

	_, err := s.collection.UpdateOne(
		ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"sessions": user.Sessions}},
	)
	if err != nil {
		return fmt.Errorf("failed to expire stale sessions: %w", err)
	}
	return nil
}

// CloseSessionRecord closes the open record matching sessionID with the real
// elapsed duration. Returns true when a record was modified.
func CloseSessionRecord(sessions []models.SessionInfo, sessionID string, end time.Time) bool {
	for i := range sessions {
		si := &sessions[i]
		if si.SessionID == sessionID && si.EndTime == nil {
			endCopy := end
			duration := int64(end.Sub(si.StartTime).Seconds())
			si.EndTime = &endCopy
			si.Duration = &duration
			return true
		}
	}
	return false
}

// ExpireStaleSessionRecords marks open records older than lifetime as expired.
// The recorded duration is the lifetime window itself, not the actual elapsed
// time; this mirrors the historical behavior and is intentional.
func ExpireStaleSessionRecords(sessions []models.SessionInfo, lifetime time.Duration, now time.Time) bool {
	changed := false
	for i := range sessions {
		si := &sessions[i]
		if si.EndTime == nil && si.StartTime.Before(now.Add(-lifetime)) {
			end := si.StartTime.Add(lifetime)
			duration := int64(lifetime.Seconds())
			si.EndTime = &end
			si.Duration = &duration
			si.Expired = true
			changed = true
		}
	}
	return changed
}

// HashPassword generates a bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
