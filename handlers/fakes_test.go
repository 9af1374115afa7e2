package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"email-scanner/models"
	"email-scanner/services"
)

type fakeUserStore struct {
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	if _, ok := f.users[user.Email]; ok {
		return services.ErrDuplicateEmail
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()
	f.users[user.Email] = user
	return nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserStore) GetByID(ctx context.Context, userID string) (*models.User, error) {
	for _, user := range f.users {
		if user.ID.Hex() == userID {
			return user, nil
		}
	}
	return nil, services.ErrUserNotFound
}

func (f *fakeUserStore) UpdateLastLogin(ctx context.Context, userID primitive.ObjectID) error {
	for _, user := range f.users {
		if user.ID == userID {
			now := time.Now().UTC()
			user.LastLogin = &now
		}
	}
	return nil
}

func (f *fakeUserStore) ApplyGoogleIdentity(ctx context.Context, userID primitive.ObjectID, identity services.GoogleIdentity) error {
	for _, user := range f.users {
		if user.ID == userID {
			user.GoogleID = identity.GoogleID
			if identity.Tokens != nil {
				user.GoogleTokens = identity.Tokens
			}
			if identity.Name != "" {
				user.Name = identity.Name
			}
			if identity.Picture != "" {
				user.Picture = identity.Picture
			}
			user.Verified = identity.Verified
			return nil
		}
	}
	return services.ErrUserNotFound
}

func (f *fakeUserStore) AppendSessionInfo(ctx context.Context, userID primitive.ObjectID, info models.SessionInfo) error {
	for _, user := range f.users {
		if user.ID == userID {
			user.Sessions = append(user.Sessions, info)
		}
	}
	return nil
}

func (f *fakeUserStore) CloseSessionInfo(ctx context.Context, userID primitive.ObjectID, sessionID string, end time.Time) error {
	for _, user := range f.users {
		if user.ID == userID {
			services.CloseSessionRecord(user.Sessions, sessionID, end)
		}
	}
	return nil
}

func (f *fakeUserStore) ExpireStaleSessionInfos(ctx context.Context, user *models.User, lifetime time.Duration) error {
	services.ExpireStaleSessionRecords(user.Sessions, lifetime, time.Now().UTC())
	return nil
}

type fakeSessionStore struct {
	sessions map[string]*models.Session
	lifetime time.Duration
	deletes  int
}

func newFakeSessionStore(lifetime time.Duration) *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]*models.Session{}, lifetime: lifetime}
}

func (f *fakeSessionStore) Create(ctx context.Context, userID primitive.ObjectID, data map[string]interface{}) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:        primitive.NewObjectID(),
		SessionID: uuid.NewString(),
		UserID:    userID,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(f.lifetime),
	}
	f.sessions[session.SessionID] = session
	return session, nil
}

func (f *fakeSessionStore) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	session, ok := f.sessions[sessionID]
	if !ok || session.ExpiresAt.Before(time.Now().UTC()) {
		return nil, nil
	}
	return session, nil
}

func (f *fakeSessionStore) Delete(ctx context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	f.deletes++
	return nil
}

type fakeScanner struct {
	outcome *services.ScanOutcome
	err     error
	calls   int
}

func (f *fakeScanner) Scan(ctx context.Context, maxMessages int) (*services.ScanOutcome, error) {
	f.calls++
	return f.outcome, f.err
}

type fakeScanStore struct {
	latest   *models.ScanResult
	replaced int
}

func (f *fakeScanStore) Replace(ctx context.Context, userID primitive.ObjectID, result *models.ScanResult) error {
	f.latest = result
	f.replaced++
	return nil
}

func (f *fakeScanStore) Latest(ctx context.Context, userID primitive.ObjectID) (*models.ScanResult, error) {
	return f.latest, nil
}
