package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"email-scanner/models"
	"email-scanner/services"
)

type stubSessionStore struct {
	session *models.Session
}

func (s *stubSessionStore) Create(ctx context.Context, userID primitive.ObjectID, data map[string]interface{}) (*models.Session, error) {
	return s.session, nil
}

func (s *stubSessionStore) GetByID(ctx context.Context, sessionID string) (*models.Session, error) {
	if s.session != nil && s.session.SessionID == sessionID {
		return s.session, nil
	}
	return nil, nil
}

func (s *stubSessionStore) Delete(ctx context.Context, sessionID string) error {
	return nil
}

func newProtectedApp(codec *services.TokenCodec, sessions services.SessionStore) *fiber.App {
	app := fiber.New()
	app.Get("/protected", RequireAuth("session_id", codec, sessions), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"session_id": c.Locals("session_id"),
			"user_id":    c.Locals("user_id"),
		})
	})
	return app
}

func protectedRequest(token string) *http.Request {
	req := httptest.NewRequest("GET", "/protected", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: token})
	}
	return req
}

func TestRequireAuth_ValidSession(t *testing.T) {
	codec := services.NewTokenCodec("secret", time.Hour)
	userID := primitive.NewObjectID()
	sessions := &stubSessionStore{session: &models.Session{
		SessionID: "sess-1",
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Hour),
	}}

	token, err := codec.Sign("sess-1", userID.Hex())
	require.NoError(t, err)

	app := newProtectedApp(codec, sessions)
	resp, err := app.Test(protectedRequest(token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestRequireAuth_MissingCookie(t *testing.T) {
	codec := services.NewTokenCodec("secret", time.Hour)
	app := newProtectedApp(codec, &stubSessionStore{})

	resp, err := app.Test(protectedRequest(""))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRequireAuth_BadToken(t *testing.T) {
	codec := services.NewTokenCodec("secret", time.Hour)
	app := newProtectedApp(codec, &stubSessionStore{})

	resp, err := app.Test(protectedRequest("garbage"))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestRequireAuth_ValidTokenMissingSession(t *testing.T) {
	// The signature checks out but the session document is gone, for example
	// after logout. The middleware must still reject the request.
	codec := services.NewTokenCodec("secret", time.Hour)
	token, err := codec.Sign("deleted-session", primitive.NewObjectID().Hex())
	require.NoError(t, err)

	app := newProtectedApp(codec, &stubSessionStore{})
	resp, err := app.Test(protectedRequest(token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
