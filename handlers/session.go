package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"email-scanner/models"
	"email-scanner/services"
)

// sessionIssuer bundles what every login path needs to start a session:
// the stores, the token codec and the cookie contract.
type sessionIssuer struct {
	users      services.UserStore
	sessions   services.SessionStore
	codec      *services.TokenCodec
	cookieName string
	lifetime   time.Duration
}

// startSession creates the session document, records it in the user's session
// history and sets the signed session cookie.
func (si *sessionIssuer) startSession(c *fiber.Ctx, user *models.User, data map[string]interface{}) error {
	session, err := si.sessions.Create(c.Context(), user.ID, data)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	err = si.users.AppendSessionInfo(c.Context(), user.ID, models.SessionInfo{
		SessionID: session.SessionID,
		StartTime: session.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}

	token, err := si.codec.Sign(session.SessionID, user.ID.Hex())
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     si.cookieName,
		Value:    token,
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	return nil
}

// clearSessionCookie expires the session cookie on the client.
func (si *sessionIssuer) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     si.cookieName,
		Value:    "",
		Expires:  time.Now().Add(-1 * time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
}
