package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"email-scanner/services"
)

// RequireAuth resolves the session for a request: signed cookie first, then
// the backing session document. A valid signature alone is not enough, the
// session record must still exist and be unexpired. Every failure collapses
// to the same 401 so the middleware fails closed.
func RequireAuth(cookieName string, codec *services.TokenCodec, sessions services.SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cookie := c.Cookies(cookieName)
		if cookie == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		claims, err := codec.Verify(cookie)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		session, err := sessions.GetByID(c.Context(), claims.SessionID)
		if err != nil {
			slog.Error("Failed to get session", "error", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}
		if session == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired session",
			})
		}

		c.Locals("session_id", session.SessionID)
		c.Locals("user_id", session.UserID.Hex())

		return c.Next()
	}
}
