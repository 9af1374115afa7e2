package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"email-scanner/models"
	"email-scanner/services"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"created_at"`
	GoogleConnected bool      `json:"google_connected"`
}

// AuthHandler serves the local-password authentication endpoints.
type AuthHandler struct {
	sessionIssuer
	validate *validator.Validate
}

func NewAuthHandler(users services.UserStore, sessions services.SessionStore, codec *services.TokenCodec, cookieName string, lifetime time.Duration) *AuthHandler {
	return &AuthHandler{
		sessionIssuer: sessionIssuer{
			users:      users,
			sessions:   sessions,
			codec:      codec,
			cookieName: cookieName,
			lifetime:   lifetime,
		},
		validate: validator.New(),
	}
}

// Register creates a local account and logs it in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	hashed, err := services.HashPassword(req.Password)
	if err != nil {
		slog.Error("Failed to hash password", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	user := &models.User{
		Email:    req.Email,
		Password: hashed,
	}

	// The unique index on email makes this safe under concurrent registration.
	if err := h.users.Create(c.Context(), user); err != nil {
		if errors.Is(err, services.ErrDuplicateEmail) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Email already registered",
			})
		}
		slog.Error("Failed to create user", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	if err := h.startSession(c, user, map[string]interface{}{"email": user.Email}); err != nil {
		slog.Error("Failed to start session", "error", err, "userID", user.ID.Hex())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	slog.Info("User registered", "userID", user.ID.Hex(), "email", user.Email)

	return c.Status(fiber.StatusOK).JSON(UserResponse{
		ID:              user.ID.Hex(),
		Email:           user.Email,
		CreatedAt:       user.CreatedAt,
		GoogleConnected: false,
	})
}

// Login verifies local credentials and starts a new session. An unknown email
// and a wrong password are indistinguishable to the caller.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	user, err := h.users.GetByEmail(c.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			slog.Error("Failed to get user", "error", err)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if !services.CheckPasswordHash(req.Password, user.Password) {
		slog.Info("Invalid password attempt", "email", req.Email)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	// Lazily close session records that outlived the session lifetime.
	if err := h.users.ExpireStaleSessionInfos(c.Context(), user, h.lifetime); err != nil {
		slog.Error("Failed to expire stale sessions", "error", err, "userID", user.ID.Hex())
	}

	if err := h.users.UpdateLastLogin(c.Context(), user.ID); err != nil {
		slog.Error("Failed to update last login", "error", err, "userID", user.ID.Hex())
	}

	if err := h.startSession(c, user, map[string]interface{}{"email": user.Email}); err != nil {
		slog.Error("Failed to start session", "error", err, "userID", user.ID.Hex())
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	slog.Info("User logged in", "userID", user.ID.Hex(), "email", user.Email)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Login successful",
	})
}

// Logout deletes the session and closes its history record with the real
// elapsed duration. It is idempotent and succeeds even without a session.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if cookie := c.Cookies(h.cookieName); cookie != "" {
		if claims, err := h.codec.Verify(cookie); err == nil {
			if err := h.sessions.Delete(c.Context(), claims.SessionID); err != nil {
				slog.Error("Failed to delete session", "error", err)
			}

			if userID, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
				err := h.users.CloseSessionInfo(c.Context(), userID, claims.SessionID, time.Now().UTC())
				if err != nil && !errors.Is(err, services.ErrUserNotFound) {
					slog.Error("Failed to close session record", "error", err)
				}
			}
		}
	}

	h.clearSessionCookie(c)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Logout successful",
	})
}

// Me returns the authenticated user's profile summary.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)

	user, err := h.users.GetByID(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"email":            user.Email,
		"google_connected": user.GoogleConnected(),
	})
}
