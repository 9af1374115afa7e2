package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"email-scanner/models"
	"email-scanner/services"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

	exchangeTimeout = 15 * time.Second
)

// Known provider error codes mapped to user-facing messages. Anything else
// gets the default message.
var googleErrorMessages = map[string]string{
	"access_denied":       "Google login was cancelled.",
	"invalid_request":     "Invalid login request. Please try again.",
	"unauthorized_client": "Login service temporarily unavailable.",
}

const googleDefaultError = "Google login failed. Please try again."

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	EmailVerified bool   `json:"email_verified"`
}

// GoogleHandler serves the Google sign-in redirect flow.
type GoogleHandler struct {
	sessionIssuer
	oauth *oauth2.Config
}

func NewGoogleHandler(users services.UserStore, sessions services.SessionStore, codec *services.TokenCodec,
	cookieName string, lifetime time.Duration, clientID, clientSecret, redirectURI string) *GoogleHandler {
	return &GoogleHandler{
		sessionIssuer: sessionIssuer{
			users:      users,
			sessions:   sessions,
			codec:      codec,
			cookieName: cookieName,
			lifetime:   lifetime,
		},
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  googleAuthURL,
				TokenURL: googleTokenURL,
			},
		},
	}
}

// Login redirects to Google's authorization endpoint with a fresh
// anti-forgery state value.
func (h *GoogleHandler) Login(c *fiber.Ctx) error {
	if h.oauth.ClientID == "" || h.oauth.RedirectURL == "" {
		slog.Error("Google credentials not configured")
		return redirectWithError(c, "Failed to initiate Google login. Please try again.")
	}

	state := uuid.NewString()
	authURL := h.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "select_account"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	)

	slog.Info("Initiating Google OAuth", "state", state)
	return c.Redirect(authURL, fiber.StatusFound)
}

// Callback handles the provider redirect: exchanges the authorization code,
// fetches the identity, finds or creates the user and starts a session. Every
// failure redirects to the login page with a human-readable message.
func (h *GoogleHandler) Callback(c *fiber.Ctx) error {
	if errCode := c.Query("error"); errCode != "" {
		slog.Warn("Google OAuth error", "code", errCode)
		message, ok := googleErrorMessages[errCode]
		if !ok {
			message = googleDefaultError
		}
		return redirectWithError(c, message)
	}

	code := c.Query("code")
	if code == "" {
		slog.Error("No authorization code received from Google")
		return redirectWithError(c, "Authorization failed. Please try again.")
	}

	if h.oauth.ClientID == "" || h.oauth.ClientSecret == "" || h.oauth.RedirectURL == "" {
		slog.Error("Google credentials not configured")
		return redirectWithError(c, "Server configuration error. Please contact administrator.")
	}

	ctx, cancel := context.WithTimeout(c.Context(), exchangeTimeout)
	defer cancel()

	token, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		slog.Error("Failed to exchange authorization code", "error", err)
		if strings.Contains(strings.ToLower(err.Error()), "invalid_grant") {
			return redirectWithError(c, "Login session expired. Please try again.")
		}
		return redirectWithError(c, "Network error. Please check your connection and try again.")
	}

	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		slog.Error("Failed to fetch Google user info", "error", err)
		if errors.Is(err, services.ErrIncompleteIdentity) {
			return redirectWithError(c, "Google authentication failed. Please try again.")
		}
		return redirectWithError(c, "Network error. Please check your connection and try again.")
	}

	user, err := h.findOrCreateUser(c, info, token)
	if err != nil {
		slog.Error("Failed to resolve Google user", "error", err, "email", info.Email)
		return redirectWithError(c, "Google authentication failed. Please try again.")
	}

	err = h.startSession(c, user, map[string]interface{}{
		"email":        info.Email,
		"login_method": "google",
		"user_agent":   c.Get("User-Agent"),
		"ip_address":   c.IP(),
	})
	if err != nil {
		slog.Error("Failed to start session", "error", err, "userID", user.ID.Hex())
		return redirectWithError(c, "Google authentication failed. Please try again.")
	}

	slog.Info("Google sign-in complete", "userID", user.ID.Hex(), "email", info.Email)

	return c.Redirect("/index?success="+url.QueryEscape("Successfully signed in with Google!"), fiber.StatusFound)
}

func (h *GoogleHandler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	resp, err := h.oauth.Client(ctx, token).Get(googleUserInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		return nil, errors.New("userinfo request returned " + resp.Status)
	}

	info := &googleUserInfo{}
	if err := json.NewDecoder(resp.Body).Decode(info); err != nil {
		return nil, err
	}

	if info.Email == "" || info.Sub == "" {
		return nil, services.ErrIncompleteIdentity
	}

	return info, nil
}

// findOrCreateUser looks the user up by email; an unknown email becomes a new
// passwordless account, a known one gets its Google identity refreshed.
func (h *GoogleHandler) findOrCreateUser(c *fiber.Ctx, info *googleUserInfo, token *oauth2.Token) (*models.User, error) {
	tokens := map[string]interface{}{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
		"expiry":       token.Expiry,
	}
	if token.RefreshToken != "" {
		tokens["refresh_token"] = token.RefreshToken
	}

	user, err := h.users.GetByEmail(c.Context(), info.Email)
	if err != nil {
		if !errors.Is(err, services.ErrUserNotFound) {
			return nil, err
		}

		user = &models.User{
			Email:        info.Email,
			GoogleID:     info.Sub,
			GoogleTokens: tokens,
			Name:         info.Name,
			Picture:      info.Picture,
			Verified:     info.EmailVerified,
		}
		if err := h.users.Create(c.Context(), user); err != nil {
			return nil, err
		}
		return user, nil
	}

	err = h.users.ApplyGoogleIdentity(c.Context(), user.ID, services.GoogleIdentity{
		GoogleID: info.Sub,
		Tokens:   tokens,
		Name:     info.Name,
		Picture:  info.Picture,
		Verified: info.EmailVerified,
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func redirectWithError(c *fiber.Ctx, message string) error {
	return c.Redirect("/login?error="+url.QueryEscape(message), fiber.StatusFound)
}
