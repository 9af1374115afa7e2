package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the signed session token payload. The token proves a
// session id / user id pair; it is never sufficient for authorization on its
// own, the backing session document must still exist.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// TokenCodec signs and verifies compact session tokens with a symmetric key.
type TokenCodec struct {
	secret []byte
	maxAge time.Duration
}

// NewTokenCodec creates a codec whose tokens expire after maxAge.
func NewTokenCodec(secret string, maxAge time.Duration) *TokenCodec {
	return &TokenCodec{secret: []byte(secret), maxAge: maxAge}
}

// Sign produces a signed, timestamped token for the given session.
func (tc *TokenCodec) Sign(sessionID, userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tc.maxAge)),
		},
		SessionID: sessionID,
		UserID:    userID,
	})

	tokenString, err := token.SignedString(tc.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return tokenString, nil
}

// Verify checks the signature and max age of a token and returns its claims.
// Malformed, tampered and expired tokens all fail; callers treat any failure
// as an anonymous request.
func (tc *TokenCodec) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tc.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	return claims, nil
}
