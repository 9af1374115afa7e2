package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionInfo is a historical session record embedded in the user document.
// Entries are never removed: closed sessions keep their end_time and duration.
type SessionInfo struct {
	SessionID string     `bson:"session_id" json:"session_id"`
	StartTime time.Time  `bson:"start_time" json:"start_time"`
	EndTime   *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`
	Duration  *int64     `bson:"duration,omitempty" json:"duration,omitempty"`
	Expired   bool       `bson:"expired" json:"expired"`
}

// User represents a user in the system, either a local password account or a
// Google-federated one (in which case Password is empty).
type User struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password,omitempty" json:"-"`

	// Google identity
	GoogleID     string                 `bson:"google_id,omitempty" json:"-"`
	GoogleTokens map[string]interface{} `bson:"google_tokens,omitempty" json:"-"`
	Name         string                 `bson:"name,omitempty" json:"name,omitempty"`
	Picture      string                 `bson:"picture,omitempty" json:"picture,omitempty"`
	Verified     bool                   `bson:"verified" json:"verified"`

	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
	LastLogin *time.Time    `bson:"last_login,omitempty" json:"last_login,omitempty"`
	Sessions  []SessionInfo `bson:"sessions" json:"sessions"`
}

// GoogleConnected reports whether the account is linked to a Google identity.
func (u *User) GoogleConnected() bool {
	return u.GoogleID != ""
}
