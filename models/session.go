package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session is the authoritative record for an active session. It is deleted on
// logout; there is no background sweeper, expiry is enforced at lookup time.
type Session struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	SessionID string                 `bson:"session_id" json:"session_id"`
	UserID    primitive.ObjectID     `bson:"user_id" json:"user_id"`
	Data      map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time              `bson:"expires_at" json:"expires_at"`
}
