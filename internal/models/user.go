package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents the application user account. PasswordHash and
// RefreshFingerprint never leave the server. RefreshFingerprint holds the
// slow hash of the currently valid refresh token's digest; empty means no
// live session.
type User struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email              string             `bson:"email" json:"email"`
	Username           string             `bson:"username,omitempty" json:"username,omitempty"`
	PasswordHash       string             `bson:"passwordHash,omitempty" json:"-"`
	RefreshFingerprint string             `bson:"refreshFingerprint,omitempty" json:"-"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Sanitized returns a copy with the secret fields stripped.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.RefreshFingerprint = ""
	return u
}
