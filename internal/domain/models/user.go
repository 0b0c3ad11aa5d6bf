// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles determine which roster namespace an actor operates on.
const (
	RoleTeacher   = "teacher"
	RoleCaregiver = "caregiver"
	RoleParent    = "parent"
)

// IsValidRole checks a role value from signup forms.
func IsValidRole(role string) bool {
	switch role {
	case RoleTeacher, RoleCaregiver, RoleParent:
		return true
	}
	return false
}

// User is a profile document for an authenticated actor. An account without
// a users document is an incomplete signup, not an error to retry.
type User struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"full_name_ci"`
	Email      string             `bson:"email" json:"email"`
	// PasswordHash is empty for Google-authenticated accounts.
	PasswordHash string `bson:"password_hash,omitempty" json:"-"`
	GoogleSub    string `bson:"google_sub,omitempty" json:"-"`
	Role         string `bson:"role" json:"role"`
	Status       string `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
