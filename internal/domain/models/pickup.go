// internal/domain/models/pickup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pickup request lifecycle.
const (
	PickupPending  = "pending"
	PickupAccepted = "accepted"
	PickupDeclined = "declined"
)

// PickupRequest is a parent's request to collect a member, answered by the
// teacher or caregiver who owns the member's group. Requests reference the
// member and group by id for display only; roster consistency does not
// depend on them.
type PickupRequest struct {
	ID         string             `bson:"_id" json:"id"`
	MemberID   primitive.ObjectID `bson:"member_id" json:"member_id"`
	MemberName string             `bson:"member_name" json:"member_name"`
	GroupKey   string             `bson:"group_id" json:"group_id"`
	ParentID   primitive.ObjectID `bson:"parent_id" json:"parent_id"`
	ParentName string             `bson:"parent_name" json:"parent_name"`
	Status     string             `bson:"status" json:"status"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PickupMessage is one chat message in a pickup request's thread.
// Body is sanitized before storage.
type PickupMessage struct {
	ID         string             `bson:"_id" json:"id"`
	RequestID  string             `bson:"request_id" json:"request_id"`
	SenderID   primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	SenderName string             `bson:"sender_name" json:"sender_name"`
	Body       string             `bson:"body" json:"body"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
