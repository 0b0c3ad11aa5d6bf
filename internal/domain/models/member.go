// internal/domain/models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member is a student (teacher namespace) or child (caregiver namespace)
// enrolled in exactly one RosterGroup.
//
// GroupKey must reference an existing RosterGroup at creation time; the
// roster store refuses group deletion while members still reference it.
// GroupLabel is denormalized so member lists render without a join.
type Member struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	FirstName  string             `bson:"first_name" json:"first_name"`
	LastName   string             `bson:"last_name,omitempty" json:"last_name,omitempty"`
	NameCI     string             `bson:"name_ci" json:"name_ci"`
	GroupKey   string             `bson:"group_id" json:"group_id"`
	GroupLabel string             `bson:"group_label" json:"group_label"`
	OwnerID    primitive.ObjectID `bson:"owner_id" json:"owner_id"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName joins the name parts; children records may have no last name.
func (m Member) FullName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}
