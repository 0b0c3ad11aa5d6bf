// internal/domain/models/rostergroup.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RosterGroup is a class (teacher namespace) or a kindergarten group
// (caregiver namespace).
//
// NOTE:
//   - The document _id is the group key. In the teacher namespace it is the
//     composite "{number}-{name}" (e.g. "3-A"), so renaming a class to a new
//     number/letter changes its identity and requires re-pointing enrolled
//     members. In the caregiver namespace the key is a generated UUID and
//     renames never change identity.
//   - MemberCount is denormalized and only mutated inside the same
//     transaction as the member write that changes it.
type RosterGroup struct {
	Key       string             `bson:"_id" json:"key"`
	Number    int                `bson:"number,omitempty" json:"number,omitempty"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"name_ci"`
	OwnerID   primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	OwnerName string             `bson:"owner_name" json:"owner_name"`

	MemberCount int64 `bson:"member_count" json:"member_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Label returns the display label for the group: "3-A" for classes,
// the free-text name for kindergarten groups.
func (g RosterGroup) Label() string {
	if g.Number > 0 {
		return g.Key
	}
	return g.Name
}
