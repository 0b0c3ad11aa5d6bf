// internal/app/system/namespace/namespace.go

// Package namespace maps an actor's role to the collection pair that role
// operates on. Teachers work with classes/students, caregivers with
// groups/children. Everything downstream (roster store, indexes, watches)
// takes a Namespace instead of hard-coding collection names.
package namespace

import (
	"errors"
	"fmt"

	"maktabhub/internal/domain/models"
)

// Namespace is the pair of collection identifiers selected by actor role.
type Namespace struct {
	Role    string
	Groups  string
	Members string
}

// ErrNoNamespace is returned for roles with no roster namespace (parents).
var ErrNoNamespace = errors.New("role has no roster namespace")

// Teacher and Caregiver are the two fixed namespaces.
var (
	Teacher   = Namespace{Role: models.RoleTeacher, Groups: "classes", Members: "students"}
	Caregiver = Namespace{Role: models.RoleCaregiver, Groups: "groups", Members: "children"}
)

// All returns every roster namespace, in a stable order. Used by index
// setup and counter reconciliation.
func All() []Namespace {
	return []Namespace{Teacher, Caregiver}
}

// ForRole selects the namespace an actor role operates on.
func ForRole(role string) (Namespace, error) {
	switch role {
	case models.RoleTeacher:
		return Teacher, nil
	case models.RoleCaregiver:
		return Caregiver, nil
	case models.RoleParent:
		return Namespace{}, ErrNoNamespace
	}
	return Namespace{}, fmt.Errorf("unknown role %q", role)
}

// Scoped reports whether group queries in this namespace are restricted to
// the owning actor. Classes are per-teacher; kindergarten groups are shared
// across the caregiver staff.
func (ns Namespace) Scoped() bool {
	return ns.Role == models.RoleTeacher
}
