// internal/testutil/fixtures.go
package testutil

import (
	"context"
	"testing"
	"time"

	"maktabhub/internal/app/system/namespace"
	"maktabhub/internal/domain/models"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data directly in the
// backing collections, bypassing the stores.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a profile with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Role:       role,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateTeacher creates a teacher profile.
func (f *Fixtures) CreateTeacher(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleTeacher)
}

// CreateClass creates a class in the teacher namespace with the composite
// key "{number}-{letter}".
func (f *Fixtures) CreateClass(ctx context.Context, key string, number int, letter string, owner models.User) models.RosterGroup {
	f.t.Helper()
	return f.createGroup(ctx, namespace.Teacher, key, number, letter, owner)
}

// CreateKindergartenGroup creates a group in the caregiver namespace with a
// generated key.
func (f *Fixtures) CreateKindergartenGroup(ctx context.Context, name string, owner models.User) models.RosterGroup {
	f.t.Helper()
	return f.createGroup(ctx, namespace.Caregiver, uuid.NewString(), 0, name, owner)
}

func (f *Fixtures) createGroup(ctx context.Context, ns namespace.Namespace, key string, number int, name string, owner models.User) models.RosterGroup {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.RosterGroup{
		Key:       key,
		Number:    number,
		Name:      name,
		NameCI:    text.Fold(name),
		OwnerID:   owner.ID,
		OwnerName: owner.FullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection(ns.Groups).InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// EnrollRaw inserts a member document directly and bumps the stored counter,
// mirroring what the roster store does transactionally. For arranging state
// only; correctness tests go through the store.
func (f *Fixtures) EnrollRaw(ctx context.Context, ns namespace.Namespace, g models.RosterGroup, first, last string) models.Member {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Member{
		ID:         primitive.NewObjectID(),
		FirstName:  first,
		LastName:   last,
		NameCI:     text.Fold(first + " " + last),
		GroupKey:   g.Key,
		GroupLabel: g.Label(),
		OwnerID:    g.OwnerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection(ns.Members).InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test member: %v", err)
	}
	if _, err := f.db.Collection(ns.Groups).UpdateOne(ctx,
		bson.M{"_id": g.Key},
		bson.M{"$inc": bson.M{"member_count": 1}},
	); err != nil {
		f.t.Fatalf("failed to bump test counter: %v", err)
	}
	return m
}
