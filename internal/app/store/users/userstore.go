// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"maktabhub/internal/app/system/normalize"
	"maktabhub/internal/domain/models"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrProfileNotFound means the authenticated actor has no users
	// document. Callers must treat this as "signup incomplete", not a
	// transient failure.
	ErrProfileNotFound = errors.New("no profile for this account")

	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("a user with this email already exists")

	errBadRole = errors.New(`role must be "teacher", "caregiver" or "parent"`)
)

// EnsureIndexes creates indexes for the users collection. The unique email
// index is what turns a duplicate registration into ErrDuplicateEmail.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_user_email"),
		},
		{
			Keys: bson.D{{Key: "google_sub", Value: 1}},
			Options: options.Index().SetName("idx_user_google_sub").
				SetPartialFilterExpression(bson.M{"google_sub": bson.M{"$type": "string"}}),
		},
	}
	_, err := s.c.Indexes().CreateMany(ctx, indexes)
	return err
}

// GetByID resolves an actor to their profile. The profile's role selects
// the roster namespace the actor operates on.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrProfileNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks up a profile by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrProfileNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByGoogleSub looks up a profile by its Google account subject.
func (s *Store) GetByGoogleSub(ctx context.Context, sub string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"google_sub": sub}).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.User{}, ErrProfileNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// Create inserts a new profile after normalizing fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	now := time.Now().UTC()
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	if u.Status == "" {
		u.Status = "active"
	}
	u.CreatedAt = now
	u.UpdatedAt = now

	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}
