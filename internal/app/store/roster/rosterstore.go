// internal/app/store/roster/rosterstore.go

// Package rosterstore owns all structural mutations to RosterGroup and
// Member documents, per namespace (classes/students for teachers,
// groups/children for caregivers).
//
// Consistency contract:
//   - A rename that changes the group key migrates every enrolled member in
//     the same transaction as the delete/recreate of the group document.
//   - member_count is only mutated inside the same transaction as the
//     member write that changes cardinality, always via read-modify-write
//     on the transactional snapshot, never via a blind $inc.
//   - Group deletion re-checks membership inside the delete transaction, so
//     a concurrent enroll cannot slip between the check and the delete.
package rosterstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"maktabhub/internal/app/system/metrics"
	"maktabhub/internal/app/system/namespace"
	"maktabhub/internal/app/system/txn"
	"maktabhub/internal/domain/models"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrGroupExists means a create or rename targeted a group key that is
	// already in use. Not retryable; the caller must pick another key.
	ErrGroupExists = errors.New("a group with this key already exists")

	// ErrGroupNotFound means the referenced group key does not resolve.
	ErrGroupNotFound = errors.New("group not found")

	// ErrGroupNotEmpty means a delete was refused because members still
	// reference the group. The caller must unenroll them first.
	ErrGroupNotEmpty = errors.New("group still has enrolled members")

	// ErrMemberNotFound means the referenced member does not exist in the
	// given group.
	ErrMemberNotFound = errors.New("member not found")
)

type Store struct {
	db     *mongo.Database
	client *mongo.Client
	log    *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	return &Store{db: db, client: db.Client(), log: logger}
}

func (s *Store) groups(ns namespace.Namespace) *mongo.Collection {
	return s.db.Collection(ns.Groups)
}

func (s *Store) members(ns namespace.Namespace) *mongo.Collection {
	return s.db.Collection(ns.Members)
}

// EnsureIndexes creates the indexes both roster namespaces rely on. The
// group_id index on members backs the emptiness check in DeleteGroup and
// the re-point in RenameGroup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, ns := range namespace.All() {
		groupIndexes := []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "number", Value: 1}, {Key: "name_ci", Value: 1}},
				Options: options.Index().SetName("idx_group_owner_sort"),
			},
		}
		if _, err := s.groups(ns).Indexes().CreateMany(ctx, groupIndexes); err != nil {
			return err
		}

		memberIndexes := []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "name_ci", Value: 1}},
				Options: options.Index().SetName("idx_member_group"),
			},
			{
				Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "name_ci", Value: 1}},
				Options: options.Index().SetName("idx_member_owner"),
			},
		}
		if _, err := s.members(ns).Indexes().CreateMany(ctx, memberIndexes); err != nil {
			return err
		}
	}
	return nil
}

// ClassKey builds the composite key for the teacher namespace: "3-A".
func ClassKey(number int, letter string) string {
	return fmt.Sprintf("%d-%s", number, letter)
}

// CreateGroup inserts a new group with a zero member count. In the teacher
// namespace the caller supplies the composite key; with no key set a UUID
// is generated (caregiver namespace).
func (s *Store) CreateGroup(ctx context.Context, ns namespace.Namespace, g models.RosterGroup) (models.RosterGroup, error) {
	now := time.Now().UTC()
	if g.Key == "" {
		g.Key = uuid.NewString()
	}
	g.NameCI = text.Fold(g.Name)
	g.MemberCount = 0
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err := s.groups(ns).InsertOne(ctx, g)
	metrics.ObserveRosterOp("create_group", err)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.RosterGroup{}, ErrGroupExists
		}
		return models.RosterGroup{}, err
	}
	return g, nil
}

// GetGroup loads one group by key.
func (s *Store) GetGroup(ctx context.Context, ns namespace.Namespace, key string) (models.RosterGroup, error) {
	var g models.RosterGroup
	err := s.groups(ns).FindOne(ctx, bson.M{"_id": key}).Decode(&g)
	if err == mongo.ErrNoDocuments {
		return models.RosterGroup{}, ErrGroupNotFound
	}
	if err != nil {
		return models.RosterGroup{}, err
	}
	return g, nil
}

// ListGroups returns the groups visible to an owner. Classes are scoped to
// the owning teacher; kindergarten groups are shared across the staff.
func (s *Store) ListGroups(ctx context.Context, ns namespace.Namespace, ownerID primitive.ObjectID) ([]models.RosterGroup, error) {
	filter := bson.M{}
	if ns.Scoped() {
		filter["owner_id"] = ownerID
	}

	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}, {Key: "name_ci", Value: 1}})
	cur, err := s.groups(ns).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.RosterGroup
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RenameGroup updates a group's number and name. A same-key rename updates
// the group in place and, when the display label changes (kindergarten
// groups carry their name as the label), refreshes every member's
// denormalized group_label in the same transaction. A key-changing rename
// deletes the old document, recreates it under the new key, and re-points
// every enrolled member, all in one transaction: no observable state ever
// has members referencing a missing group or carrying a stale label.
func (s *Store) RenameGroup(ctx context.Context, ns namespace.Namespace, oldKey, newKey string, number int, name string) (models.RosterGroup, error) {
	now := time.Now().UTC()

	if oldKey == newKey {
		var updated models.RosterGroup
		err := txn.WithTransaction(ctx, s.client, s.log, func(sc mongo.SessionContext) error {
			var old models.RosterGroup
			if err := s.groups(ns).FindOne(sc, bson.M{"_id": oldKey}).Decode(&old); err != nil {
				if err == mongo.ErrNoDocuments {
					return ErrGroupNotFound
				}
				return err
			}

			updated = old
			updated.Number = number
			updated.Name = name
			updated.NameCI = text.Fold(name)
			updated.UpdatedAt = now
			if _, err := s.groups(ns).UpdateOne(sc, bson.M{"_id": oldKey}, bson.M{"$set": bson.M{
				"number":     number,
				"name":       name,
				"name_ci":    updated.NameCI,
				"updated_at": now,
			}}); err != nil {
				return err
			}

			if updated.Label() == old.Label() {
				return nil
			}
			_, err := s.members(ns).UpdateMany(sc,
				bson.M{"group_id": oldKey},
				bson.M{"$set": bson.M{
					"group_label": updated.Label(),
					"updated_at":  now,
				}})
			return err
		})
		metrics.ObserveRosterOp("rename_group", err)
		if err != nil {
			return models.RosterGroup{}, err
		}
		return updated, nil
	}

	var renamed models.RosterGroup
	err := txn.WithTransaction(ctx, s.client, s.log, func(sc mongo.SessionContext) error {
		// The new key must be free.
		err := s.groups(ns).FindOne(sc, bson.M{"_id": newKey}).Err()
		if err == nil {
			return ErrGroupExists
		}
		if err != mongo.ErrNoDocuments {
			return err
		}

		var old models.RosterGroup
		if err := s.groups(ns).FindOne(sc, bson.M{"_id": oldKey}).Decode(&old); err != nil {
			if err == mongo.ErrNoDocuments {
				return ErrGroupNotFound
			}
			return err
		}

		if _, err := s.groups(ns).DeleteOne(sc, bson.M{"_id": oldKey}); err != nil {
			return err
		}

		renamed = old
		renamed.Key = newKey
		renamed.Number = number
		renamed.Name = name
		renamed.NameCI = text.Fold(name)
		renamed.UpdatedAt = now
		if _, err := s.groups(ns).InsertOne(sc, renamed); err != nil {
			return err
		}

		_, err = s.members(ns).UpdateMany(sc,
			bson.M{"group_id": oldKey},
			bson.M{"$set": bson.M{
				"group_id":    newKey,
				"group_label": renamed.Label(),
				"updated_at":  now,
			}})
		return err
	})
	metrics.ObserveRosterOp("rename_group", err)
	if err != nil {
		return models.RosterGroup{}, err
	}
	return renamed, nil
}

// DeleteGroup removes a group. Refused with ErrGroupNotEmpty while any
// member references the key; the membership check runs in the same
// transaction as the delete.
func (s *Store) DeleteGroup(ctx context.Context, ns namespace.Namespace, key string) error {
	err := txn.WithTransaction(ctx, s.client, s.log, func(sc mongo.SessionContext) error {
		n, err := s.members(ns).CountDocuments(sc, bson.M{"group_id": key})
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrGroupNotEmpty
		}

		res, err := s.groups(ns).DeleteOne(sc, bson.M{"_id": key})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrGroupNotFound
		}
		return nil
	})
	metrics.ObserveRosterOp("delete_group", err)
	return err
}

// EnrollMember creates a member in a group and bumps the group's member
// count, atomically. The count is derived from the transactional read of
// the group document, so concurrent enrolls serialize through transaction
// conflicts instead of losing updates.
func (s *Store) EnrollMember(ctx context.Context, ns namespace.Namespace, groupKey string, m models.Member) (models.Member, error) {
	now := time.Now().UTC()
	m.ID = primitive.NewObjectID()
	m.GroupKey = groupKey
	m.NameCI = text.Fold(m.FullName())
	m.CreatedAt = now
	m.UpdatedAt = now

	err := txn.WithTransaction(ctx, s.client, s.log, func(sc mongo.SessionContext) error {
		var g models.RosterGroup
		if err := s.groups(ns).FindOne(sc, bson.M{"_id": groupKey}).Decode(&g); err != nil {
			if err == mongo.ErrNoDocuments {
				return ErrGroupNotFound
			}
			return err
		}

		m.GroupLabel = g.Label()
		if _, err := s.members(ns).InsertOne(sc, m); err != nil {
			return err
		}

		_, err := s.groups(ns).UpdateOne(sc, bson.M{"_id": groupKey}, bson.M{"$set": bson.M{
			"member_count": g.MemberCount + 1,
			"updated_at":   now,
		}})
		return err
	})
	metrics.ObserveRosterOp("enroll_member", err)
	if err != nil {
		return models.Member{}, err
	}
	return m, nil
}

// UnenrollMember deletes a member and decrements the group's member count,
// atomically.
func (s *Store) UnenrollMember(ctx context.Context, ns namespace.Namespace, memberID primitive.ObjectID, groupKey string) error {
	now := time.Now().UTC()

	err := txn.WithTransaction(ctx, s.client, s.log, func(sc mongo.SessionContext) error {
		res, err := s.members(ns).DeleteOne(sc, bson.M{"_id": memberID, "group_id": groupKey})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return ErrMemberNotFound
		}

		var g models.RosterGroup
		if err := s.groups(ns).FindOne(sc, bson.M{"_id": groupKey}).Decode(&g); err != nil {
			if err == mongo.ErrNoDocuments {
				// Member existed without its group; the delete alone
				// restores the invariant.
				return nil
			}
			return err
		}

		count := g.MemberCount - 1
		if count < 0 {
			count = 0
		}
		_, err = s.groups(ns).UpdateOne(sc, bson.M{"_id": groupKey}, bson.M{"$set": bson.M{
			"member_count": count,
			"updated_at":   now,
		}})
		return err
	})
	metrics.ObserveRosterOp("unenroll_member", err)
	return err
}

// RenameMember updates a member's name fields in place. No counter impact.
func (s *Store) RenameMember(ctx context.Context, ns namespace.Namespace, memberID primitive.ObjectID, first, last string) error {
	full := first
	if last != "" {
		full = first + " " + last
	}
	res, err := s.members(ns).UpdateOne(ctx, bson.M{"_id": memberID}, bson.M{"$set": bson.M{
		"first_name": first,
		"last_name":  last,
		"name_ci":    text.Fold(full),
		"updated_at": time.Now().UTC(),
	}})
	metrics.ObserveRosterOp("rename_member", err)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// ListMembers returns the members of one group, sorted by folded name.
func (s *Store) ListMembers(ctx context.Context, ns namespace.Namespace, groupKey string) ([]models.Member, error) {
	return s.findMembers(ctx, ns, bson.M{"group_id": groupKey})
}

// ListAllMembers returns every member visible to an owner, already joined
// with the denormalized group label for the search layer.
func (s *Store) ListAllMembers(ctx context.Context, ns namespace.Namespace, ownerID primitive.ObjectID) ([]models.Member, error) {
	filter := bson.M{}
	if ns.Scoped() {
		filter["owner_id"] = ownerID
	}
	return s.findMembers(ctx, ns, filter)
}

func (s *Store) findMembers(ctx context.Context, ns namespace.Namespace, filter bson.M) ([]models.Member, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}})
	cur, err := s.members(ns).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Member
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reconcile recounts every group's members by query and repairs drifted
// counters. Repair tool, not part of the hot path; each group is fixed in
// its own transaction so concurrent enrolls are not clobbered.
func (s *Store) Reconcile(ctx context.Context, ns namespace.Namespace) (int, error) {
	cur, err := s.groups(ns).Find(ctx, bson.M{})
	if err != nil {
		return 0, err
	}
	var groups []models.RosterGroup
	if err := cur.All(ctx, &groups); err != nil {
		return 0, err
	}

	repaired := 0
	for _, g := range groups {
		fixed := false
		err := txn.WithTransaction(ctx, s.client, s.log, func(sc mongo.SessionContext) error {
			fixed = false
			n, err := s.members(ns).CountDocuments(sc, bson.M{"group_id": g.Key})
			if err != nil {
				return err
			}

			var live models.RosterGroup
			if err := s.groups(ns).FindOne(sc, bson.M{"_id": g.Key}).Decode(&live); err != nil {
				if err == mongo.ErrNoDocuments {
					return nil // deleted since the scan; nothing to repair
				}
				return err
			}
			if live.MemberCount == n {
				return nil
			}

			s.log.Warn("repairing drifted member count",
				zap.String("group", g.Key),
				zap.Int64("stored", live.MemberCount),
				zap.Int64("actual", n))
			fixed = true
			_, err = s.groups(ns).UpdateOne(sc, bson.M{"_id": g.Key},
				bson.M{"$set": bson.M{"member_count": n, "updated_at": time.Now().UTC()}})
			return err
		})
		if err != nil {
			return repaired, err
		}
		if fixed {
			repaired++
		}
	}
	return repaired, nil
}
