// internal/app/store/pickups/pickupstore.go

// Package pickupstore persists pickup requests and their chat threads.
// Message bodies pass through a strict HTML sanitizer before storage, so
// everything downstream (API, websocket fan-out) can treat them as safe
// plain text.
package pickupstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"maktabhub/internal/domain/models"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrRequestNotFound means the referenced pickup request does not exist.
	ErrRequestNotFound = errors.New("pickup request not found")

	// ErrRequestClosed means the request was already answered and no longer
	// accepts messages or status changes.
	ErrRequestClosed = errors.New("pickup request is already answered")

	// ErrEmptyMessage means the message body was empty after sanitization.
	ErrEmptyMessage = errors.New("message body is empty")
)

type Store struct {
	requests *mongo.Collection
	messages *mongo.Collection
	policy   *bluemonday.Policy
}

func New(db *mongo.Database) *Store {
	return &Store{
		requests: db.Collection("pickup_requests"),
		messages: db.Collection("pickup_messages"),
		policy:   bluemonday.StrictPolicy(),
	}
}

// EnsureIndexes creates indexes for both pickup collections.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	requestIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "parent_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_pickup_parent"),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_pickup_group"),
		},
	}
	if _, err := s.requests.Indexes().CreateMany(ctx, requestIndexes); err != nil {
		return err
	}

	messageIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "request_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_pickup_thread"),
		},
	}
	_, err := s.messages.Indexes().CreateMany(ctx, messageIndexes)
	return err
}

// CreateRequest opens a pending pickup request.
func (s *Store) CreateRequest(ctx context.Context, r models.PickupRequest) (models.PickupRequest, error) {
	now := time.Now().UTC()
	r.ID = uuid.NewString()
	r.Status = models.PickupPending
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.requests.InsertOne(ctx, r); err != nil {
		return models.PickupRequest{}, err
	}
	return r, nil
}

// GetRequest loads one request by id.
func (s *Store) GetRequest(ctx context.Context, id string) (models.PickupRequest, error) {
	var r models.PickupRequest
	err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err == mongo.ErrNoDocuments {
		return models.PickupRequest{}, ErrRequestNotFound
	}
	if err != nil {
		return models.PickupRequest{}, err
	}
	return r, nil
}

// ListForParent returns a parent's requests, newest first.
func (s *Store) ListForParent(ctx context.Context, parentID primitive.ObjectID) ([]models.PickupRequest, error) {
	return s.findRequests(ctx, bson.M{"parent_id": parentID})
}

// ListForGroups returns pending and recent requests for the given group
// keys, newest first. Staff see requests for the groups they own.
func (s *Store) ListForGroups(ctx context.Context, groupKeys []string) ([]models.PickupRequest, error) {
	if len(groupKeys) == 0 {
		return nil, nil
	}
	return s.findRequests(ctx, bson.M{"group_id": bson.M{"$in": groupKeys}})
}

func (s *Store) findRequests(ctx context.Context, filter bson.M) ([]models.PickupRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.requests.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PickupRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Answer transitions a pending request to accepted or declined. A request
// can be answered exactly once; the status guard is part of the filter, so
// racing answers resolve to one winner.
func (s *Store) Answer(ctx context.Context, id, status string) (models.PickupRequest, error) {
	if status != models.PickupAccepted && status != models.PickupDeclined {
		return models.PickupRequest{}, errors.New("status must be accepted or declined")
	}

	res := s.requests.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.PickupPending},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var r models.PickupRequest
	if err := res.Decode(&r); err != nil {
		if err != mongo.ErrNoDocuments {
			return models.PickupRequest{}, err
		}
		// Distinguish missing from already answered.
		if _, gerr := s.GetRequest(ctx, id); gerr != nil {
			return models.PickupRequest{}, gerr
		}
		return models.PickupRequest{}, ErrRequestClosed
	}
	return r, nil
}

// AddMessage sanitizes and stores a chat message on an open request.
func (s *Store) AddMessage(ctx context.Context, m models.PickupMessage) (models.PickupMessage, error) {
	m.Body = strings.TrimSpace(s.policy.Sanitize(m.Body))
	if m.Body == "" {
		return models.PickupMessage{}, ErrEmptyMessage
	}

	req, err := s.GetRequest(ctx, m.RequestID)
	if err != nil {
		return models.PickupMessage{}, err
	}
	if req.Status != models.PickupPending {
		return models.PickupMessage{}, ErrRequestClosed
	}

	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	if _, err := s.messages.InsertOne(ctx, m); err != nil {
		return models.PickupMessage{}, err
	}
	return m, nil
}

// ListMessages returns a request's thread in chronological order.
func (s *Store) ListMessages(ctx context.Context, requestID string) ([]models.PickupMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := s.messages.Find(ctx, bson.M{"request_id": requestID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PickupMessage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
