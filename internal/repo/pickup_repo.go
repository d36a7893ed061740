package repo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/azamatb/parcelhub/internal/domain"
)

func (s *Store) CreatePickup(ctx context.Context, p *domain.Pickup) error {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.pickups.insert",
		tracer.Tag("pickup_id", p.PickupID))
	defer sp.Finish()

	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.LabelIDs == nil {
		p.LabelIDs = []string{}
	}
	_, err := s.colPickups.InsertOne(ctx, p)
	if err != nil {
		sp.SetTag("error", err)
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: pickup id already exists", domain.ErrConflict)
		}
		return err
	}
	return nil
}

// FindPickup returns the active (non-deleted) pickup, or (nil, nil).
func (s *Store) FindPickup(ctx context.Context, pickupID string) (*domain.Pickup, error) {
	var p domain.Pickup
	err := s.colPickups.FindOne(ctx, bson.M{
		"pickup_id":  pickupID,
		"is_deleted": false,
	}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPickups returns one page of active pickups, newest first, plus the
// total active count.
func (s *Store) ListPickups(ctx context.Context, page, perPage int) ([]domain.Pickup, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	filter := bson.M{"is_deleted": false}

	cur, err := s.colPickups.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page-1)*perPage)).
		SetLimit(int64(perPage)),
	)
	if err != nil {
		return nil, 0, err
	}
	var pickups []domain.Pickup
	if err := cur.All(ctx, &pickups); err != nil {
		return nil, 0, err
	}

	total, err := s.colPickups.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return pickups, total, nil
}

// CancelPickup soft-deletes a pickup and returns the updated record, or
// (nil, nil) when nothing active matched.
func (s *Store) CancelPickup(ctx context.Context, pickupID string) (*domain.Pickup, error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "mongo.pickups.cancel",
		tracer.Tag("pickup_id", pickupID))
	defer sp.Finish()

	now := time.Now().UTC()
	res := s.colPickups.FindOneAndUpdate(ctx,
		bson.M{"pickup_id": pickupID, "is_deleted": false},
		bson.M{"$set": bson.M{"is_deleted": true, "deleted_at": now, "cancelled_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	var p domain.Pickup
	if err := res.Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		sp.SetTag("error", err)
		return nil, err
	}
	return &p, nil
}

func (s *Store) MarkNotificationSent(ctx context.Context, pickupID string) error {
	_, err := s.colPickups.UpdateOne(ctx,
		bson.M{"pickup_id": pickupID},
		bson.M{"$set": bson.M{"notification_sent": true}})
	return err
}
