package businessstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/system/sentinel"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("businesses"), Now: time.Now}
}

// Create inserts a listing. Listings are normally maintained by the editors;
// the moderation side only needs this for seeding and tests.
func (s *Store) Create(ctx context.Context, b models.Business) (models.Business, error) {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	b.NameCI = text.Fold(b.Name)
	if b.Status == "" {
		b.Status = "active"
	}
	now := s.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, b); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Business{}, sentinel.ErrDuplicate
		}
		return models.Business{}, err
	}
	return b, nil
}

// GetByID loads a business. Returns sentinel.ErrNotFound if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Business, error) {
	var b models.Business
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Business{}, sentinel.ErrNotFound
		}
		return models.Business{}, err
	}
	return b, nil
}

// SetOwner records userID as the owner.
func (s *Store) SetOwner(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"owner_id": userID, "updated_at": s.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ClearOwnerIf unsets the owner only while it is still userID, so revoking an
// old claim never removes an owner assigned later. Reports whether it cleared.
func (s *Store) ClearOwnerIf(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "owner_id": userID},
		bson.M{"$set": bson.M{"owner_id": nil, "updated_at": s.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// SetRating overwrites the derived rating fields.
func (s *Store) SetRating(ctx context.Context, id primitive.ObjectID, stats models.RatingStats) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"rating_aggregate": stats.Average,
			"rating_count":     stats.Count,
			"updated_at":       s.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// IDsAfter returns up to limit business ids greater than after, ascending.
// Background jobs use it to walk the whole collection.
func (s *Store) IDsAfter(ctx context.Context, after primitive.ObjectID, limit int64) ([]primitive.ObjectID, error) {
	filter := bson.M{}
	if !after.IsZero() {
		filter["_id"] = bson.M{"$gt": after}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}
