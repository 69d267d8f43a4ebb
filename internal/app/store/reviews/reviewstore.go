package reviewstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/system/paging"
	"github.com/dalemusser/directoryhub/internal/app/system/sentinel"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("reviews"), Now: time.Now}
}

// Create inserts r as pending, assigning its id and timestamps.
func (s *Store) Create(ctx context.Context, r models.Review) (models.Review, error) {
	r.ID = primitive.NewObjectID()
	if r.Status == "" {
		r.Status = models.ReviewPending
	}
	now := s.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.Review{}, err
	}
	return r, nil
}

// GetByID loads a review. Returns sentinel.ErrNotFound if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	var r models.Review
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Review{}, sentinel.ErrNotFound
		}
		return models.Review{}, err
	}
	return r, nil
}

// Transition moves a review from `from` to d.Status and stamps the moderator.
// Returns sentinel.ErrStateChanged if the review is no longer in `from`.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from string, d models.Decision) error {
	set := bson.M{
		"status":       d.Status,
		"moderated_by": d.By,
		"moderated_at": d.At.UTC(),
		"updated_at":   s.Now().UTC(),
	}
	if d.Note != nil {
		set["moderator_notes"] = *d.Note
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return sentinel.ErrStateChanged
	}
	return nil
}

// Delete removes a review in any status and returns it as it was at the
// moment of deletion.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	var r models.Review
	err := s.c.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Review{}, sentinel.ErrNotFound
	}
	return r, err
}

// ApprovedStats computes mean rating and count over every approved review of
// businessID. A business with none yields the zero RatingStats.
func (s *Store) ApprovedStats(ctx context.Context, businessID primitive.ObjectID) (models.RatingStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"business_id": businessID, "status": models.ReviewApproved}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"average": bson.M{"$avg": "$rating"},
			"count":   bson.M{"$sum": 1},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return models.RatingStats{}, err
	}
	defer cur.Close(ctx)

	var stats models.RatingStats
	if cur.Next(ctx) {
		if err := cur.Decode(&stats); err != nil {
			return models.RatingStats{}, err
		}
	}
	return stats, cur.Err()
}

// List returns reviews matching f, newest first, starting after the given id.
// It returns up to paging.PageSize+1 rows; callers trim with paging.TrimPage.
func (s *Store) List(ctx context.Context, f models.ReviewFilter, after primitive.ObjectID) ([]models.Review, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.BusinessID != nil {
		filter["business_id"] = *f.BusinessID
	}
	filter, opts := paging.NewestFirst(filter, after)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Review, 0, paging.PageSize)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
