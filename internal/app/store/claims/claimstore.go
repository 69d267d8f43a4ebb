package claimstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/system/paging"
	"github.com/dalemusser/directoryhub/internal/app/system/sentinel"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store persists ownership claims. Uniqueness of open and approved claims is
// enforced by the partial unique indexes created in system/indexes; a
// violation surfaces here as sentinel.ErrDuplicate.
type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("ownership_claims"), Now: time.Now}
}

// Create inserts c, assigning its id and timestamps. Status defaults to pending.
func (s *Store) Create(ctx context.Context, c models.OwnershipClaim) (models.OwnershipClaim, error) {
	c.ID = primitive.NewObjectID()
	if c.Status == "" {
		c.Status = models.ClaimPending
	}
	now := s.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.OwnershipClaim{}, sentinel.ErrDuplicate
		}
		return models.OwnershipClaim{}, err
	}
	return c, nil
}

// GetByID loads a claim. Returns sentinel.ErrNotFound if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.OwnershipClaim, error) {
	var c models.OwnershipClaim
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.OwnershipClaim{}, sentinel.ErrNotFound
		}
		return models.OwnershipClaim{}, err
	}
	return c, nil
}

// HasPending reports whether userID already has an open claim on businessID.
func (s *Store) HasPending(ctx context.Context, businessID, userID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, bson.M{
		"business_id": businessID,
		"user_id":     userID,
		"status":      models.ClaimPending,
	})
}

// HasApproved reports whether businessID has an approved claim.
func (s *Store) HasApproved(ctx context.Context, businessID primitive.ObjectID) (bool, error) {
	return s.exists(ctx, bson.M{"business_id": businessID, "status": models.ClaimApproved})
}

func (s *Store) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := s.c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Transition moves a claim from status `from` to d.Status and stamps the
// reviewer, in one conditional write. If the claim is not currently in
// `from` (or is gone) it returns sentinel.ErrStateChanged.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, from string, d models.Decision) error {
	set := bson.M{
		"status":      d.Status,
		"reviewed_by": d.By,
		"reviewed_at": d.At.UTC(),
		"updated_at":  s.Now().UTC(),
	}
	if d.Note != nil {
		set["admin_message"] = *d.Note
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return sentinel.ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return sentinel.ErrStateChanged
	}
	return nil
}

// Delete removes a claim in any status.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// List returns claims matching f, newest first, starting after the given id.
// It returns up to paging.PageSize+1 rows; callers trim with paging.TrimPage.
func (s *Store) List(ctx context.Context, f models.ClaimFilter, after primitive.ObjectID) ([]models.OwnershipClaim, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.BusinessID != nil {
		filter["business_id"] = *f.BusinessID
	}
	if f.UserID != nil {
		filter["user_id"] = *f.UserID
	}
	filter, opts := paging.NewestFirst(filter, after)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.OwnershipClaim, 0, paging.PageSize)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
