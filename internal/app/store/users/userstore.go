package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/system/normalize"
	"github.com/dalemusser/directoryhub/internal/app/system/sentinel"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	errBadRole   = errors.New(`role must be "admin"|"member"`)
	errBadStatus = errors.New(`status must be "active"|"disabled"`)
)

// GetByID loads a user. Returns sentinel.ErrNotFound if absent.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, sentinel.ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// Create inserts a new user after normalizing & validating fields.
// Accounts are normally created by the sign-up flow; this serves seeding and tests.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	u.Status = normalize.Status(u.Status)
	if u.Status == "" {
		u.Status = "active"
	}

	switch u.Role {
	case models.RoleAdmin, models.RoleMember:
	default:
		return models.User{}, errBadRole
	}
	if u.Status != "active" && u.Status != "disabled" {
		return models.User{}, errBadStatus
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, sentinel.ErrDuplicate
		}
		return models.User{}, err
	}
	return u, nil
}
