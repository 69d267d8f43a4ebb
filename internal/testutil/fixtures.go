package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/directoryhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, _ := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts test data directly into the collections the stores read.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateBusiness inserts an active, unowned business with no reviews.
func (f *Fixtures) CreateBusiness(ctx context.Context, name string) models.Business {
	f.t.Helper()

	now := time.Now().UTC()
	id := primitive.NewObjectID()
	b := models.Business{
		ID:        id,
		Name:      name,
		NameCI:    text.Fold(name),
		Slug:      text.Fold(name) + "-" + id.Hex()[18:],
		Status:    "active",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("businesses").InsertOne(ctx, b); err != nil {
		f.t.Fatalf("failed to create test business: %v", err)
	}
	return b
}

// CreateUser inserts an active user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	id := primitive.NewObjectID()
	u := models.User{
		ID:         id,
		FullName:   name,
		FullNameCI: text.Fold(name),
		Email:      id.Hex() + "@test.com",
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

// CreateClaim inserts a claim in the given status.
func (f *Fixtures) CreateClaim(ctx context.Context, businessID, userID primitive.ObjectID, status string) models.OwnershipClaim {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.OwnershipClaim{
		ID:         primitive.NewObjectID(),
		BusinessID: businessID,
		UserID:     userID,
		Message:    "I own this business.",
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("ownership_claims").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test claim: %v", err)
	}
	return c
}

// CreateReview inserts an anonymous review in the given status.
func (f *Fixtures) CreateReview(ctx context.Context, businessID primitive.ObjectID, rating int, status string) models.Review {
	f.t.Helper()

	now := time.Now().UTC()
	r := models.Review{
		ID:           primitive.NewObjectID(),
		BusinessID:   businessID,
		ReviewerName: "Test Reviewer",
		Rating:       rating,
		Comment:      "Good service.",
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("reviews").InsertOne(ctx, r); err != nil {
		f.t.Fatalf("failed to create test review: %v", err)
	}
	return r
}
