// internal/domain/models/business.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Business is a directory listing. Only the ownership and rating fields are
// written by the moderation workflow; everything else belongs to the listing
// editors.
type Business struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name       string              `bson:"name" json:"name"`
	NameCI     string              `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Slug       string              `bson:"slug" json:"slug"`
	CategoryID *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	CityID     *primitive.ObjectID `bson:"city_id,omitempty" json:"city_id,omitempty"`
	Status     string              `bson:"status" json:"status"` // active | hidden

	// Set only by an approved, non-revoked ownership claim.
	OwnerID *primitive.ObjectID `bson:"owner_id" json:"owner_id"`

	// Derived from approved reviews.
	RatingAggregate float64 `bson:"rating_aggregate" json:"rating_aggregate"`
	RatingCount     int     `bson:"rating_count" json:"rating_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
