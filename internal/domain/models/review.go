// internal/domain/models/review.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review statuses. Moderation is one-shot: approved and rejected are terminal.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Rating bounds (inclusive).
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a visitor's rating of a business. It counts toward the business
// aggregate only while approved.
type Review struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	BusinessID   primitive.ObjectID  `bson:"business_id" json:"business_id"`
	UserID       *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"` // set on the signed-in path
	ReviewerName string              `bson:"reviewer_name" json:"reviewer_name"`
	Rating       int                 `bson:"rating" json:"rating"`
	Comment      string              `bson:"comment" json:"comment"`
	Status       string              `bson:"status" json:"status"`

	ModeratorNotes *string             `bson:"moderator_notes,omitempty" json:"moderator_notes,omitempty"`
	ModeratedBy    *primitive.ObjectID `bson:"moderated_by,omitempty" json:"moderated_by,omitempty"`
	ModeratedAt    *time.Time          `bson:"moderated_at,omitempty" json:"moderated_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// RatingStats is the aggregate derived from a business's approved reviews.
type RatingStats struct {
	Average float64 `bson:"average"`
	Count   int     `bson:"count"`
}
