// internal/domain/models/moderation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Decision is what a moderator's action writes onto a claim or review,
// together with the status it moves to.
type Decision struct {
	Status string
	Note   *string // admin message (claims) or moderator notes (reviews)
	By     primitive.ObjectID
	At     time.Time
}

// ClaimFilter narrows a claim listing. Zero fields do not filter.
type ClaimFilter struct {
	Status     string
	BusinessID *primitive.ObjectID
	UserID     *primitive.ObjectID
}

// ReviewFilter narrows a review listing. Zero fields do not filter.
type ReviewFilter struct {
	Status     string
	BusinessID *primitive.ObjectID
}
