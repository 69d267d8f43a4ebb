// internal/domain/models/ownershipclaim.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Claim statuses.
//
//	pending ──► approved ──► revoked
//	   └──────► rejected
const (
	ClaimPending  = "pending"
	ClaimApproved = "approved"
	ClaimRejected = "rejected"
	ClaimRevoked  = "revoked"
)

// OwnershipClaim is a user's assertion that they own a business listing.
//
// At most one pending claim exists per (business, user) and at most one
// approved claim exists per business; both are backed by partial unique
// indexes on the claims collection.
type OwnershipClaim struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BusinessID primitive.ObjectID `bson:"business_id" json:"business_id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Message    string             `bson:"message" json:"message"`
	Status     string             `bson:"status" json:"status"`

	AdminMessage *string             `bson:"admin_message,omitempty" json:"admin_message,omitempty"`
	ReviewedBy   *primitive.ObjectID `bson:"reviewed_by,omitempty" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
