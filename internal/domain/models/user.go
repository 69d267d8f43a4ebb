// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles recognised by the back office.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is a site account. Business owners are ordinary members whose
// ownership comes from an approved claim.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"`
	Email      string             `bson:"email" json:"email"`
	Role       string             `bson:"role" json:"role"` // admin | member
	Status     string             `bson:"status,omitempty" json:"status,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
