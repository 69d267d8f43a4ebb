// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/app/system/auth"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Caller is the resolved identity a moderation operation acts for.
// The zero value is an anonymous visitor.
type Caller struct {
	ID   primitive.ObjectID
	Name string
	Role string // lowercased
}

// Authenticated reports whether the caller is a signed-in user.
func (c Caller) Authenticated() bool { return !c.ID.IsZero() }

// IsAdmin reports whether the caller may moderate.
func (c Caller) IsAdmin() bool { return c.Authenticated() && c.Role == models.RoleAdmin }

// NewCaller builds a Caller, normalising the role.
func NewCaller(id primitive.ObjectID, name, role string) Caller {
	return Caller{ID: id, Name: name, Role: strings.ToLower(strings.TrimSpace(role))}
}

// UserCtx returns the user's role (lowercased), name, Mongo ObjectID, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// "visitor", "", NilObjectID, false.
func UserCtx(r *http.Request) (role string, name string, userID primitive.ObjectID, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in session - fail closed.
		return "visitor", "", primitive.NilObjectID, false
	}
	return strings.ToLower(user.Role), user.Name, userID, true
}

// FromRequest resolves the Caller for r. Anonymous requests yield the zero Caller.
func FromRequest(r *http.Request) Caller {
	role, name, id, ok := UserCtx(r)
	if !ok {
		return Caller{}
	}
	return Caller{ID: id, Name: name, Role: role}
}

// RequireAdmin fails with Forbidden unless c is an admin.
func RequireAdmin(c Caller) error {
	if !c.IsAdmin() {
		return apperr.Forbidden("admin role required")
	}
	return nil
}

// RequireSignedIn fails with Forbidden for anonymous callers.
func RequireSignedIn(c Caller) error {
	if !c.Authenticated() {
		return apperr.Forbidden("sign in required")
	}
	return nil
}
