// internal/app/features/claims/handler.go
package claims

import (
	"net/http"
	"strings"

	"github.com/dalemusser/directoryhub/internal/app/moderation/batch"
	"github.com/dalemusser/directoryhub/internal/app/moderation/claimresolver"
	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler owns the ownership-claim endpoints.
type Handler struct {
	Resolver *claimresolver.Resolver
	Batch    *batch.Coordinator
	Log      *zap.Logger
}

// NewHandler constructs a claims Handler.
func NewHandler(resolver *claimresolver.Resolver, coord *batch.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{
		Resolver: resolver,
		Batch:    coord,
		Log:      logger,
	}
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid id")
	}
	return id, nil
}

// bodyID parses an ObjectID taken from a request body.
func bodyID(raw, label string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation(label + " is not a valid id.")
	}
	return id, nil
}

// optionalID parses an optional ObjectID query value.
func optionalID(raw, label string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperr.Validation(label + " is not a valid id.")
	}
	return &id, nil
}
