// internal/app/features/reviews/handler.go
package reviews

import (
	"net/http"

	"github.com/dalemusser/directoryhub/internal/app/moderation/batch"
	"github.com/dalemusser/directoryhub/internal/app/moderation/reviewmod"
	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler owns the review endpoints.
type Handler struct {
	Moderator *reviewmod.Moderator
	Batch     *batch.Coordinator
	Log       *zap.Logger
}

// NewHandler constructs a reviews Handler.
func NewHandler(mod *reviewmod.Moderator, coord *batch.Coordinator, logger *zap.Logger) *Handler {
	return &Handler{
		Moderator: mod,
		Batch:     coord,
		Log:       logger,
	}
}

func pathID(r *http.Request, key string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, key))
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid id")
	}
	return id, nil
}
