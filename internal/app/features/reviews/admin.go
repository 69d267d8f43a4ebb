// internal/app/features/reviews/admin.go
package reviews

import (
	"net/http"

	"github.com/dalemusser/directoryhub/internal/app/moderation/batch"
	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/app/system/authz"
	"github.com/dalemusser/directoryhub/internal/app/system/normalize"
	"github.com/dalemusser/directoryhub/internal/app/system/paging"
	"github.com/dalemusser/directoryhub/internal/app/system/respond"
	"github.com/dalemusser/directoryhub/internal/app/system/timeouts"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// List handles GET /admin/reviews?status=&business_id=&after=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f := models.ReviewFilter{Status: normalize.StatusFilter(query.Get(r, "status"))}
	if raw := normalize.QueryParam(query.Get(r, "business_id")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respond.Error(w, h.Log, apperr.Validation("Business is not a valid id."))
			return
		}
		f.BusinessID = &id
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list reviews")
	defer cancel()

	page, err := h.Moderator.List(ctx, authz.FromRequest(r), f, paging.ParseAfter(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}

// Show handles GET /admin/reviews/{id}.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get review")
	defer cancel()

	rev, err := h.Moderator.Get(ctx, authz.FromRequest(r), id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, rev)
}

type decisionRequest struct {
	ModeratorNotes *string `json:"moderator_notes"`
}

// Approve handles POST /admin/reviews/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in decisionRequest
	if err := respond.DecodeOptional(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "approve review")
	defer cancel()

	rev, err := h.Moderator.Approve(ctx, authz.FromRequest(r), id, in.ModeratorNotes)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, rev)
}

// Reject handles POST /admin/reviews/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in decisionRequest
	if err := respond.DecodeOptional(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "reject review")
	defer cancel()

	rev, err := h.Moderator.Reject(ctx, authz.FromRequest(r), id, in.ModeratorNotes)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, rev)
}

// Delete handles POST /admin/reviews/{id}/delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete review")
	defer cancel()

	if err := h.Moderator.Delete(ctx, authz.FromRequest(r), id); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type massRequest struct {
	Action  string   `json:"action"`
	IDs     []string `json:"ids"`
	Message *string  `json:"message"`
}

// Mass handles POST /admin/reviews/mass.
func (h *Handler) Mass(w http.ResponseWriter, r *http.Request) {
	var in massRequest
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "reviews mass action")
	defer cancel()

	res, err := h.Batch.Apply(ctx, authz.FromRequest(r), batch.Request{
		Kind:    batch.KindReview,
		Action:  normalize.Status(in.Action),
		IDs:     in.IDs,
		Message: in.Message,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
