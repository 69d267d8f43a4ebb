// internal/app/features/reviews/public.go
package reviews

import (
	"net/http"

	"github.com/dalemusser/directoryhub/internal/app/moderation/reviewmod"
	"github.com/dalemusser/directoryhub/internal/app/system/authz"
	"github.com/dalemusser/directoryhub/internal/app/system/paging"
	"github.com/dalemusser/directoryhub/internal/app/system/respond"
	"github.com/dalemusser/directoryhub/internal/app/system/timeouts"
)

// Submit handles POST /businesses/{businessID}/reviews. The review is held
// for moderation; the response carries its pending status.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	businessID, err := pathID(r, "businessID")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in reviewmod.Submission
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "submit review")
	defer cancel()

	rev, err := h.Moderator.Submit(ctx, authz.FromRequest(r), businessID, in)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, rev)
}

// ListPublished handles GET /businesses/{businessID}/reviews?after=.
func (h *Handler) ListPublished(w http.ResponseWriter, r *http.Request) {
	businessID, err := pathID(r, "businessID")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list published reviews")
	defer cancel()

	page, err := h.Moderator.ListPublished(ctx, businessID, paging.ParseAfter(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}
