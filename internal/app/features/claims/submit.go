// internal/app/features/claims/submit.go
package claims

import (
	"net/http"

	"github.com/dalemusser/directoryhub/internal/app/system/authz"
	"github.com/dalemusser/directoryhub/internal/app/system/inputval"
	"github.com/dalemusser/directoryhub/internal/app/system/paging"
	"github.com/dalemusser/directoryhub/internal/app/system/respond"
	"github.com/dalemusser/directoryhub/internal/app/system/timeouts"
)

type submitRequest struct {
	BusinessID string `json:"business_id" validate:"required,objectid" label:"Business"`
	Message    string `json:"message"`
}

// Submit handles POST /claims.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var in submitRequest
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := inputval.Check(in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	businessID, err := bodyID(in.BusinessID, "Business")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "submit claim")
	defer cancel()

	claim, err := h.Resolver.Submit(ctx, authz.FromRequest(r), businessID, in.Message)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, claim)
}

// Mine handles GET /claims/mine?after=.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list my claims")
	defer cancel()

	page, err := h.Resolver.ListMine(ctx, authz.FromRequest(r), paging.ParseAfter(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}
