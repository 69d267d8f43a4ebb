// internal/app/features/claims/admin.go
package claims

import (
	"context"
	"net/http"

	"github.com/dalemusser/directoryhub/internal/app/moderation/batch"
	"github.com/dalemusser/directoryhub/internal/app/system/authz"
	"github.com/dalemusser/directoryhub/internal/app/system/inputval"
	"github.com/dalemusser/directoryhub/internal/app/system/normalize"
	"github.com/dalemusser/directoryhub/internal/app/system/paging"
	"github.com/dalemusser/directoryhub/internal/app/system/respond"
	"github.com/dalemusser/directoryhub/internal/app/system/timeouts"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// List handles GET /admin/claims?status=&business_id=&user_id=&after=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f := models.ClaimFilter{Status: normalize.StatusFilter(query.Get(r, "status"))}
	var err error
	if f.BusinessID, err = optionalID(normalize.QueryParam(query.Get(r, "business_id")), "Business"); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if f.UserID, err = optionalID(normalize.QueryParam(query.Get(r, "user_id")), "User"); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "list claims")
	defer cancel()

	page, err := h.Resolver.List(ctx, authz.FromRequest(r), f, paging.ParseAfter(r))
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, page)
}

// Show handles GET /admin/claims/{id}.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get claim")
	defer cancel()

	claim, err := h.Resolver.Get(ctx, authz.FromRequest(r), id)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, claim)
}

// decisionRequest is the optional body of approve / reject / revoke.
type decisionRequest struct {
	AdminMessage *string `json:"admin_message"`
}

type decideFunc func(ctx context.Context, caller authz.Caller, id primitive.ObjectID, note *string) (models.OwnershipClaim, error)

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, op string, fn decideFunc) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in decisionRequest
	if err := respond.DecodeOptional(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, op)
	defer cancel()

	claim, err := fn(ctx, authz.FromRequest(r), id, in.AdminMessage)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, claim)
}

// Approve handles POST /admin/claims/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve claim", h.Resolver.Approve)
}

// Reject handles POST /admin/claims/{id}/reject.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "reject claim", h.Resolver.Reject)
}

// Revoke handles POST /admin/claims/{id}/revoke.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "revoke claim", h.Resolver.Revoke)
}

// Delete handles POST /admin/claims/{id}/delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete claim")
	defer cancel()

	if err := h.Resolver.Delete(ctx, authz.FromRequest(r), id); err != nil {
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

// Mass handles POST /admin/claims/mass. The response is 200 whenever the
// batch ran, even if every item failed; see failures in the body.
func (h *Handler) Mass(w http.ResponseWriter, r *http.Request) {
	var in massRequest
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "claims mass action")
	defer cancel()

	res, err := h.Batch.Apply(ctx, authz.FromRequest(r), batch.Request{
		Kind:    batch.KindClaim,
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

type assignRequest struct {
	UserID  string `json:"user_id" validate:"required,objectid" label:"User"`
	Message string `json:"message"`
}

// AssignOwner handles POST /admin/businesses/{id}/owner.
func (h *Handler) AssignOwner(w http.ResponseWriter, r *http.Request) {
	businessID, err := pathID(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	var in assignRequest
	if err := respond.Decode(r, &in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := inputval.Check(in); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	userID, err := bodyID(in.UserID, "User")
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "assign owner")
	defer cancel()

	claim, err := h.Resolver.AssignOwner(ctx, authz.FromRequest(r), businessID, userID, in.Message)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, claim)
}
