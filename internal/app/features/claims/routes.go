// internal/app/features/claims/routes.go
package claims

import (
	"github.com/dalemusser/directoryhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the member-facing router, mounted at /claims.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.Submit)
		pr.Get("/mine", h.Mine)
	})

	return r
}

// MountAdminRoutes mounts the back-office routes on an admin-only router.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/claims", h.List)
	r.Post("/claims/mass", h.Mass)
	r.Get("/claims/{id}", h.Show)
	r.Post("/claims/{id}/approve", h.Approve)
	r.Post("/claims/{id}/reject", h.Reject)
	r.Post("/claims/{id}/revoke", h.Revoke)
	r.Post("/claims/{id}/delete", h.Delete)
	r.Post("/businesses/{id}/owner", h.AssignOwner)
}
