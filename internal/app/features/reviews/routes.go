// internal/app/features/reviews/routes.go
package reviews

import "github.com/go-chi/chi/v5"

// MountPublicRoutes mounts the visitor routes. Submitting is open to
// anonymous visitors, so no auth middleware is applied.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/businesses/{businessID}/reviews", h.ListPublished)
	r.Post("/businesses/{businessID}/reviews", h.Submit)
}

// MountAdminRoutes mounts the back-office routes on an admin-only router.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/reviews", h.List)
	r.Post("/reviews/mass", h.Mass)
	r.Get("/reviews/{id}", h.Show)
	r.Post("/reviews/{id}/approve", h.Approve)
	r.Post("/reviews/{id}/reject", h.Reject)
	r.Post("/reviews/{id}/delete", h.Delete)
}
