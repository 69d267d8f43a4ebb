// internal/app/features/auditlog/routes.go
package auditlog

import "github.com/go-chi/chi/v5"

// MountAdminRoutes attaches the audit trail to the admin router. The caller
// is expected to have applied the admin role check already.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/audit", h.List)
}
