// internal/app/features/companyalloc/routes.go
package companyalloc

import (
	"github.com/dalemusser/seatplan/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/companies/{companyID}/allocate.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleAllocate)
		pr.Delete("/", h.HandleUnallocate)
	})
	return r
}
