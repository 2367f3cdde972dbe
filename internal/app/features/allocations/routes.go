// internal/app/features/allocations/routes.go
package allocations

import (
	"github.com/dalemusser/seatplan/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/allocations.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/preview", h.ServePreview)
		pr.Post("/commit", h.HandleCommit)
	})
	return r
}
