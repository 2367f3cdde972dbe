// internal/app/features/projects/routes.go
package projects

import (
	"github.com/dalemusser/seatplan/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/projects.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/self-assign", h.HandleSelfAssign)
		pr.Get("/capacity", h.ServeCapacity)
	})
	return r
}
