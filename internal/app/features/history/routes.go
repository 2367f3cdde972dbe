// internal/app/features/history/routes.go
package history

import (
	"github.com/dalemusser/seatplan/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/companies/{companyID}/history.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeHistory)
	})
	return r
}
