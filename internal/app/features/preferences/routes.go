// internal/app/features/preferences/routes.go
package preferences

import (
	"github.com/dalemusser/seatplan/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// CompanyRoutes mounts under /api/companies/{companyID}/preferences.
func CompanyRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeList)
		pr.Put("/", h.HandleSubmit)
		pr.Post("/", h.HandleSubmit) // older clients submit with POST
		pr.Delete("/", h.HandleClear)
	})
	return r
}

// EnterpriseRoutes mounts under /api/preferences.
func EnterpriseRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleSubmitEnterprise)
	})
	return r
}
