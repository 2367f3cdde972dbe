// internal/app/features/errors/errors.go
package errors

import (
	"net/http"
)

// Handler serves the router's fallback responses as JSON.
// No DB needed.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers requests for unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, Body{Error: "no route for " + r.URL.Path, Code: "ROUTE_NOT_FOUND"})
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, Body{Error: r.Method + " not allowed on " + r.URL.Path, Code: "METHOD_NOT_ALLOWED"})
}
