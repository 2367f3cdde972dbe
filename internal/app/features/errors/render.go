// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/seatplan/internal/domain/errs"
	"go.uber.org/zap"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// BadRequest writes a 400 for a body or query that could not be parsed.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, Body{Error: msg, Code: string(errs.CodeValidation)})
}

// Unauthorized writes a 401 for a request without a usable signed-in user.
func Unauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, Body{Error: "Unauthorized", Code: "UNAUTHENTICATED"})
}

// Status maps a domain error to its HTTP status. Unclassified errors are 500.
func Status(err error) int {
	var (
		ve *errs.ValidationError
		ie *errs.InvalidInputError
		fe *errs.ForbiddenError
		ne *errs.NotFoundError
		ce *errs.ConflictError
	)
	switch {
	case stderrors.As(err, &ve), stderrors.As(err, &ie):
		return http.StatusBadRequest
	case stderrors.As(err, &fe):
		return http.StatusForbidden
	case stderrors.As(err, &ne):
		return http.StatusNotFound
	case stderrors.As(err, &ce):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Write maps err to a status and JSON body and logs it at the level its
// class deserves. Storage faults are logged at error level and their detail
// is not sent to the client.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := Status(err)
	fields := []zap.Field{
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
	}

	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed", fields...)
		WriteJSON(w, status, Body{Error: "internal error", Code: "INTERNAL"})
		return
	case http.StatusConflict:
		log.Info("request conflicted", fields...)
	default:
		log.Debug("request rejected", fields...)
	}
	WriteJSON(w, status, Body{Error: err.Error(), Code: string(errs.CodeOf(err))})
}
