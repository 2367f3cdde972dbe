// internal/app/features/companyalloc/handler.go
package companyalloc

import (
	"context"
	"net/http"

	apperrors "github.com/dalemusser/seatplan/internal/app/features/errors"
	"github.com/dalemusser/seatplan/internal/app/system/authz"
	"github.com/dalemusser/seatplan/internal/app/system/formutil"
	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service is the part of the allocation engine these handlers call.
type Service interface {
	Allocate(ctx context.Context, companyID, userID, projectID, adminID primitive.ObjectID) (primitive.ObjectID, error)
	Unallocate(ctx context.Context, companyID, userID, projectID, adminID primitive.ObjectID) error
}

// Handler serves manual seat changes made by company administrators.
type Handler struct {
	Svc Service
	Log *zap.Logger
}

// NewHandler constructs a companyalloc Handler.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type allocateRequest struct {
	UserID    string `json:"userId"`
	ProjectID string `json:"projectId"`
}

type allocateResponse struct {
	OK           bool   `json:"ok"`
	AssignmentID string `json:"assignmentId"`
}

// HandleAllocate handles POST /api/companies/{companyID}/allocate.
func (h *Handler) HandleAllocate(w http.ResponseWriter, r *http.Request) {
	_, adminID, ok := authz.UserCtx(r)
	if !ok {
		apperrors.Unauthorized(w)
		return
	}
	companyID, err := formutil.ObjectID("companyId", chi.URLParam(r, "companyID"))
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	var body allocateRequest
	if err := formutil.DecodeJSON(r, &body); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	userID, err := formutil.ObjectID("userId", body.UserID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	projectID, err := formutil.ObjectID("projectId", body.ProjectID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Commit())
	defer cancel()
	id, err := h.Svc.Allocate(ctx, companyID, userID, projectID, adminID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, allocateResponse{OK: true, AssignmentID: id.Hex()})
}

// HandleUnallocate handles DELETE /api/companies/{companyID}/allocate?userId=&projectId=.
func (h *Handler) HandleUnallocate(w http.ResponseWriter, r *http.Request) {
	_, adminID, ok := authz.UserCtx(r)
	if !ok {
		apperrors.Unauthorized(w)
		return
	}
	companyID, err := formutil.ObjectID("companyId", chi.URLParam(r, "companyID"))
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	userID, err := formutil.QueryObjectID(r, "userId")
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	projectID, err := formutil.QueryObjectID(r, "projectId")
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Commit())
	defer cancel()
	if err := h.Svc.Unallocate(ctx, companyID, userID, projectID, adminID); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
