// internal/app/features/projects/handler.go
package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/seatplan/internal/app/allocation"
	apperrors "github.com/dalemusser/seatplan/internal/app/features/errors"
	"github.com/dalemusser/seatplan/internal/app/system/authz"
	"github.com/dalemusser/seatplan/internal/app/system/formutil"
	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service is the part of the allocation engine these handlers call.
type Service interface {
	SelfAssign(ctx context.Context, companyID, projectID, userID primitive.ObjectID) (primitive.ObjectID, error)
	Capacity(ctx context.Context, companyID, callerID primitive.ObjectID) ([]allocation.ProjectCapacity, error)
}

// Handler serves member-facing project endpoints.
type Handler struct {
	Svc Service
	Log *zap.Logger
}

// NewHandler constructs a projects Handler.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type selfAssignRequest struct {
	CompanyID string `json:"companyId"`
	ProjectID string `json:"projectId"`
}

type selfAssignResponse struct {
	OK           bool   `json:"ok"`
	AssignmentID string `json:"assignmentId"`
}

// HandleSelfAssign handles POST /api/projects/self-assign.
func (h *Handler) HandleSelfAssign(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		apperrors.Unauthorized(w)
		return
	}
	var body selfAssignRequest
	if err := formutil.DecodeJSON(r, &body); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	companyID, err := formutil.ObjectID("companyId", body.CompanyID)
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
	id, err := h.Svc.SelfAssign(ctx, companyID, projectID, userID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, selfAssignResponse{OK: true, AssignmentID: id.Hex()})
}

type capacityJSON struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MaxSeats     int    `json:"maxSeats"`
	CurrentSeats int    `json:"currentSeats"`
	IsFull       bool   `json:"isFull"`
	IsActive     bool   `json:"isActive"`
}

// ServeCapacity handles GET /api/projects/capacity?companyId=.
func (h *Handler) ServeCapacity(w http.ResponseWriter, r *http.Request) {
	_, callerID, ok := authz.UserCtx(r)
	if !ok {
		apperrors.Unauthorized(w)
		return
	}
	companyID, err := formutil.QueryObjectID(r, "companyId")
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Read())
	defer cancel()
	rows, err := h.Svc.Capacity(ctx, companyID, callerID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	out := make([]capacityJSON, 0, len(rows))
	for _, p := range rows {
		out = append(out, capacityJSON(p))
	}
	apperrors.WriteJSON(w, http.StatusOK, out)
}
