// internal/app/features/allocations/preview.go
package allocations

import (
	"context"
	"net/http"

	apperrors "github.com/dalemusser/seatplan/internal/app/features/errors"
	"github.com/dalemusser/seatplan/internal/app/system/authz"
	"github.com/dalemusser/seatplan/internal/app/system/formutil"
	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	"github.com/dalemusser/seatplan/internal/domain/errs"
)

type projectJSON struct {
	ProjectID   string   `json:"projectId"`
	ProjectName string   `json:"projectName,omitempty"`
	MaxSeats    int      `json:"maxSeats,omitempty"`
	UserIDs     []string `json:"userIds"`
}

type previewResponse struct {
	Preview  []projectJSON `json:"preview"`
	Unplaced []string      `json:"unplaced"`
}

type pendingJSON struct {
	ID           string `json:"id"`
	UserID       string `json:"userId"`
	UserName     string `json:"userName"`
	EnterpriseID string `json:"enterpriseId"`
	CompanyID    string `json:"companyId,omitempty"`
	ProjectID    string `json:"projectId,omitempty"`
	Status       string `json:"status"`
}

type pendingResponse struct {
	Pending []pendingJSON `json:"pending"`
}

// ServePreview handles GET /api/allocations/preview.
//
// With ?enterpriseId it lists the enterprise's pending preferences. With
// ?companyId it runs the matcher over the company and returns the proposed
// lists without writing anything.
func (h *Handler) ServePreview(w http.ResponseWriter, r *http.Request) {
	_, callerID, ok := authz.UserCtx(r)
	if !ok {
		apperrors.Unauthorized(w)
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("enterpriseId") != "":
		enterpriseID, err := formutil.QueryObjectID(r, "enterpriseId")
		if err != nil {
			apperrors.Write(w, r, h.Log, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Read())
		defer cancel()
		pending, err := h.Svc.PendingForEnterprise(ctx, enterpriseID, callerID)
		if err != nil {
			apperrors.Write(w, r, h.Log, err)
			return
		}
		out := pendingResponse{Pending: make([]pendingJSON, 0, len(pending))}
		for _, p := range pending {
			out.Pending = append(out.Pending, pendingJSON(p))
		}
		apperrors.WriteJSON(w, http.StatusOK, out)

	case q.Get("companyId") != "":
		companyID, err := formutil.QueryObjectID(r, "companyId")
		if err != nil {
			apperrors.Write(w, r, h.Log, err)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Read())
		defer cancel()
		preview, err := h.Svc.PreviewCompany(ctx, companyID, callerID)
		if err != nil {
			apperrors.Write(w, r, h.Log, err)
			return
		}
		out := previewResponse{
			Preview:  make([]projectJSON, 0, len(preview.Projects)),
			Unplaced: preview.Unplaced,
		}
		if out.Unplaced == nil {
			out.Unplaced = []string{}
		}
		for _, p := range preview.Projects {
			out.Preview = append(out.Preview, projectJSON(p))
		}
		apperrors.WriteJSON(w, http.StatusOK, out)

	default:
		apperrors.Write(w, r, h.Log, errs.Validation("companyId", "enterpriseId or companyId is required"))
	}
}
