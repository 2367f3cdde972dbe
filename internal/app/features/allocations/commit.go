// internal/app/features/allocations/commit.go
package allocations

import (
	"context"
	"net/http"

	"github.com/dalemusser/seatplan/internal/app/allocation"
	apperrors "github.com/dalemusser/seatplan/internal/app/features/errors"
	"github.com/dalemusser/seatplan/internal/app/system/authz"
	"github.com/dalemusser/seatplan/internal/app/system/formutil"
	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	matcher "github.com/dalemusser/seatplan/internal/domain/allocation"
	"github.com/dalemusser/seatplan/internal/domain/errs"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// commitRequest carries either a single commit (preferenceId, companyId,
// projectId) or a bulk commit (companyId, preview).
type commitRequest struct {
	PreferenceID string        `json:"preferenceId"`
	CompanyID    string        `json:"companyId"`
	ProjectID    string        `json:"projectId"`
	Preview      []projectJSON `json:"preview"`
	Unplaced     []string      `json:"unplaced"`
}

type commitOneResponse struct {
	OK           bool   `json:"ok"`
	AssignmentID string `json:"assignmentId"`
}

type commitManyResponse struct {
	OK       bool   `json:"ok"`
	CommitID string `json:"commitId"`
	Deleted  int64  `json:"deleted"`
	Inserted int64  `json:"inserted"`
}

// HandleCommit handles POST /api/allocations/commit. A body naming a
// preference seats that one applicant; a body carrying a preview replaces
// the company's assignments for every member it names.
func (h *Handler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	_, callerID, ok := authz.UserCtx(r)
	if !ok {
		apperrors.Unauthorized(w)
		return
	}

	var body commitRequest
	if err := formutil.DecodeJSON(r, &body); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}

	switch {
	case body.PreferenceID != "":
		h.commitOne(w, r, body, callerID)
	case body.Preview != nil:
		h.commitMany(w, r, body, callerID)
	default:
		apperrors.Write(w, r, h.Log, errs.Validation("body", "preferenceId or preview is required"))
	}
}

func (h *Handler) commitOne(w http.ResponseWriter, r *http.Request, body commitRequest, callerID primitive.ObjectID) {
	req := allocation.CommitOneRequest{ApproverID: callerID}
	var err error
	if req.PreferenceID, err = formutil.ObjectID("preferenceId", body.PreferenceID); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	if req.CompanyID, err = formutil.ObjectID("companyId", body.CompanyID); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	if req.ProjectID, err = formutil.ObjectID("projectId", body.ProjectID); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Commit())
	defer cancel()
	id, err := h.Svc.CommitOne(ctx, req)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, commitOneResponse{OK: true, AssignmentID: id.Hex()})
}

func (h *Handler) commitMany(w http.ResponseWriter, r *http.Request, body commitRequest, callerID primitive.ObjectID) {
	companyID, err := formutil.ObjectID("companyId", body.CompanyID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}

	res := matcher.Result{
		Projects: make([]matcher.ProjectMembers, 0, len(body.Preview)),
		Unplaced: body.Unplaced,
	}
	for _, p := range body.Preview {
		res.Projects = append(res.Projects, matcher.ProjectMembers{ProjectID: p.ProjectID, MemberIDs: p.UserIDs})
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Commit())
	defer cancel()
	sum, err := h.Svc.CommitMany(ctx, companyID, res, callerID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, commitManyResponse{
		OK:       true,
		CommitID: sum.CommitID,
		Deleted:  sum.Deleted,
		Inserted: sum.Inserted,
	})
}
