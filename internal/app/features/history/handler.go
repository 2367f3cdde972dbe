// internal/app/features/history/handler.go
package history

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/seatplan/internal/app/allocation"
	apperrors "github.com/dalemusser/seatplan/internal/app/features/errors"
	"github.com/dalemusser/seatplan/internal/app/store/audit"
	"github.com/dalemusser/seatplan/internal/app/system/authz"
	"github.com/dalemusser/seatplan/internal/app/system/formutil"
	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Service interface {
	History(ctx context.Context, q allocation.HistoryQuery) (allocation.History, error)
}

// Handler serves a company's allocation audit trail.
type Handler struct {
	Svc Service
	Log *zap.Logger
}

func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type eventJSON struct {
	ID      string            `json:"id"`
	At      time.Time         `json:"at"`
	Type    string            `json:"type"`
	UserID  string            `json:"userId,omitempty"`
	ActorID string            `json:"actorId,omitempty"`
	Success bool              `json:"success"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type historyResponse struct {
	Events []eventJSON `json:"events"`
	Total  int64       `json:"total"`
	Limit  int64       `json:"limit"`
	Offset int64       `json:"offset"`
}

func hex(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

func toJSON(e audit.Event) eventJSON {
	return eventJSON{
		ID:      e.ID.Hex(),
		At:      e.Timestamp,
		Type:    e.EventType,
		UserID:  hex(e.UserID),
		ActorID: hex(e.ActorID),
		Success: e.Success,
		Reason:  e.FailureReason,
		Details: e.Details,
	}
}

// ServeHistory handles GET /api/companies/{companyID}/history
// ?userId=&type=&limit=&offset=.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	_, callerID, ok := authz.UserCtx(r)
	if !ok {
		apperrors.Unauthorized(w)
		return
	}
	companyID, err := formutil.ObjectID("companyId", chi.URLParam(r, "companyID"))
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	userID, err := formutil.OptionalObjectID("userId", r.URL.Query().Get("userId"))
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	limit, err := formutil.QueryInt(r, "limit", audit.DefaultLimit)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	offset, err := formutil.QueryInt(r, "offset", 0)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	limit = min(max(limit, 1), audit.MaxLimit)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Read())
	defer cancel()
	res, err := h.Svc.History(ctx, allocation.HistoryQuery{
		CompanyID: companyID,
		CallerID:  callerID,
		UserID:    userID,
		EventType: r.URL.Query().Get("type"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}

	out := historyResponse{Events: make([]eventJSON, 0, len(res.Events)), Total: res.Total, Limit: limit, Offset: offset}
	for _, e := range res.Events {
		out.Events = append(out.Events, toJSON(e))
	}
	apperrors.WriteJSON(w, http.StatusOK, out)
}
