// internal/app/features/preferences/handler.go
package preferences

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/seatplan/internal/app/allocation"
	apperrors "github.com/dalemusser/seatplan/internal/app/features/errors"
	"github.com/dalemusser/seatplan/internal/app/system/authz"
	"github.com/dalemusser/seatplan/internal/app/system/formutil"
	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service is the part of the allocation engine these handlers call.
type Service interface {
	SubmitPreferences(ctx context.Context, companyID, userID primitive.ObjectID, choices []allocation.Choice) ([]models.Preference, error)
	ListPreferences(ctx context.Context, companyID, userID primitive.ObjectID) ([]models.Preference, error)
	ClearPreferences(ctx context.Context, companyID, userID primitive.ObjectID) error
	SubmitEnterprisePreference(ctx context.Context, enterpriseID, userID primitive.ObjectID, companyID, projectID *primitive.ObjectID) (models.EnterprisePreference, error)
}

// Handler serves ranked company preferences and enterprise join requests.
type Handler struct {
	Svc Service
	Log *zap.Logger
}

// NewHandler constructs a preferences Handler.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

type preferenceJSON struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ProjectID string    `json:"projectId"`
	Rank      int       `json:"rank"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type listResponse struct {
	Preferences []preferenceJSON `json:"preferences"`
}

func toJSON(prefs []models.Preference) listResponse {
	out := listResponse{Preferences: make([]preferenceJSON, 0, len(prefs))}
	for _, p := range prefs {
		out.Preferences = append(out.Preferences, preferenceJSON{
			ID:        p.ID.Hex(),
			UserID:    p.UserID.Hex(),
			ProjectID: p.ProjectID.Hex(),
			Rank:      p.Rank,
			Status:    p.Status,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		})
	}
	return out
}

// scope resolves the caller and the {companyID} path parameter. It writes
// the error response and returns ok=false when either is unusable.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (companyID, userID primitive.ObjectID, ok bool) {
	_, userID, ok = authz.UserCtx(r)
	if !ok {
		apperrors.Unauthorized(w)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	companyID, err := formutil.ObjectID("companyId", chi.URLParam(r, "companyID"))
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return primitive.NilObjectID, primitive.NilObjectID, false
	}
	return companyID, userID, true
}

// ServeList handles GET /api/companies/{companyID}/preferences.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	companyID, userID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Read())
	defer cancel()
	prefs, err := h.Svc.ListPreferences(ctx, companyID, userID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, toJSON(prefs))
}

type submitRequest struct {
	Preferences []struct {
		ProjectID string `json:"projectId"`
		Rank      int    `json:"rank"`
	} `json:"preferences"`
}

// HandleSubmit handles PUT /api/companies/{companyID}/preferences. The body
// replaces the caller's whole list.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	companyID, userID, ok := h.scope(w, r)
	if !ok {
		return
	}
	var body submitRequest
	if err := formutil.DecodeJSON(r, &body); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	choices := make([]allocation.Choice, 0, len(body.Preferences))
	for _, p := range body.Preferences {
		pid, err := formutil.ObjectID("projectId", p.ProjectID)
		if err != nil {
			apperrors.Write(w, r, h.Log, err)
			return
		}
		choices = append(choices, allocation.Choice{ProjectID: pid, Rank: p.Rank})
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Commit())
	defer cancel()
	saved, err := h.Svc.SubmitPreferences(ctx, companyID, userID, choices)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, toJSON(saved))
}

// HandleClear handles DELETE /api/companies/{companyID}/preferences.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	companyID, userID, ok := h.scope(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Commit())
	defer cancel()
	if err := h.Svc.ClearPreferences(ctx, companyID, userID); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	apperrors.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type enterpriseRequest struct {
	EnterpriseID string `json:"enterpriseId"`
	CompanyID    string `json:"companyId"`
	ProjectID    string `json:"projectId"`
}

type enterpriseResponse struct {
	ID           string `json:"id"`
	EnterpriseID string `json:"enterpriseId"`
	CompanyID    string `json:"companyId,omitempty"`
	ProjectID    string `json:"projectId,omitempty"`
	Status       string `json:"status"`
}

// HandleSubmitEnterprise handles POST /api/preferences: an enterprise member
// asks to be placed, optionally naming a company and project.
func (h *Handler) HandleSubmitEnterprise(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := authz.UserCtx(r)
	if !ok {
		apperrors.Unauthorized(w)
		return
	}
	var body enterpriseRequest
	if err := formutil.DecodeJSON(r, &body); err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	enterpriseID, err := formutil.ObjectID("enterpriseId", body.EnterpriseID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	companyID, err := formutil.OptionalObjectID("companyId", body.CompanyID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	projectID, err := formutil.OptionalObjectID("projectId", body.ProjectID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Commit())
	defer cancel()
	pref, err := h.Svc.SubmitEnterprisePreference(ctx, enterpriseID, userID, companyID, projectID)
	if err != nil {
		apperrors.Write(w, r, h.Log, err)
		return
	}
	resp := enterpriseResponse{
		ID:           pref.ID.Hex(),
		EnterpriseID: pref.EnterpriseID.Hex(),
		Status:       pref.Status,
	}
	if pref.CompanyID != nil {
		resp.CompanyID = pref.CompanyID.Hex()
	}
	if pref.ProjectID != nil {
		resp.ProjectID = pref.ProjectID.Hex()
	}
	apperrors.WriteJSON(w, http.StatusCreated, resp)
}
