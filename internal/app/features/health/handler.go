package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	NATS   *nats.Conn // nil when events are disabled
	Log    *zap.Logger
}

// NewHandler constructs a health Handler with the Mongo client, the optional
// NATS connection and logger.
func NewHandler(client *mongo.Client, nc *nats.Conn, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		NATS:   nc,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Events   string `json:"events,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "events":"connected" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
//
// A lost NATS connection is reported but does not fail the check; commits
// still succeed without it.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.NATS != nil {
		if h.NATS.IsConnected() {
			resp.Events = "connected"
		} else {
			resp.Events = "disconnected"
			h.Log.Warn("health-check: nats not connected", zap.String("status", h.NATS.Status().String()))
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
