// internal/app/features/allocations/handler.go
package allocations

import (
	"context"

	"github.com/dalemusser/seatplan/internal/app/allocation"
	matcher "github.com/dalemusser/seatplan/internal/domain/allocation"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Service is the part of the allocation engine these handlers call.
// *allocation.Service implements it.
type Service interface {
	PreviewCompany(ctx context.Context, companyID, callerID primitive.ObjectID) (allocation.Preview, error)
	PendingForEnterprise(ctx context.Context, enterpriseID, callerID primitive.ObjectID) ([]allocation.PendingPreference, error)
	CommitOne(ctx context.Context, req allocation.CommitOneRequest) (primitive.ObjectID, error)
	CommitMany(ctx context.Context, companyID primitive.ObjectID, res matcher.Result, approverID primitive.ObjectID) (allocation.CommitSummary, error)
}

// Handler serves preview and commit.
type Handler struct {
	Svc Service
	Log *zap.Logger
}

// NewHandler constructs an allocations Handler.
func NewHandler(svc Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}
