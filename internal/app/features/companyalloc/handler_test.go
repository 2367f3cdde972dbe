package companyalloc_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/dalemusser/seatplan/internal/app/features/companyalloc"
	"github.com/dalemusser/seatplan/internal/domain/errs"
	"github.com/dalemusser/seatplan/internal/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Allocate(ctx context.Context, companyID, userID, projectID, adminID primitive.ObjectID) (primitive.ObjectID, error) {
	args := m.Called(ctx, companyID, userID, projectID, adminID)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *mockService) Unallocate(ctx context.Context, companyID, userID, projectID, adminID primitive.ObjectID) error {
	args := m.Called(ctx, companyID, userID, projectID, adminID)
	return args.Error(0)
}

func TestHandleAllocate(t *testing.T) {
	svc := &mockService{}
	h := companyalloc.NewHandler(svc, zap.NewNop())
	admin, company, user, project := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	seat := primitive.NewObjectID()
	svc.On("Allocate", mock.Anything, company, user, project, admin).Return(seat, nil)

	req := testutil.NewJSONRequest("POST", "/api/companies/"+company.Hex()+"/allocate", map[string]string{
		"userId":    user.Hex(),
		"projectId": project.Hex(),
	}, testutil.UserFromID(admin, "Admin"))
	rec := testutil.NewRecorder()
	h.HandleAllocate(rec, testutil.WithChiURLParam(req, "companyID", company.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		OK           bool   `json:"ok"`
		AssignmentID string `json:"assignmentId"`
	}
	rec.DecodeJSON(t, &body)
	require.True(t, body.OK)
	require.Equal(t, seat.Hex(), body.AssignmentID)
	svc.AssertExpectations(t)
}

func TestHandleAllocate_Errors(t *testing.T) {
	svc := &mockService{}
	h := companyalloc.NewHandler(svc, zap.NewNop())
	company, full := primitive.NewObjectID(), primitive.NewObjectID()
	svc.On("Allocate", mock.Anything, company, mock.Anything, full, mock.Anything).
		Return(primitive.NilObjectID, errs.Conflict(errs.CodeProjectFull, "project is full"))

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"missing user", map[string]string{"projectId": full.Hex()}, http.StatusBadRequest},
		{"bad project", map[string]string{"userId": primitive.NewObjectID().Hex(), "projectId": "x"}, http.StatusBadRequest},
		{"full", map[string]string{"userId": primitive.NewObjectID().Hex(), "projectId": full.Hex()}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewJSONRequest("POST", "/", tt.body, testutil.AnonymousMember())
			rec := testutil.NewRecorder()
			h.HandleAllocate(rec, testutil.WithChiURLParam(req, "companyID", company.Hex()))
			rec.AssertStatus(t, tt.status)
		})
	}
}

func TestHandleUnallocate(t *testing.T) {
	svc := &mockService{}
	h := companyalloc.NewHandler(svc, zap.NewNop())
	admin, company, user, project := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	svc.On("Unallocate", mock.Anything, company, user, project, admin).Return(nil).Once()
	svc.On("Unallocate", mock.Anything, company, user, project, admin).Return(errs.NotFound("assignment", user.Hex()))

	target := "/api/companies/" + company.Hex() + "/allocate?userId=" + user.Hex() + "&projectId=" + project.Hex()
	caller := testutil.UserFromID(admin, "Admin")

	rec := testutil.NewRecorder()
	h.HandleUnallocate(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", target, caller), "companyID", company.Hex()))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	h.HandleUnallocate(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", target, caller), "companyID", company.Hex()))
	rec.AssertStatus(t, http.StatusNotFound)

	rec = testutil.NewRecorder()
	h.HandleUnallocate(rec, testutil.WithChiURLParam(testutil.NewAuthenticatedRequest("DELETE", "/api/companies/x/allocate", caller), "companyID", company.Hex()))
	rec.AssertStatus(t, http.StatusBadRequest)
}
