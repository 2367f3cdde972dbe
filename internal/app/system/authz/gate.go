package authz

import (
	"context"
	"errors"

	enterprisestore "github.com/dalemusser/seatplan/internal/app/store/enterprises"
	membershipstore "github.com/dalemusser/seatplan/internal/app/store/memberships"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Gate answers scope-role questions from the membership collections.
// Every method fails closed: a missing membership is "no", a read failure is
// returned as an error.
type Gate struct {
	enterprises *enterprisestore.Store
	memberships *membershipstore.Store
}

// NewGate creates a Gate over db.
func NewGate(db *mongo.Database) *Gate {
	return &Gate{
		enterprises: enterprisestore.New(db),
		memberships: membershipstore.New(db),
	}
}

// enterpriseRole returns the caller's active enterprise role, or "".
func (g *Gate) enterpriseRole(ctx context.Context, enterpriseID, userID primitive.ObjectID) (string, error) {
	m, err := g.enterprises.GetMembership(ctx, enterpriseID, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if m.Status != models.StatusActive {
		return "", nil
	}
	return m.Role, nil
}

// companyRole returns the caller's active company role, or "". The
// company's recorded owner is always "owner".
func (g *Gate) companyRole(ctx context.Context, company models.Company, userID primitive.ObjectID) (string, error) {
	if company.OwnerUserID == userID {
		return models.RoleOwner, nil
	}
	m, err := g.memberships.Get(ctx, company.ID, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if m.Status != models.StatusActive {
		return "", nil
	}
	return m.Role, nil
}

// CanManageEnterprise reports whether userID is an active owner or admin of
// the enterprise.
func (g *Gate) CanManageEnterprise(ctx context.Context, enterpriseID, userID primitive.ObjectID) (bool, error) {
	role, err := g.enterpriseRole(ctx, enterpriseID, userID)
	if err != nil {
		return false, err
	}
	return role == models.RoleOwner || role == models.RoleAdmin, nil
}

// IsEnterpriseMember reports whether userID holds any active enterprise membership.
func (g *Gate) IsEnterpriseMember(ctx context.Context, enterpriseID, userID primitive.ObjectID) (bool, error) {
	role, err := g.enterpriseRole(ctx, enterpriseID, userID)
	return role != "", err
}

// CanManageCompany reports whether userID is an owner, admin or staff member
// of the company.
func (g *Gate) CanManageCompany(ctx context.Context, company models.Company, userID primitive.ObjectID) (bool, error) {
	role, err := g.companyRole(ctx, company, userID)
	if err != nil {
		return false, err
	}
	return models.IsManager(role), nil
}

// IsCompanyAdmin reports whether userID is the company's owner or an admin.
func (g *Gate) IsCompanyAdmin(ctx context.Context, company models.Company, userID primitive.ObjectID) (bool, error) {
	role, err := g.companyRole(ctx, company, userID)
	if err != nil {
		return false, err
	}
	return role == models.RoleOwner || role == models.RoleAdmin, nil
}

// CanAdministerCompany reports whether userID is a company owner or admin,
// or an owner or admin of the company's enterprise.
func (g *Gate) CanAdministerCompany(ctx context.Context, company models.Company, userID primitive.ObjectID) (bool, error) {
	ok, err := g.IsCompanyAdmin(ctx, company, userID)
	if err != nil || ok {
		return ok, err
	}
	if company.EnterpriseID == nil {
		return false, nil
	}
	return g.CanManageEnterprise(ctx, *company.EnterpriseID, userID)
}

// IsCompanyMember reports whether userID holds any active company membership.
func (g *Gate) IsCompanyMember(ctx context.Context, company models.Company, userID primitive.ObjectID) (bool, error) {
	role, err := g.companyRole(ctx, company, userID)
	return role != "", err
}
