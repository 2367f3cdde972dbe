package authz_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/seatplan/internal/app/system/auth"
	"github.com/dalemusser/seatplan/internal/app/system/authz"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"github.com/dalemusser/seatplan/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx(t *testing.T) {
	id := primitive.NewObjectID()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: id.Hex(), Name: "Ada"})

	name, userID, ok := authz.UserCtx(req)
	if !ok {
		t.Fatal("expected ok")
	}
	if name != "Ada" || userID != id {
		t.Errorf("got (%q, %s), want (%q, %s)", name, userID.Hex(), "Ada", id.Hex())
	}
}

func TestUserCtx_NoUser(t *testing.T) {
	_, userID, ok := authz.UserCtx(httptest.NewRequest("GET", "/", nil))
	if ok || !userID.IsZero() {
		t.Error("expected no user")
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: "not-an-id"})
	if _, _, ok := authz.UserCtx(req); ok {
		t.Error("expected malformed ID to fail closed")
	}
}

func TestGate_CompanyRoles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	gate := authz.NewGate(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	admin := fixtures.CreateUser(ctx, "Admin", "admin@example.com")
	staff := fixtures.CreateUser(ctx, "Staff", "staff@example.com")
	member := fixtures.CreateUser(ctx, "Member", "member@example.com")
	pending := fixtures.CreateUser(ctx, "Pending", "pending@example.com")
	outsider := fixtures.CreateUser(ctx, "Outsider", "outsider@example.com")

	company := fixtures.CreateCompany(ctx, "Acme", nil, owner.ID)
	fixtures.AddCompanyMember(ctx, company.ID, admin.ID, models.RoleAdmin)
	fixtures.AddCompanyMember(ctx, company.ID, staff.ID, models.RoleStaff)
	fixtures.AddCompanyMember(ctx, company.ID, member.ID, models.RoleMember)
	fixtures.AddPendingCompanyMember(ctx, company.ID, pending.ID)

	tests := []struct {
		name                      string
		user                      primitive.ObjectID
		manage, admin, membership bool
	}{
		{"owner", owner.ID, true, true, true},
		{"admin", admin.ID, true, true, true},
		{"staff", staff.ID, true, false, true},
		{"member", member.ID, false, false, true},
		{"pending", pending.ID, false, false, false},
		{"outsider", outsider.ID, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gate.CanManageCompany(ctx, company, tt.user)
			if err != nil || got != tt.manage {
				t.Errorf("CanManageCompany: got (%v, %v), want %v", got, err, tt.manage)
			}
			got, err = gate.IsCompanyAdmin(ctx, company, tt.user)
			if err != nil || got != tt.admin {
				t.Errorf("IsCompanyAdmin: got (%v, %v), want %v", got, err, tt.admin)
			}
			got, err = gate.CanAdministerCompany(ctx, company, tt.user)
			if err != nil || got != tt.admin {
				t.Errorf("CanAdministerCompany: got (%v, %v), want %v", got, err, tt.admin)
			}
			got, err = gate.IsCompanyMember(ctx, company, tt.user)
			if err != nil || got != tt.membership {
				t.Errorf("IsCompanyMember: got (%v, %v), want %v", got, err, tt.membership)
			}
		})
	}
}

func TestGate_EnterpriseRoles(t *testing.T) {
	db := testutil.SetupTestDB(t)
	gate := authz.NewGate(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := fixtures.CreateUser(ctx, "Owner", "owner@example.com")
	entAdmin := fixtures.CreateUser(ctx, "Ent Admin", "entadmin@example.com")
	entMember := fixtures.CreateUser(ctx, "Ent Member", "entmember@example.com")
	outsider := fixtures.CreateUser(ctx, "Outsider", "outsider@example.com")

	ent := fixtures.CreateEnterprise(ctx, "Northwind", owner.ID)
	fixtures.AddEnterpriseMember(ctx, ent.ID, entAdmin.ID, models.RoleAdmin)
	fixtures.AddEnterpriseMember(ctx, ent.ID, entMember.ID, models.RoleMember)

	companyOwner := fixtures.CreateUser(ctx, "Company Owner", "co@example.com")
	company := fixtures.CreateCompany(ctx, "Acme", &ent.ID, companyOwner.ID)

	tests := []struct {
		name              string
		user              primitive.ObjectID
		manageEnt, member bool
		administerCompany bool
	}{
		{"enterprise owner", owner.ID, true, true, true},
		{"enterprise admin", entAdmin.ID, true, true, true},
		{"enterprise member", entMember.ID, false, true, false},
		{"outsider", outsider.ID, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gate.CanManageEnterprise(ctx, ent.ID, tt.user)
			if err != nil || got != tt.manageEnt {
				t.Errorf("CanManageEnterprise: got (%v, %v), want %v", got, err, tt.manageEnt)
			}
			got, err = gate.IsEnterpriseMember(ctx, ent.ID, tt.user)
			if err != nil || got != tt.member {
				t.Errorf("IsEnterpriseMember: got (%v, %v), want %v", got, err, tt.member)
			}
			got, err = gate.CanAdministerCompany(ctx, company, tt.user)
			if err != nil || got != tt.administerCompany {
				t.Errorf("CanAdministerCompany: got (%v, %v), want %v", got, err, tt.administerCompany)
			}
			// Enterprise roles never grant company staff rights.
			got, err = gate.CanManageCompany(ctx, company, tt.user)
			if err != nil || got {
				t.Errorf("CanManageCompany: got (%v, %v), want false", got, err)
			}
		})
	}
}
