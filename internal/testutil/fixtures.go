package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/seatplan/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
//
// Each created document gets a created_at one millisecond after the previous
// one, so pool order and project-listing order follow creation order.
type Fixtures struct {
	db    *mongo.Database
	t     *testing.T
	clock time.Time
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t, clock: time.Now().UTC().Truncate(time.Millisecond)}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) tick() time.Time {
	f.clock = f.clock.Add(time.Millisecond)
	return f.clock
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc interface{}) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateUser creates an active user.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	now := f.tick()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      email,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateEnterprise creates an enterprise and makes owner its owner member.
func (f *Fixtures) CreateEnterprise(ctx context.Context, name string, owner primitive.ObjectID) models.Enterprise {
	f.t.Helper()
	e := models.Enterprise{
		ID:          primitive.NewObjectID(),
		Name:        name,
		NameCI:      text.Fold(name),
		OwnerUserID: owner,
		CreatedAt:   f.tick(),
	}
	f.insert(ctx, "enterprises", e)
	f.AddEnterpriseMember(ctx, e.ID, owner, models.RoleOwner)
	return e
}

// AddEnterpriseMember adds an active enterprise membership.
func (f *Fixtures) AddEnterpriseMember(ctx context.Context, enterpriseID, userID primitive.ObjectID, role string) models.EnterpriseMembership {
	f.t.Helper()
	m := models.EnterpriseMembership{
		ID:           primitive.NewObjectID(),
		EnterpriseID: enterpriseID,
		UserID:       userID,
		Role:         role,
		Status:       models.StatusActive,
		CreatedAt:    f.tick(),
	}
	f.insert(ctx, "enterprise_memberships", m)
	return m
}

// CreateCompany creates a company, optionally under an enterprise.
func (f *Fixtures) CreateCompany(ctx context.Context, name string, enterpriseID *primitive.ObjectID, owner primitive.ObjectID) models.Company {
	f.t.Helper()
	c := models.Company{
		ID:           primitive.NewObjectID(),
		Name:         name,
		NameCI:       text.Fold(name),
		EnterpriseID: enterpriseID,
		OwnerUserID:  owner,
		CreatedAt:    f.tick(),
	}
	f.insert(ctx, "companies", c)
	return c
}

// AddCompanyMember adds an active company membership.
func (f *Fixtures) AddCompanyMember(ctx context.Context, companyID, userID primitive.ObjectID, role string) models.Membership {
	f.t.Helper()
	m := models.Membership{
		ID:               primitive.NewObjectID(),
		CompanyID:        companyID,
		UserID:           userID,
		Role:             role,
		Status:           models.StatusActive,
		AllocationStatus: models.AllocationUnallocated,
		CreatedAt:        f.tick(),
	}
	f.insert(ctx, "memberships", m)
	return m
}

// AddPendingCompanyMember adds a membership that is not yet active.
func (f *Fixtures) AddPendingCompanyMember(ctx context.Context, companyID, userID primitive.ObjectID) models.Membership {
	f.t.Helper()
	m := models.Membership{
		ID:               primitive.NewObjectID(),
		CompanyID:        companyID,
		UserID:           userID,
		Role:             models.RoleMember,
		Status:           models.StatusPending,
		AllocationStatus: models.AllocationUnallocated,
		CreatedAt:        f.tick(),
	}
	f.insert(ctx, "memberships", m)
	return m
}

// CreateProject creates an active project.
func (f *Fixtures) CreateProject(ctx context.Context, companyID primitive.ObjectID, name string, maxSeats int) models.Project {
	f.t.Helper()
	return f.createProject(ctx, companyID, name, maxSeats, true)
}

// CreateInactiveProject creates a project that is excluded from allocation.
func (f *Fixtures) CreateInactiveProject(ctx context.Context, companyID primitive.ObjectID, name string, maxSeats int) models.Project {
	f.t.Helper()
	return f.createProject(ctx, companyID, name, maxSeats, false)
}

func (f *Fixtures) createProject(ctx context.Context, companyID primitive.ObjectID, name string, maxSeats int, active bool) models.Project {
	f.t.Helper()
	p := models.Project{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		Name:      name,
		MaxSeats:  maxSeats,
		IsActive:  active,
		CreatedAt: f.tick(),
	}
	f.insert(ctx, "projects", p)
	return p
}

// AddPreference records one ranked choice.
func (f *Fixtures) AddPreference(ctx context.Context, companyID, userID, projectID primitive.ObjectID, rank int) models.Preference {
	f.t.Helper()
	now := f.tick()
	p := models.Preference{
		ID:        primitive.NewObjectID(),
		CompanyID: companyID,
		UserID:    userID,
		ProjectID: projectID,
		Rank:      rank,
		Status:    models.PreferencePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "preferences", p)
	return p
}

// CreateEnterprisePreference records a pending enterprise preference.
func (f *Fixtures) CreateEnterprisePreference(ctx context.Context, enterpriseID, userID primitive.ObjectID, companyID, projectID *primitive.ObjectID) models.EnterprisePreference {
	f.t.Helper()
	now := f.tick()
	p := models.EnterprisePreference{
		ID:           primitive.NewObjectID(),
		EnterpriseID: enterpriseID,
		UserID:       userID,
		CompanyID:    companyID,
		ProjectID:    projectID,
		Status:       models.PreferencePending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "user_preferences", p)
	return p
}

// CreateAssignment seats a user in a project directly.
func (f *Fixtures) CreateAssignment(ctx context.Context, companyID, userID, projectID primitive.ObjectID) models.Assignment {
	f.t.Helper()
	a := models.Assignment{
		ID:         primitive.NewObjectID(),
		UserID:     userID,
		CompanyID:  companyID,
		ProjectID:  projectID,
		AssignedAt: f.tick(),
		AssignedBy: models.AssignedByAdmin,
	}
	f.insert(ctx, "assignments", a)
	return a
}
