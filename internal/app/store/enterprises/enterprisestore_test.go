package enterprisestore_test

import (
	"testing"

	enterprisestore "github.com/dalemusser/seatplan/internal/app/store/enterprises"
	"github.com/dalemusser/seatplan/internal/app/system/indexes"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"github.com/dalemusser/seatplan/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := enterprisestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e, err := store.Create(ctx, models.Enterprise{Name: "Northwind", OwnerUserID: primitive.NewObjectID()})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if e.NameCI == "" {
		t.Error("expected NameCI to be set")
	}

	got, err := store.GetByID(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Northwind" {
		t.Errorf("Name: got %q, want %q", got.Name, "Northwind")
	}
}

func TestStore_Membership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := enterprisestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	entID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	m, err := store.AddMember(ctx, models.EnterpriseMembership{EnterpriseID: entID, UserID: userID, Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if m.Status != models.StatusActive {
		t.Errorf("Status: got %q, want %q", m.Status, models.StatusActive)
	}

	_, err = store.AddMember(ctx, models.EnterpriseMembership{EnterpriseID: entID, UserID: userID, Role: models.RoleMember})
	if err != enterprisestore.ErrDuplicateMembership {
		t.Errorf("expected ErrDuplicateMembership, got %v", err)
	}

	got, err := store.GetMembership(ctx, entID, userID)
	if err != nil {
		t.Fatalf("GetMembership failed: %v", err)
	}
	if got.Role != models.RoleAdmin {
		t.Errorf("Role: got %q, want %q", got.Role, models.RoleAdmin)
	}

	if _, err := store.GetMembership(ctx, entID, primitive.NewObjectID()); err != mongo.ErrNoDocuments {
		t.Errorf("expected mongo.ErrNoDocuments, got %v", err)
	}
}
