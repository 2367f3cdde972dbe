package preferencestore_test

import (
	"testing"

	preferencestore "github.com/dalemusser/seatplan/internal/app/store/preferences"
	"github.com/dalemusser/seatplan/internal/app/system/indexes"
	"github.com/dalemusser/seatplan/internal/domain/models"
	"github.com/dalemusser/seatplan/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Replace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := preferencestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	companyID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	p1, p2, p3 := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	fixtures.AddPreference(ctx, companyID, userID, p3, 1)

	got, err := store.Replace(ctx, companyID, userID, []preferencestore.Choice{
		{ProjectID: p2, Rank: 2},
		{ProjectID: p1, Rank: 1},
	})
	if err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Replace returned %d prefs, want 2", len(got))
	}

	list, err := store.ListForUser(ctx, companyID, userID)
	if err != nil {
		t.Fatalf("ListForUser failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListForUser: got %d prefs, want 2", len(list))
	}
	if list[0].ProjectID != p1 || list[0].Rank != 1 {
		t.Errorf("first: got project=%s rank=%d, want project=%s rank=1", list[0].ProjectID.Hex(), list[0].Rank, p1.Hex())
	}
	if list[1].ProjectID != p2 || list[1].Rank != 2 {
		t.Errorf("second: got project=%s rank=%d, want project=%s rank=2", list[1].ProjectID.Hex(), list[1].Rank, p2.Hex())
	}
	for _, p := range list {
		if p.Status != models.PreferencePending {
			t.Errorf("Status: got %q, want %q", p.Status, models.PreferencePending)
		}
	}
}

func TestStore_Replace_DuplicateRank(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := preferencestore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := store.Replace(ctx, primitive.NewObjectID(), primitive.NewObjectID(), []preferencestore.Choice{
		{ProjectID: primitive.NewObjectID(), Rank: 1},
		{ProjectID: primitive.NewObjectID(), Rank: 1},
	})
	if err != preferencestore.ErrDuplicateRank {
		t.Errorf("expected ErrDuplicateRank, got %v", err)
	}
}

func TestStore_Replace_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := preferencestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	companyID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	fixtures.AddPreference(ctx, companyID, userID, primitive.NewObjectID(), 1)

	if _, err := store.Replace(ctx, companyID, userID, nil); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}
	list, _ := store.ListForUser(ctx, companyID, userID)
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
}

func TestStore_ListByCompany(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := preferencestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	companyID := primitive.NewObjectID()
	u1, u2 := primitive.NewObjectID(), primitive.NewObjectID()
	fixtures.AddPreference(ctx, companyID, u2, primitive.NewObjectID(), 2)
	fixtures.AddPreference(ctx, companyID, u1, primitive.NewObjectID(), 1)
	fixtures.AddPreference(ctx, companyID, u2, primitive.NewObjectID(), 1)
	fixtures.AddPreference(ctx, primitive.NewObjectID(), u1, primitive.NewObjectID(), 1)

	list, err := store.ListByCompany(ctx, companyID)
	if err != nil {
		t.Fatalf("ListByCompany failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListByCompany: got %d, want 3", len(list))
	}
	if list[0].UserID != u1 {
		t.Errorf("first user: got %s, want %s", list[0].UserID.Hex(), u1.Hex())
	}
	if list[1].UserID != u2 || list[1].Rank != 1 || list[2].Rank != 2 {
		t.Errorf("u2 ranks not ordered: got %d,%d", list[1].Rank, list[2].Rank)
	}
}

func TestStore_MarkAllocated_And_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := preferencestore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	companyID, userID := primitive.NewObjectID(), primitive.NewObjectID()
	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()
	fixtures.AddPreference(ctx, companyID, userID, p1, 1)
	fixtures.AddPreference(ctx, companyID, userID, p2, 2)

	n, err := store.MarkAllocated(ctx, companyID, userID, p2)
	if err != nil {
		t.Fatalf("MarkAllocated failed: %v", err)
	}
	if n != 1 {
		t.Errorf("modified: got %d, want 1", n)
	}

	list, _ := store.ListForUser(ctx, companyID, userID)
	if list[0].Status != models.PreferencePending || list[1].Status != models.PreferenceAllocated {
		t.Errorf("statuses: got %q,%q", list[0].Status, list[1].Status)
	}

	deleted, err := store.DeleteForUser(ctx, companyID, userID)
	if err != nil {
		t.Fatalf("DeleteForUser failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted: got %d, want 2", deleted)
	}
}
