// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/seatplan/internal/app/system/txn"
	"github.com/dalemusser/seatplan/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages company memberships.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

var errBadRole = errors.New(`role must be "owner", "admin", "staff" or "member"`)

var ErrDuplicateMembership = errors.New("user is already a member of this company")

// managerRoles never enter the allocation pool.
var managerRoles = []string{models.RoleOwner, models.RoleAdmin, models.RoleStaff}

func validRole(role string) bool {
	switch role {
	case models.RoleOwner, models.RoleAdmin, models.RoleStaff, models.RoleMember:
		return true
	}
	return false
}

// Add inserts a membership. Missing status and allocation status default to
// active and unallocated.
func (s *Store) Add(ctx context.Context, m models.Membership) (models.Membership, error) {
	if !validRole(m.Role) {
		return models.Membership{}, errBadRole
	}
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	if m.AllocationStatus == "" {
		m.AllocationStatus = models.AllocationUnallocated
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, ErrDuplicateMembership
		}
		return models.Membership{}, err
	}
	return m, nil
}

// Get returns the membership for (companyID, userID), or mongo.ErrNoDocuments.
func (s *Store) Get(ctx context.Context, companyID, userID primitive.ObjectID) (*models.Membership, error) {
	var m models.Membership
	if err := s.c.FindOne(ctx, bson.M{"company_id": companyID, "user_id": userID}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Ensure creates an active member membership for (companyID, userID) if none
// exists. It reports whether a document was created. An existing membership
// is left untouched.
func (s *Store) Ensure(ctx context.Context, companyID, userID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"company_id": companyID, "user_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"role":              models.RoleMember,
			"status":            models.StatusActive,
			"allocation_status": models.AllocationUnallocated,
			"created_at":        time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// Two concurrent upserts can race on the unique index. Outside a
		// transaction the winner's document is what the loser wanted; inside
		// one the abort must reach txn.Run, which retries.
		if wafflemongo.IsDup(err) && !txn.InTransaction(ctx) {
			return false, nil
		}
		return false, err
	}
	return res.UpsertedCount > 0, nil
}

// SetAllocationStatus sets allocation_status for the given members of a company.
func (s *Store) SetAllocationStatus(ctx context.Context, companyID primitive.ObjectID, userIDs []primitive.ObjectID, status string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"company_id": companyID, "user_id": bson.M{"$in": userIDs}},
		bson.M{"$set": bson.M{"allocation_status": status}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ListPool returns the active, non-manager memberships of a company in pool
// order: created_at, then _id.
func (s *Store) ListPool(ctx context.Context, companyID primitive.ObjectID) ([]models.Membership, error) {
	filter := bson.M{
		"company_id": companyID,
		"status":     models.StatusActive,
		"role":       bson.M{"$nin": managerRoles},
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByCompany returns the count of memberships for a company, optionally filtered by role.
// If role is empty, counts all memberships.
func (s *Store) CountByCompany(ctx context.Context, companyID primitive.ObjectID, role string) (int64, error) {
	filter := bson.M{"company_id": companyID}
	if role != "" {
		filter["role"] = role
	}
	return s.c.CountDocuments(ctx, filter)
}
