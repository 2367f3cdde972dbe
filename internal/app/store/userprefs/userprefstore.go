// internal/app/store/userprefs/userprefstore.go
package userprefstore

import (
	"context"
	"time"

	"github.com/dalemusser/seatplan/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages enterprise preferences (pending placement requests).
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("user_preferences")}
}

// Create inserts a pending enterprise preference.
func (s *Store) Create(ctx context.Context, p models.EnterprisePreference) (models.EnterprisePreference, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Status == "" {
		p.Status = models.PreferencePending
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.EnterprisePreference{}, err
	}
	return p, nil
}

// GetByID loads an enterprise preference, or returns mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EnterprisePreference, error) {
	var p models.EnterprisePreference
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPending returns the enterprise's pending preferences, oldest first.
func (s *Store) ListPending(ctx context.Context, enterpriseID primitive.ObjectID) ([]models.EnterprisePreference, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"enterprise_id": enterpriseID, "status": models.PreferencePending}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.EnterprisePreference
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkAllocated moves a pending preference to allocated. It reports false
// when the preference was no longer pending.
func (s *Store) MarkAllocated(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.PreferencePending},
		bson.M{"$set": bson.M{"status": models.PreferenceAllocated, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
