// internal/app/store/enterprises/enterprisestore.go
package enterprisestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/seatplan/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Store manages enterprises and their memberships.
type Store struct {
	c       *mongo.Collection
	members *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:       db.Collection("enterprises"),
		members: db.Collection("enterprise_memberships"),
	}
}

var ErrDuplicateMembership = errors.New("user is already a member of this enterprise")

// GetByID loads an enterprise, or returns mongo.ErrNoDocuments.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Enterprise, error) {
	var e models.Enterprise
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an enterprise.
func (s *Store) Create(ctx context.Context, e models.Enterprise) (models.Enterprise, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	e.NameCI = text.Fold(e.Name)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, e); err != nil {
		return models.Enterprise{}, err
	}
	return e, nil
}

// AddMember inserts an enterprise membership.
func (s *Store) AddMember(ctx context.Context, m models.EnterpriseMembership) (models.EnterpriseMembership, error) {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.Status == "" {
		m.Status = models.StatusActive
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := s.members.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.EnterpriseMembership{}, ErrDuplicateMembership
		}
		return models.EnterpriseMembership{}, err
	}
	return m, nil
}

// GetMembership returns the user's membership in the enterprise, or
// mongo.ErrNoDocuments.
func (s *Store) GetMembership(ctx context.Context, enterpriseID, userID primitive.ObjectID) (*models.EnterpriseMembership, error) {
	var m models.EnterpriseMembership
	err := s.members.FindOne(ctx, bson.M{"enterprise_id": enterpriseID, "user_id": userID}).Decode(&m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
