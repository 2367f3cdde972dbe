// internal/app/store/projects/projectstore.go
package projectstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/seatplan/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages projects.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("projects")}
}

var errBadSeats = errors.New("max_seats must be greater than zero")

// listingOrder is the stable project order used for fallback placement.
var listingOrder = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// Create inserts a project.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	if p.MaxSeats <= 0 {
		return models.Project{}, errBadSeats
	}
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// GetInCompany loads a project that belongs to companyID, or returns
// mongo.ErrNoDocuments.
func (s *Store) GetInCompany(ctx context.Context, companyID, projectID primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": projectID, "company_id": companyID}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActive returns a company's active projects in listing order.
func (s *Store) ListActive(ctx context.Context, companyID primitive.ObjectID) ([]models.Project, error) {
	return s.find(ctx, bson.M{"company_id": companyID, "is_active": true})
}

// ListByCompany returns all of a company's projects in listing order.
func (s *Store) ListByCompany(ctx context.Context, companyID primitive.ObjectID) ([]models.Project, error) {
	return s.find(ctx, bson.M{"company_id": companyID})
}

// ListInCompany returns the projects among ids that belong to companyID.
func (s *Store) ListInCompany(ctx context.Context, companyID primitive.ObjectID, ids []primitive.ObjectID) ([]models.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"company_id": companyID, "_id": bson.M{"$in": ids}})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Project, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(listingOrder))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Project
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
