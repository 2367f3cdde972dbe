// internal/app/store/preferences/preferencestore.go
package preferencestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/seatplan/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages ranked company preferences.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("preferences")}
}

// ErrDuplicateRank is returned when a list reuses a rank or a project.
var ErrDuplicateRank = errors.New("preference list repeats a rank or project")

// Choice is one entry of a submitted list.
type Choice struct {
	ProjectID primitive.ObjectID
	Rank      int
}

var byRank = bson.D{{Key: "rank", Value: 1}}

// ListByCompany returns every preference in a company, ordered by user then rank.
func (s *Store) ListByCompany(ctx context.Context, companyID primitive.ObjectID) ([]models.Preference, error) {
	opts := options.Find().SetSort(bson.D{{Key: "user_id", Value: 1}, {Key: "rank", Value: 1}})
	return s.find(ctx, bson.M{"company_id": companyID}, opts)
}

// ListForUser returns one user's list in rank order.
func (s *Store) ListForUser(ctx context.Context, companyID, userID primitive.ObjectID) ([]models.Preference, error) {
	return s.find(ctx, bson.M{"company_id": companyID, "user_id": userID}, options.Find().SetSort(byRank))
}

// Replace deletes the user's current list and inserts the new one.
// Run it inside txn.Run so readers never see a half-written list.
func (s *Store) Replace(ctx context.Context, companyID, userID primitive.ObjectID, choices []Choice) ([]models.Preference, error) {
	if _, err := s.DeleteForUser(ctx, companyID, userID); err != nil {
		return nil, err
	}
	if len(choices) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	prefs := make([]models.Preference, 0, len(choices))
	docs := make([]interface{}, 0, len(choices))
	for _, ch := range choices {
		p := models.Preference{
			ID:        primitive.NewObjectID(),
			CompanyID: companyID,
			UserID:    userID,
			ProjectID: ch.ProjectID,
			Rank:      ch.Rank,
			Status:    models.PreferencePending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		prefs = append(prefs, p)
		docs = append(docs, p)
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, ErrDuplicateRank
		}
		return nil, err
	}
	return prefs, nil
}

// DeleteForUser removes a user's list in a company.
func (s *Store) DeleteForUser(ctx context.Context, companyID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"company_id": companyID, "user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// MarkAllocated flags the user's preference for projectID as allocated.
func (s *Store) MarkAllocated(ctx context.Context, companyID, userID, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"company_id": companyID, "user_id": userID, "project_id": projectID},
		bson.M{"$set": bson.M{"status": models.PreferenceAllocated, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Preference, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Preference
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
