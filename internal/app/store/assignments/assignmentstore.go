// internal/app/store/assignments/assignmentstore.go
package assignmentstore

import (
	"context"

	"github.com/dalemusser/seatplan/internal/app/system/txn"
	"github.com/dalemusser/seatplan/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages seat assignments. Every write is keyed by
// (user_id, company_id, project_id) so repeated writes converge.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("assignments")}
}

func key(userID, companyID, projectID primitive.ObjectID) bson.M {
	return bson.M{"user_id": userID, "company_id": companyID, "project_id": projectID}
}

func insertDoc(a models.Assignment) bson.M {
	doc := bson.M{
		"assigned_at": a.AssignedAt,
		"assigned_by": a.AssignedBy,
	}
	if a.AssignedByUserID != nil {
		doc["assigned_by_user_id"] = *a.AssignedByUserID
	}
	if a.CommitID != "" {
		doc["commit_id"] = a.CommitID
	}
	return doc
}

// Upsert writes an assignment if none exists for its key and returns the
// stored document's ID. created is false when the seat was already held.
//
// Outside a transaction the loser of a concurrent upsert race reads the
// winner's document. Inside one the duplicate-key error is returned, since
// the server has aborted the transaction; txn.Run retries it.
func (s *Store) Upsert(ctx context.Context, a models.Assignment) (id primitive.ObjectID, created bool, err error) {
	res, err := s.c.UpdateOne(ctx,
		key(a.UserID, a.CompanyID, a.ProjectID),
		bson.M{"$setOnInsert": insertDoc(a)},
		options.Update().SetUpsert(true),
	)
	if err != nil && (!wafflemongo.IsDup(err) || txn.InTransaction(ctx)) {
		return primitive.NilObjectID, false, err
	}
	if err == nil && res.UpsertedID != nil {
		if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
			return oid, true, nil
		}
	}

	existing, err := s.Find(ctx, a.UserID, a.CompanyID, a.ProjectID)
	if err != nil {
		return primitive.NilObjectID, false, err
	}
	return existing.ID, false, nil
}

// UpsertMany writes every assignment with one ordered bulk write and
// returns how many were newly created.
func (s *Store) UpsertMany(ctx context.Context, as []models.Assignment) (int64, error) {
	if len(as) == 0 {
		return 0, nil
	}
	writes := make([]mongo.WriteModel, 0, len(as))
	for _, a := range as {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(key(a.UserID, a.CompanyID, a.ProjectID)).
			SetUpdate(bson.M{"$setOnInsert": insertDoc(a)}).
			SetUpsert(true))
	}
	res, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return 0, err
	}
	return res.UpsertedCount, nil
}

// Find loads the assignment for a key, or returns mongo.ErrNoDocuments.
func (s *Store) Find(ctx context.Context, userID, companyID, projectID primitive.ObjectID) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.c.FindOne(ctx, key(userID, companyID, projectID)).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Delete removes one assignment.
func (s *Store) Delete(ctx context.Context, userID, companyID, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, key(userID, companyID, projectID))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteForMembers removes every assignment the given users hold in a company.
func (s *Store) DeleteForMembers(ctx context.Context, companyID primitive.ObjectID, userIDs []primitive.ObjectID) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"company_id": companyID, "user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// CountByProject returns the number of seats taken in a project.
func (s *Store) CountByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"project_id": projectID})
}

// CountsByCompany returns project_id → seats taken for a company.
func (s *Store) CountsByCompany(ctx context.Context, companyID primitive.ObjectID) (map[primitive.ObjectID]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"company_id": companyID}}},
		{{Key: "$group", Value: bson.M{"_id": "$project_id", "n": bson.M{"$sum": 1}}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[primitive.ObjectID]int)
	for cur.Next(ctx) {
		var row struct {
			ProjectID primitive.ObjectID `bson:"_id"`
			N         int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ProjectID] = row.N
	}
	return out, cur.Err()
}

// CountForUser returns how many assignments a user holds across companies.
func (s *Store) CountForUser(ctx context.Context, userID primitive.ObjectID, companyIDs []primitive.ObjectID) (int64, error) {
	if len(companyIDs) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "company_id": bson.M{"$in": companyIDs}})
}

// ListByCompany returns a company's assignments ordered by project then user.
func (s *Store) ListByCompany(ctx context.Context, companyID primitive.ObjectID) ([]models.Assignment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "project_id", Value: 1}, {Key: "assigned_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"company_id": companyID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
