// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/seatplan/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates the allocation collections (if missing) and attaches
// JSON-Schema validators. Deployments that reject collMod (some DocumentDB
// versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if _, err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema, logger); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("projects", projectsSchema())
	ensure("memberships", membershipsSchema())
	ensure("preferences", preferencesSchema())
	ensure("user_preferences", userPreferencesSchema())
	ensure("assignments", assignmentsSchema())

	// Written by the lock store with upserts; no validator.
	ensure("allocation_locks", nil)

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ensureCollection idempotently makes sure name exists.
// created is true only if this call created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		logger.Debug("collection exists", zap.String("collection", name))
		return false, nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExistsErr(err) {
			logger.Debug("collection exists", zap.String("collection", name))
			return false, nil
		}
		logger.Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	logger.Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M, logger *zap.Logger) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	logger.Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func projectsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"company_id", "name", "max_seats", "is_active"},
			"properties": bson.M{
				"company_id": bson.M{"bsonType": "objectId"},
				"name":       bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
				"max_seats":  bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
				"is_active":  bson.M{"bsonType": "bool"},
			},
		},
	}
}

func membershipsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"company_id", "user_id", "role", "status"},
			"properties": bson.M{
				"company_id": bson.M{"bsonType": "objectId"},
				"user_id":    bson.M{"bsonType": "objectId"},
				"role":       bson.M{"enum": bson.A{models.RoleOwner, models.RoleAdmin, models.RoleStaff, models.RoleMember}},
				"status":     bson.M{"enum": bson.A{models.StatusActive, models.StatusPending}},
				"allocation_status": bson.M{"enum": bson.A{
					models.AllocationUnallocated,
					models.AllocationPreferenceSubmitted,
					models.AllocationAllocated,
				}},
			},
		},
	}
}

func preferencesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"company_id", "user_id", "project_id", "rank", "status"},
			"properties": bson.M{
				"company_id": bson.M{"bsonType": "objectId"},
				"user_id":    bson.M{"bsonType": "objectId"},
				"project_id": bson.M{"bsonType": "objectId"},
				"rank":       bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1},
				"status":     preferenceStatusEnum(),
			},
		},
	}
}

func userPreferencesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"enterprise_id", "user_id", "status"},
			"properties": bson.M{
				"enterprise_id": bson.M{"bsonType": "objectId"},
				"user_id":       bson.M{"bsonType": "objectId"},
				"company_id":    bson.M{"bsonType": "objectId"},
				"project_id":    bson.M{"bsonType": "objectId"},
				"status":        preferenceStatusEnum(),
			},
		},
	}
}

func assignmentsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "company_id", "project_id", "assigned_at", "assigned_by"},
			"properties": bson.M{
				"user_id":             bson.M{"bsonType": "objectId"},
				"company_id":          bson.M{"bsonType": "objectId"},
				"project_id":          bson.M{"bsonType": "objectId"},
				"assigned_at":         bson.M{"bsonType": "date"},
				"assigned_by_user_id": bson.M{"bsonType": "objectId"},
				"assigned_by":         bson.M{"enum": bson.A{models.AssignedByAdmin, models.AssignedByAuto, models.AssignedBySelf}},
				"commit_id":           bson.M{"bsonType": "string"},
			},
		},
	}
}

func preferenceStatusEnum() bson.M {
	return bson.M{"enum": bson.A{models.PreferencePending, models.PreferenceAllocated, models.PreferenceRejected}}
}
