// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.

The unique indexes here back the allocation invariants: one membership per
(user, company), one seat per (user, company, project) and one rank/project
per preference list.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name   string
		ensure func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"enterprise_memberships", ensureEnterpriseMemberships},
		{"companies", ensureCompanies},
		{"memberships", ensureMemberships},
		{"projects", ensureProjects},
		{"preferences", ensurePreferences},
		{"user_preferences", ensureUserPreferences},
		{"assignments", ensureAssignments},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.ensure(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	av := false
	bv := false
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// Mongo sometimes returns IndexOptionsConflict when an index with the same
// keys already exists under a different name (or options differ).
func isOptionsConflictErr(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "IndexOptionsConflict")
}

// listExisting returns the collection's indexes keyed by key signature.
func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{}
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// A collection that does not exist yet has no indexes.
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// createErr turns a CreateOne failure into a readable problem string.
func createErr(coll *mongo.Collection, name, sig string, unique bool, err error) string {
	if isDuplicateKeyErr(err) && unique {
		return fmt.Sprintf("%s(%s): cannot create unique index on {%s} (duplicates present)", coll.Name(), name, sig)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

// replace drops an index and creates the desired one in its place.
func replace(ctx context.Context, coll *mongo.Collection, old string, m mongo.IndexModel) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		return fmt.Errorf("drop %s: %w", old, err)
	}
	_, err := coll.Indexes().CreateOne(ctx, m)
	return err
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		var uniquePtr *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			uniquePtr = m.Options.Unique
		}
		unique := uniquePtr != nil && *uniquePtr
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique))

		ex, found := listExisting(ctx, coll)[sig]
		switch {
		case found && sameBoolPtr(uniquePtr, ex.Unique) && (name == "" || ex.Name == name):
			log.Debug("reusing existing index")
			continue

		case found:
			// Same keys under another name, or uniqueness changed.
			log.Info("replacing existing index", zap.String("existing", ex.Name))
			if err := replace(ctx, coll, ex.Name, m); err != nil {
				log.Warn("index replace failed", zap.Error(err))
				errs = append(errs, createErr(coll, name, sig, unique, err))
				continue
			}

		default:
			_, err := coll.Indexes().CreateOne(ctx, m)
			if err != nil && isOptionsConflictErr(err) {
				// Lost a race with another instance; reconcile against what it built.
				if again, ok := listExisting(ctx, coll)[sig]; ok {
					if sameBoolPtr(uniquePtr, again.Unique) {
						log.Info("reusing existing index (post-conflict)", zap.String("existing", again.Name))
						continue
					}
					err = replace(ctx, coll, again.Name, m)
				}
			}
			if err != nil {
				log.Warn("index ensure failed", zap.Error(err))
				errs = append(errs, createErr(coll, name, sig, unique, err))
				continue
			}
		}

		log.Info("index ensured", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_email"),
		},
	})
}

func ensureEnterpriseMemberships(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("enterprise_memberships"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "enterprise_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_entmember_enterprise_user"),
		},
		// "Which enterprises is this user in?"
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetName("idx_entmember_user"),
		},
	})
}

func ensureCompanies(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("companies"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "enterprise_id", Value: 1}},
			Options: options.Index().SetName("idx_companies_enterprise"),
		},
	})
}

func ensureMemberships(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("memberships"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "company_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_memberships_user_company"),
		},
		// Pool order: active members of a company by created_at, _id.
		{
			Keys: bson.D{
				{Key: "company_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_memberships_company_status_created"),
		},
	})
}

func ensureProjects(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("projects"), []mongo.IndexModel{
		// Listing order for active projects.
		{
			Keys: bson.D{
				{Key: "company_id", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "created_at", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName("idx_projects_company_active_created"),
		},
	})
}

func ensurePreferences(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("preferences"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "company_id", Value: 1},
				{Key: "user_id", Value: 1},
				{Key: "rank", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_prefs_company_user_rank"),
		},
		{
			Keys: bson.D{
				{Key: "company_id", Value: 1},
				{Key: "user_id", Value: 1},
				{Key: "project_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_prefs_company_user_project"),
		},
	})
}

func ensureUserPreferences(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("user_preferences"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "enterprise_id", Value: 1},
				{Key: "status", Value: 1},
				{Key: "created_at", Value: 1},
			},
			Options: options.Index().SetName("idx_userprefs_enterprise_status_created"),
		},
	})
}

func ensureAssignments(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("assignments"), []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "user_id", Value: 1},
				{Key: "company_id", Value: 1},
				{Key: "project_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uniq_assignments_user_company_project"),
		},
		// Per-company seat counts.
		{
			Keys: bson.D{
				{Key: "company_id", Value: 1},
				{Key: "project_id", Value: 1},
			},
			Options: options.Index().SetName("idx_assignments_company_project"),
		},
		{
			Keys:    bson.D{{Key: "project_id", Value: 1}},
			Options: options.Index().SetName("idx_assignments_project"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "company_id", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_company_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}
