// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Categories.
const (
	CategoryAllocation = "allocation"
	CategorySecurity   = "security"
)

// Allocation event types.
const (
	EventBulkCommitted        = "bulk_committed"
	EventPreferenceCommitted  = "preference_committed"
	EventMemberAllocated      = "member_allocated"
	EventMemberUnallocated    = "member_unallocated"
	EventSelfAssigned         = "self_assigned"
	EventPreferencesSubmitted = "preferences_submitted"
	EventPreferencesCleared   = "preferences_cleared"
	EventCommitRejected       = "commit_rejected"
)

// Security event types.
const (
	EventAccessDenied = "access_denied"
)

// DefaultLimit and MaxLimit bound a single Query page.
const (
	DefaultLimit int64 = 50
	MaxLimit     int64 = 500
)

// Event is one row of the allocation audit trail.
type Event struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty"`
	Timestamp    time.Time           `bson:"timestamp"`
	EnterpriseID *primitive.ObjectID `bson:"enterprise_id,omitempty"`
	CompanyID    *primitive.ObjectID `bson:"company_id,omitempty"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	UserID  *primitive.ObjectID `bson:"user_id,omitempty"`  // affected member
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"` // who acted; nil for self-service

	IP        string `bson:"ip"`
	UserAgent string `bson:"user_agent,omitempty"`

	Success       bool   `bson:"success"`
	FailureReason string `bson:"failure_reason,omitempty"`

	// Details holds per-type extras such as project_id or commit_id.
	Details map[string]string `bson:"details,omitempty"`
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	EnterpriseID *primitive.ObjectID
	CompanyID    *primitive.ObjectID
	UserID       *primitive.ObjectID
	ActorID      *primitive.ObjectID
	Category     string
	EventType    string
	Success      *bool
	Since        time.Time
	Until        time.Time

	Limit  int64
	Offset int64
}

func (f Filter) bson() bson.M {
	q := bson.M{}
	if f.EnterpriseID != nil {
		q["enterprise_id"] = *f.EnterpriseID
	}
	if f.CompanyID != nil {
		q["company_id"] = *f.CompanyID
	}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.ActorID != nil {
		q["actor_id"] = *f.ActorID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.Success != nil {
		q["success"] = *f.Success
	}
	if !f.Since.IsZero() || !f.Until.IsZero() {
		ts := bson.M{}
		if !f.Since.IsZero() {
			ts["$gte"] = f.Since
		}
		if !f.Until.IsZero() {
			ts["$lte"] = f.Until
		}
		q["timestamp"] = ts
	}
	return q
}

// limit clamps f.Limit to (0, MaxLimit], defaulting to DefaultLimit.
func (f Filter) limit() int64 {
	switch {
	case f.Limit <= 0:
		return DefaultLimit
	case f.Limit > MaxLimit:
		return MaxLimit
	}
	return f.Limit
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log inserts event, assigning an ID and timestamp when unset.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns one page of matching events, newest first.
func (s *Store) Query(ctx context.Context, f Filter) ([]Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(f.limit()).
		SetSkip(max(f.Offset, 0))

	cur, err := s.c.Find(ctx, f.bson(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Event{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns how many events match f, ignoring its paging.
func (s *Store) Count(ctx context.Context, f Filter) (int64, error) {
	return s.c.CountDocuments(ctx, f.bson())
}
