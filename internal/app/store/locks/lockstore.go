// internal/app/store/locks/lockstore.go
package lockstore

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store manages lease locks in allocation_locks. A lock document is keyed
// by the resource name and is free once expires_at has passed.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("allocation_locks"), now: time.Now}
}

// TryAcquire takes the lock named key for holder until now+lease. It returns
// false (and no error) when another holder owns an unexpired lease.
func (s *Store) TryAcquire(ctx context.Context, key, holder string, lease time.Duration) (bool, error) {
	now := s.now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": key, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{
			"holder":      holder,
			"acquired_at": now,
			"expires_at":  now.Add(lease),
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// The filter missed because the lease is live, so the upsert
		// collided with the existing _id.
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release frees the lock if holder still owns it.
func (s *Store) Release(ctx context.Context, key, holder string) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": key, "holder": holder})
	return err
}

// Holder returns the current holder of key, or "" when the lock is free.
func (s *Store) Holder(ctx context.Context, key string) (string, error) {
	var doc struct {
		Holder    string    `bson:"holder"`
		ExpiresAt time.Time `bson:"expires_at"`
	}
	err := s.c.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !doc.ExpiresAt.After(s.now().UTC()) {
		return "", nil
	}
	return doc.Holder, nil
}

// DeleteExpired removes locks whose lease ended more than grace ago.
// TryAcquire already takes over expired leases; this only keeps the
// collection small.
func (s *Store) DeleteExpired(ctx context.Context, grace time.Duration) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.now().UTC().Add(-grace)}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
