// Package txn runs a group of MongoDB writes in a transaction when the
// deployment supports it, and falls back to running them in order when it
// does not (standalone servers used in development and tests).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// dupRetries is how many times Run re-runs a transaction that a concurrent
// upsert aborted with a duplicate-key error.
const dupRetries = 1

// Run executes fn inside a transaction on db's client.
//
// A duplicate-key error aborts the transaction; Run then runs fn again in a
// fresh one, where the upsert that lost the race matches the winner's
// document. If the server rejects transactions (standalone mongod), fn is
// executed once more without a transaction. Callers that depend on the
// fallback must order their writes so a partial run can be safely re-run.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return runPlain(ctx, log, fn, err)
		}
		return err
	}
	defer sess.EndSession(ctx)

	for attempt := 0; ; attempt++ {
		_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			return nil, fn(sc)
		})
		switch {
		case err == nil:
			return nil
		case IsNotSupported(err):
			return runPlain(ctx, log, fn, err)
		case attempt < dupRetries && mongo.IsDuplicateKeyError(err):
			if log != nil {
				log.Debug("transaction lost an upsert race; retrying", zap.Error(err))
			}
			continue
		}
		return err
	}
}

// InTransaction reports whether ctx carries the session of a Run
// transaction. Stores use it to decide whether a duplicate-key error can be
// absorbed in place or must abort the transaction so Run can retry.
func InTransaction(ctx context.Context) bool {
	return mongo.SessionFromContext(ctx) != nil
}

func runPlain(ctx context.Context, log *zap.Logger, fn func(ctx context.Context) error, cause error) error {
	if log != nil {
		log.Debug("transactions unavailable; running writes without transaction", zap.Error(cause))
	}
	return fn(ctx)
}

// notSupportedCodes are server error codes returned when a deployment
// cannot run multi-document transactions.
var notSupportedCodes = map[int32]bool{
	20:  true, // IllegalOperation
	51:  true,
	263: true, // OperationNotSupportedInTransaction
}

// IsNotSupported reports whether err means the server does not support
// transactions or sessions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) && notSupportedCodes[ce.Code] {
		return true
	}

	msg := strings.ToLower(err.Error())
	has := func(s string) bool { return strings.Contains(msg, s) }

	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}
