// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	lockstore "github.com/dalemusser/seatplan/internal/app/store/locks"
	"go.uber.org/zap"
)

// Job is a unit of periodic background work.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// StaleLockCleanupJob creates a job that removes commit locks whose lease
// ended more than grace ago. Locks left by crashed commits are harmless
// (the next commit takes them over) but would otherwise accumulate.
func StaleLockCleanupJob(locks *lockstore.Store, logger *zap.Logger, grace time.Duration) Job {
	return Job{
		Name:     "stale-lock-cleanup",
		Interval: 10 * time.Minute,
		Run: func(ctx context.Context) error {
			count, err := locks.DeleteExpired(ctx, grace)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Info("removed stale allocation locks",
					zap.Int64("count", count),
					zap.Duration("grace", grace))
			}
			return nil
		},
	}
}
