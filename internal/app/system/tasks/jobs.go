// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger deletes records older than a cutoff and reports how many went.
type Purger interface {
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// RateLimitCleanupJob creates a job that removes rate limit counters whose
// window opened more than retain ago. The collection's TTL index is the
// backstop; this keeps it small between TTL passes.
func RateLimitCleanupJob(p Purger, retain time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "ratelimit-cleanup",
		Interval: 15 * time.Minute,
		Delay:    time.Minute,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			deleted, err := p.PurgeStale(ctx, time.Now().Add(-retain))
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("cleaned up stale rate limit counters",
					zap.Int64("deleted", deleted))
			}
			return nil
		},
	}
}

// AuditRetentionJob creates a job that removes audit events older than retain.
func AuditRetentionJob(p Purger, retain time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "audit-retention",
		Interval: 24 * time.Hour,
		Delay:    5 * time.Minute,
		Timeout:  10 * time.Minute,
		Run: func(ctx context.Context) error {
			deleted, err := p.PurgeStale(ctx, time.Now().Add(-retain))
			if err != nil {
				return err
			}
			if deleted > 0 {
				logger.Info("removed expired audit events",
					zap.Int64("deleted", deleted))
			}
			return nil
		},
	}
}
