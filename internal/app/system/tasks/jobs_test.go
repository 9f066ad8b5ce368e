package tasks_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vicarhk/vicarapi/internal/app/system/tasks"
	"go.uber.org/zap"
)

type fakePurger struct {
	cutoff time.Time
	n      int64
	err    error
}

func (f *fakePurger) PurgeStale(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.n, f.err
}

func TestRateLimitCleanupJob(t *testing.T) {
	p := &fakePurger{n: 4}
	job := tasks.RateLimitCleanupJob(p, time.Hour, zap.NewNop())

	if job.Name != "ratelimit-cleanup" || job.Interval <= 0 {
		t.Errorf("job = %q every %v", job.Name, job.Interval)
	}

	before := time.Now()
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := before.Add(-time.Hour)
	if p.cutoff.Before(want) || p.cutoff.After(time.Now().Add(-time.Hour)) {
		t.Errorf("cutoff = %v, want about %v", p.cutoff, want)
	}

	p.err = errors.New("connection reset")
	if err := job.Run(context.Background()); err == nil {
		t.Error("Run() should surface the purge error")
	}
}

func TestAuditRetentionJob(t *testing.T) {
	p := &fakePurger{}
	job := tasks.AuditRetentionJob(p, 90*24*time.Hour, zap.NewNop())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if age := time.Since(p.cutoff); age < 90*24*time.Hour {
		t.Errorf("cutoff is %v old, want at least 90 days", age)
	}
}
