// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("tasks: unknown job")

// defaultRunTimeout bounds a single run when the job sets no Timeout.
const defaultRunTimeout = 2 * time.Minute

// Job is a maintenance task repeated on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Delay    time.Duration // before the first run; zero runs immediately
	Timeout  time.Duration // per run
	Run      func(ctx context.Context) error
}

// Stats summarizes a job's history since Start.
type Stats struct {
	Name     string
	Runs     int
	Failures int
	LastRun  time.Time
	LastErr  string
	Running  bool
}

// Runner drives registered jobs until Stop.
type Runner struct {
	logger *zap.Logger
	jobs   []Job
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu    sync.Mutex
	stats map[string]*Stats
}

// New creates an empty Runner.
func New(logger *zap.Logger) *Runner {
	return &Runner{
		logger: logger,
		stats:  make(map[string]*Stats),
	}
}

// Register adds a job. Jobs registered after Start are not scheduled.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
	r.mu.Lock()
	r.stats[job.Name] = &Stats{Name: job.Name}
	r.mu.Unlock()
}

// Start schedules every registered job in its own goroutine.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name)
		r.wg.Add(1)
		go r.loop(ctx, job)
	}

	r.logger.Info("maintenance tasks started", zap.Strings("jobs", names))
}

// Stop cancels all jobs and waits for in-flight runs. It returns ctx.Err()
// if ctx ends first.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("maintenance tasks stopped")
		return nil
	case <-ctx.Done():
		var busy []string
		for _, s := range r.Stats() {
			if s.Running {
				busy = append(busy, s.Name)
			}
		}
		r.logger.Warn("maintenance tasks did not stop in time", zap.Strings("busy", busy))
		return ctx.Err()
	}
}

// RunOnce runs the named job now, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return r.execute(ctx, job)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}

// Stats returns a snapshot of every job, sorted by name.
func (r *Runner) Stats() []Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stats, 0, len(r.stats))
	for _, s := range r.stats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	if job.Delay > 0 {
		t := time.NewTimer(job.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
	r.runLogged(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runLogged(ctx, job)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context, job Job) {
	start := time.Now()
	err := r.execute(ctx, job)
	switch {
	case err == nil:
		r.logger.Debug("task done", zap.String("job", job.Name), zap.Duration("took", time.Since(start)))
	case ctx.Err() != nil:
		// shutting down
		r.logger.Debug("task cancelled", zap.String("job", job.Name))
	default:
		r.logger.Error("task failed",
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
	}
}

// execute runs job once under its timeout, recording the outcome. A panic
// in the job is returned as an error.
func (r *Runner) execute(ctx context.Context, job Job) (err error) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = defaultRunTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.mark(job.Name, true, nil)
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task %s panicked: %v", job.Name, p)
		}
		r.mark(job.Name, false, err)
	}()

	return job.Run(runCtx)
}

func (r *Runner) mark(name string, running bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[name]
	if !ok {
		return
	}
	s.Running = running
	if running {
		return
	}
	s.Runs++
	s.LastRun = time.Now()
	s.LastErr = ""
	if err != nil {
		s.Failures++
		s.LastErr = err.Error()
	}
}
