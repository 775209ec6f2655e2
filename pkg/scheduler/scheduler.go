package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/source"
	"github.com/opencivica/legisync/pkg/syncer"
	"github.com/opencivica/legisync/pkg/utils"
)

// lockKey is the cross-process run lock in redis.
const lockKey = "legisync:sync:running"

// Runner executes one orchestrated sync pass.
type Runner interface {
	Run(ctx context.Context, opts syncer.RunOptions) *syncer.Report
}

// Locker is the cross-process mutual exclusion surface; nil disables it and
// leaves only the local flag.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// Job is one scheduled sync trigger.
type Job struct {
	Name    string
	Spec    string
	Options syncer.RunOptions
}

// DefaultJobs is the production schedule: one full pass nightly, two
// ballot refreshes around the sitting hours, lobbying weekly.
func DefaultJobs() []Job {
	return []Job{
		{Name: "full-sync", Spec: "15 3 * * *", Options: syncer.RunOptions{}},
		{Name: "midday-ballots", Spec: "45 12 * * *", Options: syncer.RunOptions{Sources: []string{source.NameBallots}}},
		{Name: "evening-ballots", Spec: "45 19 * * *", Options: syncer.RunOptions{Sources: []string{source.NameBallots}}},
		{Name: "weekly-lobbying", Spec: "30 5 * * 1", Options: syncer.RunOptions{Sources: []string{source.NameLobbying}}},
	}
}

// Scheduler triggers sync runs on a cron schedule with local and
// cross-process mutual exclusion. A trigger that finds a run in progress
// logs and returns; triggers never queue.
type Scheduler struct {
	logger *zap.Logger
	cron   *cron.Cron
	runner Runner
	locker Locker
	jobs   []Job

	running    atomic.Bool
	runTimeout time.Duration
	lockTTL    time.Duration
}

// New creates a scheduler over the given jobs. locker may be nil.
func New(logger *zap.Logger, runner Runner, locker Locker, jobs []Job) *Scheduler {
	return &Scheduler{
		logger:     logger,
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		runner:     runner,
		locker:     locker,
		jobs:       jobs,
		runTimeout: utils.EnvDuration("SCHED_RUN_TIMEOUT", 45*time.Minute),
		lockTTL:    utils.EnvDuration("SCHED_LOCK_TTL", time.Hour),
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		job := job
		if _, err := s.cron.AddFunc(job.Spec, func() {
			s.trigger(ctx, job)
		}); err != nil {
			return fmt.Errorf("register job %s: %w", job.Name, err)
		}
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops the cron loop and waits for a running trigger to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// DryRun describes the schedule without side effects.
func (s *Scheduler) DryRun() []string {
	out := make([]string, 0, len(s.jobs))
	for _, job := range s.jobs {
		sources := "all"
		if len(job.Options.Sources) > 0 {
			sources = fmt.Sprintf("%v", job.Options.Sources)
		}
		out = append(out, fmt.Sprintf("%-16s %-12s sources=%s", job.Name, job.Spec, sources))
	}
	return out
}

// trigger runs one job unless a sync is already in flight, locally or in
// another daemon.
func (s *Scheduler) trigger(ctx context.Context, job Job) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("Sync already running locally, skipping trigger", zap.String("job", job.Name))
		return
	}
	defer s.running.Store(false)

	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, lockKey, s.lockTTL)
		if err != nil {
			// Cannot prove exclusivity, so do not run.
			s.logger.Warn("Run lock unavailable, skipping trigger",
				zap.String("job", job.Name), zap.Error(err))
			return
		}
		if !ok {
			s.logger.Info("Sync running in another daemon, skipping trigger", zap.String("job", job.Name))
			return
		}
		defer func() { _ = s.locker.Release(ctx, lockKey) }()
	}

	rctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	s.logger.Info("Scheduled sync starting", zap.String("job", job.Name))
	report := s.runner.Run(rctx, job.Options)
	s.logger.Info("Scheduled sync finished",
		zap.String("job", job.Name),
		zap.Duration("duration", report.Duration),
		zap.Bool("failed", report.Failed()))
}
