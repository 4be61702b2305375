package jobs

import (
	"context"
	"log/slog"
	"time"

	"skillswap/internal/observability"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the delayed email job on a cron schedule. A run that is still going
// when the next one is due causes that next run to be skipped.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers job under spec, a standard five-field expression or an
// @every/@hourly style descriptor.
func NewScheduler(spec string, job *DelayedEmailJob) (*Scheduler, error) {
	logger := cron.PrintfLogger(slog.NewLogLogger(observability.GlobalLogger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		ctx = observability.WithCorrelationID(ctx, "cron-delayed-email")
		// Errors are already logged and counted by the job.
		_, _ = job.ProcessDelayedEmails(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c}, nil
}

// Start begins scheduling in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
