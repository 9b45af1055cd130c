package reminder

import (
	"context"
	"time"

	"gitlab.com/yelinaung/split-bot/internal/logger"
)

// RunTimeout bounds a single scheduled run.
const RunTimeout = 5 * time.Minute

// Runner is the job the scheduler fires.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler fires a Runner once a day at a wall-clock time.
type Scheduler struct {
	runner Runner
	hour   int
	minute int
	loc    *time.Location

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewScheduler creates a Scheduler firing at hour:minute in loc.
func NewScheduler(runner Runner, hour, minute int, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		runner: runner,
		hour:   hour,
		minute: minute,
		loc:    loc,
		now:    time.Now,
		after:  time.After,
	}
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

// Start blocks, firing the runner every day until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	logger.Log.Info().
		Int("hour", s.hour).
		Int("minute", s.minute).
		Str("timezone", s.loc.String()).
		Msg("Daily reminder scheduler started")

	for {
		now := s.now()
		next := NextRun(now, s.hour, s.minute, s.loc)
		logger.Log.Debug().Time("next_run", next).Msg("Next reminder run scheduled")

		select {
		case <-ctx.Done():
			logger.Log.Info().Msg("Daily reminder scheduler stopped")
			return
		case <-s.after(next.Sub(now)):
		}

		s.fire(ctx)
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, RunTimeout)
	defer cancel()

	if _, err := s.runner.Run(runCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Reminder run failed")
	}
}
