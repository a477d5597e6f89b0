// Package period owns the wall-clock jobs that zero the rolling family
// counters at period boundaries. Main creates and stops the scheduler;
// the jobs themselves are exported so tests can drive them directly.
package period

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

// Reset boundaries. Weeks roll on Monday.
var schedules = map[Period]string{
	Daily:   "0 0 * * *",
	Weekly:  "0 0 * * 1",
	Monthly: "0 0 1 * *",
	Yearly:  "0 0 1 1 *",
}

const reconcileSchedule = "0 * * * *"

var ErrUnknownPeriod = errors.New("unknown period")

// Store is the family persistence surface the scheduler needs.
type Store interface {
	// ResetPeriod zeroes exactly the given period's star and task-count
	// columns for every family, returning how many rows changed.
	ResetPeriod(ctx context.Context, p Period) (int64, error)
	// ListStarDrift reports families whose lifetime star total disagrees
	// with the sum of their members' stars.
	ListStarDrift(ctx context.Context) ([]StarDrift, error)
}

type StarDrift struct {
	FamilyID   int64
	TotalStars int
	MemberSum  int
}

type Scheduler struct {
	cron    *cron.Cron
	store   Store
	logger  *slog.Logger
	onReset func(p Period, families int64)
}

func NewScheduler(store Store, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		store:  store,
		logger: logger,
	}
}

// OnReset registers a callback invoked after each successful reset,
// with the period and the number of families touched. Set it before
// Start; the scheduler does not synchronize the field.
func (s *Scheduler) OnReset(fn func(p Period, families int64)) {
	s.onReset = fn
}

// Start registers the four reset jobs plus the hourly reconciliation
// check and starts the cron loop. Each job runs in its own goroutine and
// swallows nothing silently: failures are logged and the next run still
// fires, so one broken period never blocks the others.
func (s *Scheduler) Start() error {
	for p, spec := range schedules {
		p := p
		if _, err := s.cron.AddFunc(spec, func() {
			if err := s.RunReset(context.Background(), p); err != nil {
				s.logger.Error("period reset failed", "period", string(p), "error", err)
			}
		}); err != nil {
			return fmt.Errorf("register %s reset: %w", p, err)
		}
	}

	if _, err := s.cron.AddFunc(reconcileSchedule, func() {
		if err := s.RunReconcile(context.Background()); err != nil {
			s.logger.Error("reconciliation failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("register reconcile: %w", err)
	}

	s.cron.Start()
	s.logger.Info("period scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop halts scheduling and waits for in-flight jobs up to the context
// deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunReset zeroes one period's counters across all families.
func (s *Scheduler) RunReset(ctx context.Context, p Period) error {
	if _, ok := schedules[p]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPeriod, p)
	}

	start := time.Now()
	n, err := s.store.ResetPeriod(ctx, p)
	if err != nil {
		return fmt.Errorf("reset %s counters: %w", p, err)
	}
	s.logger.Info("period counters reset",
		"period", string(p),
		"families", n,
		"duration", time.Since(start))
	if s.onReset != nil {
		s.onReset(p, n)
	}
	return nil
}

// RunReconcile compares each family's lifetime star total against the
// sum of its members' stars and logs any divergence. Divergence is
// expected after a crash between the member and family writes of a
// completion; this job makes it visible instead of letting it rot.
func (s *Scheduler) RunReconcile(ctx context.Context) error {
	drifts, err := s.store.ListStarDrift(ctx)
	if err != nil {
		return fmt.Errorf("list star drift: %w", err)
	}

	for _, d := range drifts {
		s.logger.Warn("family star totals diverged",
			"family_id", d.FamilyID,
			"total_stars", d.TotalStars,
			"member_sum", d.MemberSum)
	}
	if len(drifts) == 0 {
		s.logger.Debug("reconciliation clean")
	}
	return nil
}
