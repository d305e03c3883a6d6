package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rentdesk/rentdesk/internal/metrics"
)

// Expirer marks lapsed cancelled add-on purchases as expired.
type Expirer interface {
	ExpireLapsed(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper relabels cancelled add-on purchases past their billing date as
// expired. Caps never depend on it: a lapsed purchase is already out of
// effect when read.
type Sweeper struct {
	repo     Expirer
	schedule cron.Schedule
	spec     string
	now      func() time.Time
}

// New creates a Sweeper running on the given cron spec, e.g. "@every 1h".
func New(repo Expirer, spec string) (*Sweeper, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parsing sweeper schedule %q: %w", spec, err)
	}
	return &Sweeper{repo: repo, schedule: schedule, spec: spec, now: time.Now}, nil
}

// Start runs the sweep on schedule. It blocks until ctx is cancelled and the
// running sweep, if any, has returned.
func (s *Sweeper) Start(ctx context.Context) {
	c := cron.New()
	c.Schedule(s.schedule, cron.FuncJob(func() { s.Sweep(ctx) }))

	slog.Info("sweeper started", "schedule", s.spec)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("sweeper stopped")
}

// Sweep expires lapsed purchases once and returns how many were relabelled.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	if ctx.Err() != nil {
		return 0
	}

	n, err := s.repo.ExpireLapsed(ctx, s.now().UTC())
	if err != nil {
		slog.Error("sweeper: failed to expire addon purchases", "error", err)
		return 0
	}
	if n > 0 {
		metrics.AddonsExpiredTotal.Add(float64(n))
		slog.Info("sweeper: expired addon purchases", "count", n)
	}
	return n
}
