package schedule

import (
	"context"
	"log/slog"
	"time"
)

// Job is one periodic unit of work.
type Job func(ctx context.Context, now time.Time) error

// Ticker runs Job every Interval until the context ends. A zero interval disables it.
type Ticker struct {
	Name     string
	Interval time.Duration
	Job      Job
	Logger   *slog.Logger
	Now      func() time.Time
}

// Run blocks. The job runs once immediately and then on every tick; a failure
// is logged and the next tick retries.
func (t *Ticker) Run(ctx context.Context) error {
	if t.Interval <= 0 || t.Job == nil {
		return nil
	}
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("job", t.Name)
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		t.runOnce(ctx, logger)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Ticker) runOnce(ctx context.Context, logger *slog.Logger) {
	now := time.Now()
	if t.Now != nil {
		now = t.Now()
	}
	if err := t.Job(ctx, now); err != nil && ctx.Err() == nil {
		logger.Warn("scheduled job failed", "error", err)
	}
}
