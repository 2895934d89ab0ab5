package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// SelfScoped commands are dispatched without a unit. Their handlers open
// units themselves around remote I/O that must not hold one open.
type SelfScoped interface {
	SelfScoped() bool
}

// retryStep is multiplied by the attempt number between transient retries.
var retryStep = 15 * time.Millisecond

// Transaction runs every command inside a unit of work. The unit is committed
// only when the handler succeeds and rolled back on every other exit. A unit
// failing with uow.ErrTransient is run again from Begin, up to opts.Attempts.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider, logger *slog.Logger) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if scoped, ok := cmd.(SelfScoped); ok && scoped.SelfScoped() {
				return next.Dispatch(ctx, cmd)
			}
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			if opts.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
				defer cancel()
			}
			attempts := opts.Attempts
			if attempts <= 0 {
				attempts = uow.DefaultAttempts
			}
			for attempt := 1; ; attempt++ {
				res, err := runUnit(ctx, factory, opts, next, cmd, logger)
				if err == nil || !errors.Is(err, uow.ErrTransient) || attempt >= attempts {
					return res, err
				}
				logger.Info("retrying transient unit of work", "command", cmd.Key(), "attempt", attempt, "error", err)
				if err := sleepCtx(ctx, time.Duration(attempt)*retryStep); err != nil {
					return nil, fmt.Errorf("%w: %s: %w", uow.ErrTxFailed, cmd.Key(), err)
				}
			}
		})
	}
}

func runUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions, next commands.Bus, cmd commands.Command, logger *slog.Logger) (res any, err error) {
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: begin %s: %w", uow.ErrTxFailed, cmd.Key(), err)
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if committed {
			return
		}
		// rollback must run even when the request context is gone
		if rbErr := unit.Rollback(context.WithoutCancel(execCtx)); rbErr != nil {
			logger.Warn("rollback failed", "command", cmd.Key(), "error", rbErr)
		}
	}()

	res, err = next.Dispatch(execCtx, cmd)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", uow.ErrTxFailed, cmd.Key(), err)
	}
	if err := unit.Commit(execCtx); err != nil {
		return nil, fmt.Errorf("%w: commit %s: %w", uow.ErrTxFailed, cmd.Key(), err)
	}
	committed = true
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
