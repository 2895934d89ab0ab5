package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/uow"
	domainbooking "stayscape/internal/domain/booking"
)

type pingCommand struct{}

func (pingCommand) Key() string { return "test.ping" }

type countingUnit struct {
	uow.UnitOfWork
	factory *countingFactory
}

func (u *countingUnit) Commit(context.Context) error {
	u.factory.commits++
	if len(u.factory.commitErrs) > 0 {
		err := u.factory.commitErrs[0]
		u.factory.commitErrs = u.factory.commitErrs[1:]
		return err
	}
	return nil
}

func (u *countingUnit) Rollback(context.Context) error {
	u.factory.rollbacks++
	return nil
}

type countingFactory struct {
	begins, commits, rollbacks int
	commitErrs                 []error
}

func (f *countingFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	f.begins++
	return &countingUnit{factory: f}, nil
}

// scripted returns the given errors in order, then succeeds.
func scripted(errs ...error) (commands.Bus, *int) {
	calls := 0
	return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
		calls++
		if _, ok := uow.FromContext(ctx); !ok {
			return nil, errors.New("unit missing from context")
		}
		if calls <= len(errs) {
			return nil, errs[calls-1]
		}
		return "ok", nil
	}), &calls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func transientErr() error {
	return fmt.Errorf("%w: %w: lock listing: write conflict", domainbooking.ErrStorage, uow.ErrTransient)
}

func TestTransactionRerunsTransientUnitAndSeesConflict(t *testing.T) {
	factory := &countingFactory{}
	next, calls := scripted(transientErr(), domainbooking.ErrDateConflict)
	bus := Transaction(factory, nil, quietLogger())(next)

	_, err := bus.Dispatch(context.Background(), pingCommand{})
	assert.ErrorIs(t, err, domainbooking.ErrDateConflict)
	assert.False(t, uow.IsRetryable(err))
	assert.Equal(t, 2, *calls)
	assert.Equal(t, 2, factory.begins)
	assert.Equal(t, 2, factory.rollbacks)
	assert.Zero(t, factory.commits)
}

func TestTransactionRetriesTransientCommit(t *testing.T) {
	factory := &countingFactory{commitErrs: []error{fmt.Errorf("%w: commit aborted", uow.ErrTransient)}}
	next, calls := scripted()
	bus := Transaction(factory, nil, quietLogger())(next)

	res, err := bus.Dispatch(context.Background(), pingCommand{})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 2, *calls)
	assert.Equal(t, 2, factory.commits)
}

func TestTransactionStopsAfterAttempts(t *testing.T) {
	factory := &countingFactory{}
	next, calls := scripted(transientErr(), transientErr(), transientErr(), transientErr())
	bus := Transaction(factory, func(commands.Command) uow.TxOptions {
		return uow.TxOptions{Attempts: 2}
	}, quietLogger())(next)

	_, err := bus.Dispatch(context.Background(), pingCommand{})
	assert.ErrorIs(t, err, uow.ErrTransient)
	assert.True(t, uow.IsRetryable(err))
	assert.Equal(t, 2, *calls)
	assert.Equal(t, 2, factory.rollbacks)
}

func TestTransactionDoesNotRetryOtherErrors(t *testing.T) {
	factory := &countingFactory{}
	next, calls := scripted(domainbooking.ErrStorage)
	bus := Transaction(factory, nil, quietLogger())(next)

	_, err := bus.Dispatch(context.Background(), pingCommand{})
	assert.ErrorIs(t, err, domainbooking.ErrStorage)
	assert.Equal(t, 1, *calls)
	assert.Equal(t, 1, factory.rollbacks)
}

func TestTransactionRetryHonoursContext(t *testing.T) {
	factory := &countingFactory{}
	next, calls := scripted(transientErr(), transientErr(), transientErr())
	bus := Transaction(factory, func(commands.Command) uow.TxOptions {
		return uow.TxOptions{Timeout: time.Millisecond, Attempts: 10}
	}, quietLogger())(next)

	_, err := bus.Dispatch(context.Background(), pingCommand{})
	require.Error(t, err)
	assert.True(t, uow.IsRetryable(err))
	assert.Less(t, *calls, 10)
}
