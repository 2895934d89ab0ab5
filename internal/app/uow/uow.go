package uow

import (
	"context"
	"errors"
	"time"

	"stayscape/internal/app/outbox"
	"stayscape/internal/domain/booking"
	"stayscape/internal/domain/listings"
	"stayscape/internal/domain/reviews"
	"stayscape/internal/domain/user"
)

var (
	// ErrTxFailed marks a failure to begin or commit a unit of work.
	ErrTxFailed = errors.New("uow: transaction failed")
	// ErrTransient marks a unit aborted by a concurrent writer. Running the
	// whole unit again may succeed.
	ErrTransient = errors.New("uow: transient conflict")
)

// DefaultAttempts bounds how often a transient unit is run.
const DefaultAttempts = 3

// UnitOfWork exposes repositories bound to one transaction. Writes become
// visible to other units only after Commit.
type UnitOfWork interface {
	Listings() listings.ListingRepository
	Bookings() booking.Repository
	Reviews() reviews.Repository
	Users() user.Repository
	Outbox() outbox.Outbox

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
	// Timeout bounds the whole unit, retries included, when positive.
	Timeout time.Duration
	// Attempts caps runs of a unit failing with ErrTransient. Zero means DefaultAttempts.
	Attempts int
}

// IsRetryable reports whether err is a transient storage failure the caller may retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTxFailed) ||
		errors.Is(err, ErrTransient) ||
		errors.Is(err, booking.ErrStorage) ||
		errors.Is(err, booking.ErrConcurrentUpdate) ||
		errors.Is(err, context.DeadlineExceeded)
}
