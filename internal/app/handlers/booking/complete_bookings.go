package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	"stayscape/internal/app/outbox"
	"stayscape/internal/app/uow"
	domainbooking "stayscape/internal/domain/booking"
)

const CompleteEndedBookingsKey = "booking.complete_ended"

// CompleteEndedBookingsCommand moves confirmed bookings whose check-out is at
// or before Now to completed.
type CompleteEndedBookingsCommand struct {
	Now time.Time
}

func (c CompleteEndedBookingsCommand) Key() string { return CompleteEndedBookingsKey }

type CompleteEndedBookingsHandler struct {
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *CompleteEndedBookingsHandler) Handle(ctx context.Context, cmd CompleteEndedBookingsCommand) (dto.CompletionResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.CompletionResult{}, uow.ErrUnitOfWorkMissing
	}
	now := cmd.Now
	if now.IsZero() {
		now = time.Now()
	}
	ended, err := unit.Bookings().ListEndedConfirmed(ctx, now)
	if err != nil {
		return dto.CompletionResult{}, err
	}
	completed := 0
	for _, booking := range ended {
		if err := booking.Complete(now); err != nil {
			continue
		}
		if err := unit.Bookings().Save(ctx, booking); err != nil {
			return dto.CompletionResult{}, err
		}
		if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, booking.Drain()); err != nil {
			return dto.CompletionResult{}, fmt.Errorf("%w: record events: %w", domainbooking.ErrStorage, err)
		}
		completed++
	}
	if completed > 0 && h.Logger != nil {
		h.Logger.Info("bookings completed", "count", completed)
	}
	return dto.CompletionResult{Completed: completed}, nil
}

var _ commands.Handler[CompleteEndedBookingsCommand, dto.CompletionResult] = (*CompleteEndedBookingsHandler)(nil)
