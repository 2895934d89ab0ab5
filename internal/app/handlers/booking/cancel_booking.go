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

const CancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	BookingID   string
	RequesterID string
}

func (c CancelBookingCommand) Key() string     { return CancelBookingKey }
func (c CancelBookingCommand) ActorID() string { return c.RequesterID }

type CancelBookingHandler struct {
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (dto.Booking, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Booking{}, uow.ErrUnitOfWorkMissing
	}
	booking, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return dto.Booking{}, err
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	changed, err := booking.Cancel(cmd.RequesterID, now)
	if err != nil {
		return dto.Booking{}, err
	}
	if !changed {
		return dto.MapBooking(booking), nil
	}
	if err := unit.Bookings().Save(ctx, booking); err != nil {
		return dto.Booking{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, booking.Drain()); err != nil {
		return dto.Booking{}, fmt.Errorf("%w: record events: %w", domainbooking.ErrStorage, err)
	}
	if h.Logger != nil {
		h.Logger.Info("booking cancelled", "booking_id", booking.ID, "listing_id", booking.ListingID)
	}
	return dto.MapBooking(booking), nil
}

var _ commands.Handler[CancelBookingCommand, dto.Booking] = (*CancelBookingHandler)(nil)
