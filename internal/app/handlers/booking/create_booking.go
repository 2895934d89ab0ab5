package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	"stayscape/internal/app/middleware"
	"stayscape/internal/app/outbox"
	"stayscape/internal/app/uow"
	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
)

const CreateBookingKey = "booking.create"

type CreateBookingCommand struct {
	ListingID      string
	GuestID        string
	CheckIn        time.Time
	CheckOut       time.Time
	Guests         int
	IdempotencyRaw string
}

func (c CreateBookingCommand) Key() string     { return CreateBookingKey }
func (c CreateBookingCommand) ActorID() string { return c.GuestID }

// IdempotencyKey scopes the client key to the guest and listing.
func (c CreateBookingCommand) IdempotencyKey() string {
	raw := strings.TrimSpace(c.IdempotencyRaw)
	if raw == "" {
		return ""
	}
	return CreateBookingKey + ":" + c.GuestID + ":" + c.ListingID + ":" + raw
}

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

type CreateBookingHandler struct {
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
	Location *time.Location
	NewID    func() string
}

// Handle validates in a fixed order: range, past date, guests, listing,
// self-booking, then conflicts. Conflict detection and insert share the
// caller's unit of work.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (dto.Booking, error) {
	now := h.now()
	dr, err := domainbooking.ValidateDateRange(cmd.CheckIn, cmd.CheckOut, now, h.Location)
	if err != nil {
		return dto.Booking{}, err
	}
	guests, err := domainbooking.NormalizeGuests(cmd.Guests)
	if err != nil {
		return dto.Booking{}, err
	}

	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Booking{}, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Booking{}, err
	}
	if string(listing.Owner) == cmd.GuestID {
		return dto.Booking{}, domainbooking.ErrSelfBooking
	}

	booking, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:           domainbooking.BookingID(h.newID()),
		ListingID:    listing.ID,
		GuestID:      cmd.GuestID,
		Range:        dr,
		Guests:       guests,
		NightlyPrice: listing.Price,
		CreatedAt:    now,
	})
	if err != nil {
		return dto.Booking{}, err
	}
	if err := unit.Bookings().Create(ctx, booking); err != nil {
		return dto.Booking{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, booking.Drain()); err != nil {
		return dto.Booking{}, fmt.Errorf("%w: record events: %w", domainbooking.ErrStorage, err)
	}
	h.logger().Info("booking created",
		"booking_id", booking.ID,
		"listing_id", booking.ListingID,
		"nights", dr.Nights(),
		"total", booking.TotalPrice,
	)
	return dto.MapBooking(booking), nil
}

func (h *CreateBookingHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *CreateBookingHandler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

func (h *CreateBookingHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var (
	_ commands.Handler[CreateBookingCommand, dto.Booking] = (*CreateBookingHandler)(nil)
	_ middleware.IdempotentCommand                        = CreateBookingCommand{}
	_ middleware.ActorMessage                             = CreateBookingCommand{}
)
