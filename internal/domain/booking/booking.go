package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayscape/internal/domain/listings"
	"stayscape/internal/domain/shared/daterange"
	"stayscape/internal/domain/shared/events"
)

var (
	ErrInvalidDateRange = errors.New("booking: check-out must be after check-in")
	ErrPastDate         = errors.New("booking: check-in date is in the past")
	ErrInvalidGuests    = errors.New("booking: guests count must be between 1 and 10")
	ErrNotFound         = errors.New("booking: not found")
	ErrSelfBooking      = errors.New("booking: hosts cannot book their own listing")
	ErrDateConflict     = errors.New("booking: dates overlap an existing booking")
	ErrForbidden        = errors.New("booking: only the guest may cancel this booking")
	ErrAlreadyStarted   = errors.New("booking: stay has already started")
	ErrInvalidState     = errors.New("booking: invalid state transition")
	ErrStorage          = errors.New("booking: storage failure")
	ErrConcurrentUpdate = errors.New("booking: concurrent update")
)

const (
	MinGuests = 1
	MaxGuests = 10
)

type BookingID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// OccupiesDates reports whether a booking in this status blocks its range.
func (s Status) OccupiesDates() bool {
	return s != StatusCancelled
}

type Booking struct {
	ID         BookingID
	ListingID  listings.ListingID
	GuestID    string
	Range      daterange.DateRange
	Guests     int
	TotalPrice int64
	Status     Status
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	// Create inserts a new booking unless a non-cancelled booking of the same
	// listing overlaps its range, in which case ErrDateConflict is returned.
	Create(ctx context.Context, booking *Booking) error
	// Save persists a modified booking when the stored version equals
	// booking.Version and increments it. Otherwise ErrConcurrentUpdate.
	Save(ctx context.Context, booking *Booking) error
	ListByGuest(ctx context.Context, guestID string) ([]*Booking, error)
	ListByListings(ctx context.Context, listingIDs []listings.ListingID) ([]*Booking, error)
	// ListOccupying returns non-cancelled bookings of a listing whose check-out is not before from.
	ListOccupying(ctx context.Context, listingID listings.ListingID, from time.Time) ([]*Booking, error)
	ListEndedConfirmed(ctx context.Context, before time.Time) ([]*Booking, error)
}

type CreateParams struct {
	ID        BookingID
	ListingID listings.ListingID
	GuestID   string
	Range     daterange.DateRange
	Guests    int
	// NightlyPrice is the listing price at creation; the total is fixed from it.
	NightlyPrice int64
	CreatedAt    time.Time
}

// NewBooking builds a confirmed booking. Range and guests must already be validated.
func NewBooking(params CreateParams) (*Booking, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("booking: id required")
	}
	if strings.TrimSpace(params.GuestID) == "" {
		return nil, errors.New("booking: guest id required")
	}
	if err := params.Range.Validate(); err != nil {
		return nil, ErrInvalidDateRange
	}
	guests, err := NormalizeGuests(params.Guests)
	if err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:         params.ID,
		ListingID:  params.ListingID,
		GuestID:    params.GuestID,
		Range:      params.Range,
		Guests:     guests,
		TotalPrice: TotalPrice(params.NightlyPrice, params.Range),
		Status:     StatusConfirmed,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	b.Record(BookingCreated{
		BookingID:  b.ID,
		ListingID:  b.ListingID,
		GuestID:    b.GuestID,
		Range:      b.Range,
		Guests:     b.Guests,
		TotalPrice: b.TotalPrice,
		At:         now,
	})
	return b, nil
}

// TotalPrice is nightly price times nights.
func TotalPrice(nightly int64, dr daterange.DateRange) int64 {
	return nightly * int64(dr.Nights())
}

// NormalizeGuests maps an omitted count to one and enforces the bounds.
func NormalizeGuests(n int) (int, error) {
	if n == 0 {
		return MinGuests, nil
	}
	if n < MinGuests || n > MaxGuests {
		return 0, ErrInvalidGuests
	}
	return n, nil
}

// Cancel marks the booking cancelled. Cancelling an already cancelled booking
// is a no-op and reports changed=false.
func (b *Booking) Cancel(requesterID string, now time.Time) (changed bool, err error) {
	if requesterID == "" || requesterID != b.GuestID {
		return false, ErrForbidden
	}
	if b.Status == StatusCancelled {
		return false, nil
	}
	if b.Status == StatusCompleted {
		return false, ErrAlreadyStarted
	}
	if !now.Before(b.Range.CheckIn) {
		return false, ErrAlreadyStarted
	}
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, ListingID: b.ListingID, GuestID: b.GuestID, Range: b.Range, At: b.UpdatedAt})
	return true, nil
}

// Complete moves a confirmed booking whose stay has ended to completed.
func (b *Booking) Complete(now time.Time) error {
	if b.Status != StatusConfirmed {
		return ErrInvalidState
	}
	if now.Before(b.Range.CheckOut) {
		return ErrInvalidState
	}
	b.Status = StatusCompleted
	b.UpdatedAt = now.UTC()
	b.Record(BookingCompleted{BookingID: b.ID, ListingID: b.ListingID, At: b.UpdatedAt})
	return nil
}

// ConflictsWith reports whether other blocks a booking over dr.
func ConflictsWith(other *Booking, listingID listings.ListingID, dr daterange.DateRange) bool {
	if other == nil || other.ListingID != listingID || !other.Status.OccupiesDates() {
		return false
	}
	return other.Range.Overlaps(dr)
}

// Clone returns a deep copy without pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	out.Recorder = events.Recorder{}
	return &out
}
