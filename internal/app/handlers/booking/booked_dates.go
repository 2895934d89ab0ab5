package booking

import (
	"context"
	"time"

	"stayscape/internal/app/dto"
	"stayscape/internal/app/queries"
	"stayscape/internal/app/uow"
	domainlistings "stayscape/internal/domain/listings"
)

const BookedDatesKey = "booking.booked_dates"

type BookedDatesQuery struct {
	ListingID string
}

func (q BookedDatesQuery) Key() string { return BookedDatesKey }

type BookedDatesHandler struct {
	UoWFactory uow.UoWFactory
	Now        func() time.Time
}

// Handle lists occupied ranges whose check-out is not in the past. An unknown
// listing yields an empty list.
func (h *BookedDatesHandler) Handle(ctx context.Context, q BookedDatesQuery) ([]dto.BookedRange, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	bookings, err := unit.Bookings().ListOccupying(execCtx, domainlistings.ListingID(q.ListingID), now)
	if err != nil {
		return nil, err
	}
	out := make([]dto.BookedRange, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, dto.BookedRange{CheckIn: b.Range.CheckIn, CheckOut: b.Range.CheckOut})
	}
	return out, nil
}

var _ queries.Handler[BookedDatesQuery, []dto.BookedRange] = (*BookedDatesHandler)(nil)
