package memory

import (
	"context"
	"sort"
	"time"

	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
)

type bookingRepo struct {
	u *Unit
}

func (r bookingRepo) ByID(_ context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	b, ok := r.u.bookings.lookup(r.u.store.bookings, id)
	if !ok {
		return nil, domainbooking.ErrNotFound
	}
	return b.Clone(), nil
}

// Create checks for overlap against committed and staged bookings. The unit
// holds the writer slot, so nothing can commit between the check and the insert.
func (r bookingRepo) Create(_ context.Context, booking *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.store.mu.RLock()
	_, exists := r.u.bookings.lookup(r.u.store.bookings, booking.ID)
	conflict := false
	r.u.bookings.each(r.u.store.bookings, func(_ domainbooking.BookingID, other *domainbooking.Booking) {
		if domainbooking.ConflictsWith(other, booking.ListingID, booking.Range) {
			conflict = true
		}
	})
	r.u.store.mu.RUnlock()
	if exists {
		return domainbooking.ErrStorage
	}
	if conflict {
		return domainbooking.ErrDateConflict
	}
	r.u.bookings.put(booking.ID, booking.Clone())
	return nil
}

func (r bookingRepo) Save(_ context.Context, booking *domainbooking.Booking) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.store.mu.RLock()
	current, ok := r.u.bookings.lookup(r.u.store.bookings, booking.ID)
	r.u.store.mu.RUnlock()
	if !ok {
		return domainbooking.ErrNotFound
	}
	if current.Version != booking.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	booking.Version++
	r.u.bookings.put(booking.ID, booking.Clone())
	return nil
}

func (r bookingRepo) ListByGuest(_ context.Context, guestID string) ([]*domainbooking.Booking, error) {
	out := r.collect(func(b *domainbooking.Booking) bool { return b.GuestID == guestID })
	sortNewestFirst(out)
	return out, nil
}

func (r bookingRepo) ListByListings(_ context.Context, listingIDs []domainlistings.ListingID) ([]*domainbooking.Booking, error) {
	set := make(map[domainlistings.ListingID]struct{}, len(listingIDs))
	for _, id := range listingIDs {
		set[id] = struct{}{}
	}
	out := r.collect(func(b *domainbooking.Booking) bool {
		_, ok := set[b.ListingID]
		return ok
	})
	sortNewestFirst(out)
	return out, nil
}

func (r bookingRepo) ListOccupying(_ context.Context, listingID domainlistings.ListingID, from time.Time) ([]*domainbooking.Booking, error) {
	out := r.collect(func(b *domainbooking.Booking) bool {
		return b.ListingID == listingID && b.Status.OccupiesDates() && !b.Range.CheckOut.Before(from)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Range.CheckIn.Before(out[j].Range.CheckIn) })
	return out, nil
}

func (r bookingRepo) ListEndedConfirmed(_ context.Context, before time.Time) ([]*domainbooking.Booking, error) {
	out := r.collect(func(b *domainbooking.Booking) bool {
		return b.Status == domainbooking.StatusConfirmed && !b.Range.CheckOut.After(before)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Range.CheckOut.Before(out[j].Range.CheckOut) })
	return out, nil
}

func (r bookingRepo) collect(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	r.u.bookings.each(r.u.store.bookings, func(_ domainbooking.BookingID, b *domainbooking.Booking) {
		if keep(b) {
			out = append(out, b.Clone())
		}
	})
	return out
}

func sortNewestFirst(items []*domainbooking.Booking) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID > items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
