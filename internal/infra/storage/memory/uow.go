package memory

import (
	"context"
	"sync"

	appoutbox "stayscape/internal/app/outbox"
	"stayscape/internal/app/uow"
	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
	domainreviews "stayscape/internal/domain/reviews"
	domainuser "stayscape/internal/domain/user"
)

// Factory starts units of work over a Store.
type Factory struct {
	Store *Store
}

// Begin waits for the writer slot unless opts.ReadOnly. Waiting honours ctx.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		panic("memory: factory without store")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !opts.ReadOnly {
		if err := f.Store.acquire(ctx); err != nil {
			return nil, err
		}
	}
	return newUnit(f.Store, opts.ReadOnly), nil
}

type Unit struct {
	store    *Store
	readOnly bool
	once     sync.Once
	closed   bool

	listings overlay[domainlistings.ListingID, *domainlistings.Listing]
	bookings overlay[domainbooking.BookingID, *domainbooking.Booking]
	reviews  overlay[domainreviews.ReviewID, *domainreviews.Review]
	users    overlay[domainuser.ID, *domainuser.User]
	events   []appoutbox.EventRecord
}

func newUnit(store *Store, readOnly bool) *Unit {
	return &Unit{
		store:    store,
		readOnly: readOnly,
		listings: newOverlay[domainlistings.ListingID, *domainlistings.Listing](),
		bookings: newOverlay[domainbooking.BookingID, *domainbooking.Booking](),
		reviews:  newOverlay[domainreviews.ReviewID, *domainreviews.Review](),
		users:    newOverlay[domainuser.ID, *domainuser.User](),
	}
}

func (u *Unit) Listings() domainlistings.ListingRepository { return listingRepo{u} }
func (u *Unit) Bookings() domainbooking.Repository         { return bookingRepo{u} }
func (u *Unit) Reviews() domainreviews.Repository          { return reviewRepo{u} }
func (u *Unit) Users() domainuser.Repository               { return userRepo{u} }
func (u *Unit) Outbox() appoutbox.Outbox                   { return &unitOutbox{u} }

// Commit applies staged changes in one step. A cancelled context discards them.
func (u *Unit) Commit(ctx context.Context) error {
	if u.closed {
		return ErrUnitClosed
	}
	if err := ctx.Err(); err != nil {
		u.finish()
		return err
	}
	if !u.readOnly {
		u.store.mu.Lock()
		u.listings.apply(u.store.listings)
		u.bookings.apply(u.store.bookings)
		u.reviews.apply(u.store.reviews)
		u.users.apply(u.store.users)
		u.store.outbox.append(u.events)
		u.store.mu.Unlock()
	}
	u.finish()
	return nil
}

func (u *Unit) Rollback(context.Context) error {
	u.finish()
	return nil
}

func (u *Unit) finish() {
	u.once.Do(func() {
		u.closed = true
		if !u.readOnly {
			u.store.release()
		}
	})
}

func (u *Unit) writable() error {
	if u.closed {
		return ErrUnitClosed
	}
	if u.readOnly {
		return errReadOnly
	}
	return nil
}

type unitOutbox struct {
	unit *Unit
}

func (o *unitOutbox) Add(_ context.Context, record appoutbox.EventRecord) error {
	if err := o.unit.writable(); err != nil {
		return err
	}
	o.unit.events = append(o.unit.events, record)
	return nil
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
