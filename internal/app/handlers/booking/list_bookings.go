package booking

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"stayscape/internal/app/dto"
	"stayscape/internal/app/queries"
	"stayscape/internal/app/uow"
	domainlistings "stayscape/internal/domain/listings"
	domainuser "stayscape/internal/domain/user"
)

const (
	ListGuestBookingsKey = "booking.list_guest"
	ListHostBookingsKey  = "booking.list_host"
)

var errActorRequired = errors.New("booking: user id is required")

type ListGuestBookingsQuery struct {
	GuestID string
}

func (q ListGuestBookingsQuery) Key() string     { return ListGuestBookingsKey }
func (q ListGuestBookingsQuery) ActorID() string { return q.GuestID }

type ListGuestBookingsHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

// Handle returns the guest's bookings, newest first, with listing and owner resolved.
func (h *ListGuestBookingsHandler) Handle(ctx context.Context, q ListGuestBookingsQuery) (dto.GuestBookingCollection, error) {
	guestID := strings.TrimSpace(q.GuestID)
	if guestID == "" {
		return dto.GuestBookingCollection{}, errActorRequired
	}
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}
	defer release()

	bookings, err := unit.Bookings().ListByGuest(execCtx, guestID)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}
	listingIDs := make([]domainlistings.ListingID, 0, len(bookings))
	for _, b := range bookings {
		listingIDs = append(listingIDs, b.ListingID)
	}
	listingsByID, err := loadListings(execCtx, unit, listingIDs)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}
	ownerIDs := make([]domainuser.ID, 0, len(listingsByID))
	for _, l := range listingsByID {
		ownerIDs = append(ownerIDs, domainuser.ID(l.Owner))
	}
	owners, err := loadUsers(execCtx, unit, ownerIDs)
	if err != nil {
		return dto.GuestBookingCollection{}, err
	}

	items := make([]dto.GuestBooking, 0, len(bookings))
	for _, b := range bookings {
		listing := listingsByID[b.ListingID]
		var owner *domainuser.User
		if listing != nil {
			owner = owners[domainuser.ID(listing.Owner)]
		} else {
			h.logger().Warn("booking references missing listing", "booking_id", b.ID, "listing_id", b.ListingID)
		}
		items = append(items, dto.GuestBooking{
			Booking: dto.MapBooking(b),
			Listing: dto.MapBookingListing(b.ListingID, listing, owner),
		})
	}
	return dto.GuestBookingCollection{Items: items}, nil
}

func (h *ListGuestBookingsHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type ListHostBookingsQuery struct {
	HostID string
}

func (q ListHostBookingsQuery) Key() string     { return ListHostBookingsKey }
func (q ListHostBookingsQuery) ActorID() string { return q.HostID }

type ListHostBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns bookings on every listing the host owns, newest first, with guests resolved.
func (h *ListHostBookingsHandler) Handle(ctx context.Context, q ListHostBookingsQuery) (dto.HostBookingCollection, error) {
	hostID := strings.TrimSpace(q.HostID)
	if hostID == "" {
		return dto.HostBookingCollection{}, errActorRequired
	}
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.HostBookingCollection{}, err
	}
	defer release()

	owned, err := unit.Listings().ListByOwner(execCtx, domainlistings.HostID(hostID))
	if err != nil {
		return dto.HostBookingCollection{}, err
	}
	if len(owned) == 0 {
		return dto.HostBookingCollection{Items: []dto.HostBooking{}}, nil
	}
	byID := make(map[domainlistings.ListingID]*domainlistings.Listing, len(owned))
	ids := make([]domainlistings.ListingID, 0, len(owned))
	for _, l := range owned {
		byID[l.ID] = l
		ids = append(ids, l.ID)
	}
	bookings, err := unit.Bookings().ListByListings(execCtx, ids)
	if err != nil {
		return dto.HostBookingCollection{}, err
	}
	guestIDs := make([]domainuser.ID, 0, len(bookings))
	for _, b := range bookings {
		guestIDs = append(guestIDs, domainuser.ID(b.GuestID))
	}
	guests, err := loadUsers(execCtx, unit, guestIDs)
	if err != nil {
		return dto.HostBookingCollection{}, err
	}

	items := make([]dto.HostBooking, 0, len(bookings))
	for _, b := range bookings {
		guest := dto.UserSummary{ID: b.GuestID}
		if u := guests[domainuser.ID(b.GuestID)]; u != nil {
			guest = dto.MapUserSummary(u)
		}
		items = append(items, dto.HostBooking{
			Booking: dto.MapBooking(b),
			Listing: dto.MapBookingListing(b.ListingID, byID[b.ListingID], nil),
			Guest:   guest,
		})
	}
	return dto.HostBookingCollection{Items: items}, nil
}

func loadListings(ctx context.Context, unit uow.UnitOfWork, ids []domainlistings.ListingID) (map[domainlistings.ListingID]*domainlistings.Listing, error) {
	out := make(map[domainlistings.ListingID]*domainlistings.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := unit.Listings().ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, l := range items {
		out[l.ID] = l
	}
	return out, nil
}

func loadUsers(ctx context.Context, unit uow.UnitOfWork, ids []domainuser.ID) (map[domainuser.ID]*domainuser.User, error) {
	out := make(map[domainuser.ID]*domainuser.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := unit.Users().ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range items {
		out[u.ID] = u
	}
	return out, nil
}

var (
	_ queries.Handler[ListGuestBookingsQuery, dto.GuestBookingCollection] = (*ListGuestBookingsHandler)(nil)
	_ queries.Handler[ListHostBookingsQuery, dto.HostBookingCollection]   = (*ListHostBookingsHandler)(nil)
)
