package me

import (
	"context"

	"stayscape/internal/app/dto"
	"stayscape/internal/app/queries"
	"stayscape/internal/app/uow"
	domainlistings "stayscape/internal/domain/listings"
	domainuser "stayscape/internal/domain/user"
)

const UserProfileKey = "users.profile"

// RecentBookingsLimit caps the bookings shown on the owner's own profile.
const RecentBookingsLimit = 5

// UserProfileQuery is public. ViewerID is empty for anonymous callers.
type UserProfileQuery struct {
	UserID   string `validate:"required"`
	ViewerID string
}

func (q UserProfileQuery) Key() string { return UserProfileKey }

type UserProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *UserProfileHandler) Handle(ctx context.Context, q UserProfileQuery) (dto.PublicProfile, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.PublicProfile{}, err
	}
	defer release()

	u, err := unit.Users().ByID(execCtx, domainuser.ID(q.UserID))
	if err != nil {
		return dto.PublicProfile{}, err
	}
	out := dto.PublicProfile{
		User:         dto.MapUserSummary(u),
		Listings:     []dto.Listing{},
		Reviews:      []dto.ProfileReview{},
		IsOwnProfile: q.ViewerID != "" && q.ViewerID == q.UserID,
	}

	owned, err := unit.Listings().ListByOwner(execCtx, domainlistings.HostID(u.ID))
	if err != nil {
		return dto.PublicProfile{}, err
	}
	for _, l := range owned {
		out.Listings = append(out.Listings, dto.MapListing(l, u))
	}

	written, err := unit.Reviews().ListByAuthor(execCtx, string(u.ID))
	if err != nil {
		return dto.PublicProfile{}, err
	}
	ids := make([]domainlistings.ListingID, 0, len(written))
	for _, rev := range written {
		ids = append(ids, rev.ListingID)
	}

	var recent []dto.Booking
	var recentListings []domainlistings.ListingID
	if out.IsOwnProfile {
		bookings, err := unit.Bookings().ListByGuest(execCtx, string(u.ID))
		if err != nil {
			return dto.PublicProfile{}, err
		}
		if len(bookings) > RecentBookingsLimit {
			bookings = bookings[:RecentBookingsLimit]
		}
		for _, b := range bookings {
			recent = append(recent, dto.MapBooking(b))
			recentListings = append(recentListings, b.ListingID)
		}
		ids = append(ids, recentListings...)
	}

	byID, err := listingsByID(execCtx, unit, ids)
	if err != nil {
		return dto.PublicProfile{}, err
	}
	for _, rev := range written {
		out.Reviews = append(out.Reviews, dto.ProfileReview{
			Review:  dto.MapReview(rev, u),
			Listing: dto.MapBookingListing(rev.ListingID, byID[rev.ListingID], nil),
		})
	}
	if out.IsOwnProfile {
		out.Bookings = make([]dto.GuestBooking, 0, len(recent))
		for i, b := range recent {
			out.Bookings = append(out.Bookings, dto.GuestBooking{
				Booking: b,
				Listing: dto.MapBookingListing(recentListings[i], byID[recentListings[i]], nil),
			})
		}
	}
	return out, nil
}

func listingsByID(ctx context.Context, unit uow.UnitOfWork, ids []domainlistings.ListingID) (map[domainlistings.ListingID]*domainlistings.Listing, error) {
	out := make(map[domainlistings.ListingID]*domainlistings.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	seen := make(map[domainlistings.ListingID]struct{}, len(ids))
	unique := make([]domainlistings.ListingID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	items, err := unit.Listings().ByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	for _, l := range items {
		out[l.ID] = l
	}
	return out, nil
}

var _ queries.Handler[UserProfileQuery, dto.PublicProfile] = (*UserProfileHandler)(nil)
