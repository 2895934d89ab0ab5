package me

import (
	"context"
	"time"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	"stayscape/internal/app/queries"
	"stayscape/internal/app/uow"
	domainlistings "stayscape/internal/domain/listings"
	domainuser "stayscape/internal/domain/user"
)

const (
	ToggleWishlistKey = "me.wishlist.toggle"
	ListWishlistKey   = "me.wishlist.list"
)

type ToggleWishlistCommand struct {
	UserID    string `validate:"required"`
	ListingID string `validate:"required"`
}

func (c ToggleWishlistCommand) Key() string     { return ToggleWishlistKey }
func (c ToggleWishlistCommand) ActorID() string { return c.UserID }

type ToggleWishlistHandler struct {
	Now func() time.Time
}

func (h *ToggleWishlistHandler) Handle(ctx context.Context, cmd ToggleWishlistCommand) (dto.WishlistToggle, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.WishlistToggle{}, uow.ErrUnitOfWorkMissing
	}
	listingID := domainlistings.ListingID(cmd.ListingID)
	if _, err := unit.Listings().ByID(ctx, listingID); err != nil {
		return dto.WishlistToggle{}, err
	}
	u, err := unit.Users().ByID(ctx, domainuser.ID(cmd.UserID))
	if err != nil {
		return dto.WishlistToggle{}, err
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	action := u.ToggleWishlist(listingID, now)
	if err := unit.Users().Save(ctx, u); err != nil {
		return dto.WishlistToggle{}, err
	}
	return dto.WishlistToggle{Action: string(action), ListingID: cmd.ListingID}, nil
}

type ListWishlistQuery struct {
	UserID string
}

func (q ListWishlistQuery) Key() string     { return ListWishlistKey }
func (q ListWishlistQuery) ActorID() string { return q.UserID }

type ListWishlistHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle resolves wishlisted listings in wishlist order, skipping deleted ones.
func (h *ListWishlistHandler) Handle(ctx context.Context, q ListWishlistQuery) ([]dto.Listing, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()

	u, err := unit.Users().ByID(execCtx, domainuser.ID(q.UserID))
	if err != nil {
		return nil, err
	}
	out := make([]dto.Listing, 0, len(u.Wishlist))
	if len(u.Wishlist) == 0 {
		return out, nil
	}
	items, err := unit.Listings().ByIDs(execCtx, u.Wishlist)
	if err != nil {
		return nil, err
	}
	byID := make(map[domainlistings.ListingID]*domainlistings.Listing, len(items))
	for _, l := range items {
		byID[l.ID] = l
	}
	for _, id := range u.Wishlist {
		if l, ok := byID[id]; ok {
			out = append(out, dto.MapListing(l, nil))
		}
	}
	return out, nil
}

var _ commands.Handler[ToggleWishlistCommand, dto.WishlistToggle] = (*ToggleWishlistHandler)(nil)
var _ queries.Handler[ListWishlistQuery, []dto.Listing] = (*ListWishlistHandler)(nil)
