package listings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	"stayscape/internal/app/outbox"
	"stayscape/internal/app/uow"
	domainlistings "stayscape/internal/domain/listings"
	domainuser "stayscape/internal/domain/user"
)

const (
	CreateListingKey = "listings.create"
	UpdateListingKey = "listings.update"
	DeleteListingKey = "listings.delete"
)

// ListingPayload carries the editable attributes of a listing.
type ListingPayload struct {
	Title       string   `validate:"required,max=140"`
	Description string   `validate:"max=5000"`
	Price       int64    `validate:"gte=0"`
	Location    string   `validate:"required,max=200"`
	Country     string   `validate:"required,max=100"`
	Longitude   float64  `validate:"gte=-180,lte=180"`
	Latitude    float64  `validate:"gte=-90,lte=90"`
	Category    string   `validate:"max=40"`
	Amenities   []string `validate:"max=20,dive,max=40"`
}

func (p ListingPayload) point() domainlistings.Point {
	return domainlistings.Point{Longitude: p.Longitude, Latitude: p.Latitude}
}

type CreateListingCommand struct {
	OwnerID string `validate:"required"`
	Payload ListingPayload
}

func (c CreateListingCommand) Key() string     { return CreateListingKey }
func (c CreateListingCommand) ActorID() string { return c.OwnerID }

type CreateListingHandler struct {
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

// Handle stores the listing and grants the owner the host role.
func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (dto.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Listing{}, uow.ErrUnitOfWorkMissing
	}
	now := clock(h.Now)
	owner, err := unit.Users().ByID(ctx, domainuser.ID(cmd.OwnerID))
	if err != nil {
		return dto.Listing{}, err
	}
	id := uuid.NewString()
	if h.NewID != nil {
		id = h.NewID()
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          domainlistings.ListingID(id),
		Owner:       domainlistings.HostID(owner.ID),
		Title:       cmd.Payload.Title,
		Description: cmd.Payload.Description,
		Price:       cmd.Payload.Price,
		Location:    cmd.Payload.Location,
		Country:     cmd.Payload.Country,
		Geometry:    cmd.Payload.point(),
		Category:    cmd.Payload.Category,
		Amenities:   cmd.Payload.Amenities,
		Now:         now,
	})
	if err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	changed, err := owner.EnsureRole(domainuser.RoleHost, now)
	if err != nil {
		return dto.Listing{}, err
	}
	if changed {
		if err := unit.Users().Save(ctx, owner); err != nil {
			return dto.Listing{}, err
		}
	}
	if err := recordEvents(ctx, unit, h.Encoder, listing); err != nil {
		return dto.Listing{}, err
	}
	logger(h.Logger).Info("listing created", "listing_id", listing.ID, "owner", listing.Owner)
	return dto.MapListing(listing, owner), nil
}

type UpdateListingCommand struct {
	ListingID string `validate:"required"`
	ActorIDV  string `validate:"required"`
	Payload   ListingPayload
}

func (c UpdateListingCommand) Key() string     { return UpdateListingKey }
func (c UpdateListingCommand) ActorID() string { return c.ActorIDV }

type UpdateListingHandler struct {
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

// Handle applies the payload. Existing bookings keep their snapshotted totals.
func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (dto.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Listing{}, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Listing{}, err
	}
	err = listing.Update(domainlistings.HostID(cmd.ActorIDV), domainlistings.UpdateListingParams{
		Title:       cmd.Payload.Title,
		Description: cmd.Payload.Description,
		Price:       cmd.Payload.Price,
		Location:    cmd.Payload.Location,
		Country:     cmd.Payload.Country,
		Geometry:    cmd.Payload.point(),
		Category:    cmd.Payload.Category,
		Amenities:   cmd.Payload.Amenities,
		Now:         clock(h.Now),
	})
	if err != nil {
		return dto.Listing{}, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Listing{}, err
	}
	if err := recordEvents(ctx, unit, h.Encoder, listing); err != nil {
		return dto.Listing{}, err
	}
	owner, err := unit.Users().ByID(ctx, domainuser.ID(listing.Owner))
	if err != nil {
		owner = nil
	}
	return dto.MapListing(listing, owner), nil
}

type DeleteListingCommand struct {
	ListingID string `validate:"required"`
	ActorIDV  string `validate:"required"`
}

func (c DeleteListingCommand) Key() string     { return DeleteListingKey }
func (c DeleteListingCommand) ActorID() string { return c.ActorIDV }

type DeleteListingResult struct {
	ListingID      string `json:"listing_id"`
	RemovedReviews int    `json:"removed_reviews"`
}

type DeleteListingHandler struct {
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

// Handle removes the listing and then every review attached to it in the same unit.
func (h *DeleteListingHandler) Handle(ctx context.Context, cmd DeleteListingCommand) (DeleteListingResult, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return DeleteListingResult{}, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return DeleteListingResult{}, err
	}
	actor := domainlistings.HostID(cmd.ActorIDV)
	if err := listing.EnsureOwner(actor); err != nil {
		return DeleteListingResult{}, err
	}
	if err := unit.Listings().Delete(ctx, listing.ID); err != nil {
		return DeleteListingResult{}, err
	}
	removed, err := unit.Reviews().DeleteByListing(ctx, listing.ID)
	if err != nil {
		return DeleteListingResult{}, err
	}
	if err := listing.MarkDeleted(actor, removed, clock(h.Now)); err != nil {
		return DeleteListingResult{}, err
	}
	if err := recordEvents(ctx, unit, h.Encoder, listing); err != nil {
		return DeleteListingResult{}, err
	}
	logger(h.Logger).Info("listing deleted", "listing_id", listing.ID, "removed_reviews", removed)
	return DeleteListingResult{ListingID: string(listing.ID), RemovedReviews: removed}, nil
}

func recordEvents(ctx context.Context, unit uow.UnitOfWork, encoder outbox.EventEncoder, listing *domainlistings.Listing) error {
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), encoder, listing.Drain()); err != nil {
		return fmt.Errorf("%w: record events: %w", uow.ErrTxFailed, err)
	}
	return nil
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now()
}

func logger(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}

var _ commands.Handler[CreateListingCommand, dto.Listing] = (*CreateListingHandler)(nil)
var _ commands.Handler[UpdateListingCommand, dto.Listing] = (*UpdateListingHandler)(nil)
var _ commands.Handler[DeleteListingCommand, DeleteListingResult] = (*DeleteListingHandler)(nil)
