package reviews

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
	domainreviews "stayscape/internal/domain/reviews"
	domainuser "stayscape/internal/domain/user"
)

const (
	SubmitReviewKey = "reviews.submit"
	DeleteReviewKey = "reviews.delete"
)

type SubmitReviewCommand struct {
	ListingID string `validate:"required"`
	AuthorID  string `validate:"required"`
	Rating    int    `validate:"gte=1,lte=5"`
	Comment   string `validate:"required,max=2000"`
}

func (c SubmitReviewCommand) Key() string     { return SubmitReviewKey }
func (c SubmitReviewCommand) ActorID() string { return c.AuthorID }

type SubmitReviewHandler struct {
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

// Handle stores the review and appends its id to the listing.
func (h *SubmitReviewHandler) Handle(ctx context.Context, cmd SubmitReviewCommand) (dto.Review, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return dto.Review{}, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return dto.Review{}, err
	}
	if string(listing.Owner) == cmd.AuthorID {
		return dto.Review{}, domainreviews.ErrOwnListing
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	review, err := domainreviews.Submit(domainreviews.SubmitParams{
		ID:        domainreviews.ReviewID(uuid.NewString()),
		ListingID: listing.ID,
		AuthorID:  cmd.AuthorID,
		Rating:    cmd.Rating,
		Comment:   cmd.Comment,
		CreatedAt: now,
	})
	if err != nil {
		return dto.Review{}, err
	}
	if err := unit.Reviews().Save(ctx, review); err != nil {
		return dto.Review{}, err
	}
	listing.AttachReview(domainlistings.ReviewRef(review.ID))
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return dto.Review{}, err
	}
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, review.Drain()); err != nil {
		return dto.Review{}, fmt.Errorf("%w: record events: %w", uow.ErrTxFailed, err)
	}
	author, err := unit.Users().ByID(ctx, domainuser.ID(cmd.AuthorID))
	if err != nil {
		author = nil
	}
	if h.Logger != nil {
		h.Logger.Info("review submitted", "review_id", review.ID, "listing_id", listing.ID, "rating", review.Rating)
	}
	return dto.MapReview(review, author), nil
}

type DeleteReviewCommand struct {
	ListingID string `validate:"required"`
	ReviewID  string `validate:"required"`
	ActorIDV  string `validate:"required"`
}

func (c DeleteReviewCommand) Key() string     { return DeleteReviewKey }
func (c DeleteReviewCommand) ActorID() string { return c.ActorIDV }

type DeleteReviewHandler struct {
	Encoder outbox.EventEncoder
	Now     func() time.Time
}

// Handle removes the review and its reference on the listing. Only the author may delete.
func (h *DeleteReviewHandler) Handle(ctx context.Context, cmd DeleteReviewCommand) (struct{}, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return struct{}{}, uow.ErrUnitOfWorkMissing
	}
	review, err := unit.Reviews().ByID(ctx, domainreviews.ReviewID(cmd.ReviewID))
	if err != nil {
		return struct{}{}, err
	}
	if string(review.ListingID) != cmd.ListingID {
		return struct{}{}, domainreviews.ErrNotFound
	}
	if err := review.EnsureAuthor(cmd.ActorIDV); err != nil {
		return struct{}{}, err
	}
	if err := unit.Reviews().Delete(ctx, review.ID); err != nil {
		return struct{}{}, err
	}
	listing, err := unit.Listings().ByID(ctx, review.ListingID)
	if err != nil {
		return struct{}{}, err
	}
	if listing.DetachReview(domainlistings.ReviewRef(review.ID)) {
		if err := unit.Listings().Save(ctx, listing); err != nil {
			return struct{}{}, err
		}
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	review.Record(domainreviews.ReviewDeleted{ReviewID: review.ID, ListingID: review.ListingID, At: now.UTC()})
	if err := outbox.RecordDomainEvents(ctx, unit.Outbox(), h.Encoder, review.Drain()); err != nil {
		return struct{}{}, fmt.Errorf("%w: record events: %w", uow.ErrTxFailed, err)
	}
	return struct{}{}, nil
}

var _ commands.Handler[SubmitReviewCommand, dto.Review] = (*SubmitReviewHandler)(nil)
var _ commands.Handler[DeleteReviewCommand, struct{}] = (*DeleteReviewHandler)(nil)
