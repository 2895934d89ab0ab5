package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayscape/internal/domain/listings"
	"stayscape/internal/domain/shared/events"
)

var (
	ErrInvalidRating   = errors.New("reviews: rating must be between 1 and 5")
	ErrCommentRequired = errors.New("reviews: comment is required")
	ErrNotFound        = errors.New("reviews: not found")
	ErrNotAuthor       = errors.New("reviews: only the author may delete a review")
	ErrOwnListing      = errors.New("reviews: hosts cannot review their own listing")
)

type ReviewID string

type Review struct {
	ID        ReviewID
	ListingID listings.ListingID
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
	events.Recorder
}

type Repository interface {
	ByID(ctx context.Context, id ReviewID) (*Review, error)
	ByIDs(ctx context.Context, ids []ReviewID) ([]*Review, error)
	ListByListing(ctx context.Context, listingID listings.ListingID) ([]*Review, error)
	// ListByAuthor returns the author's reviews, oldest first.
	ListByAuthor(ctx context.Context, authorID string) ([]*Review, error)
	Save(ctx context.Context, review *Review) error
	Delete(ctx context.Context, id ReviewID) error
	// DeleteByListing removes every review of a listing and returns how many were removed.
	DeleteByListing(ctx context.Context, listingID listings.ListingID) (int, error)
}

type SubmitParams struct {
	ID        ReviewID
	ListingID listings.ListingID
	AuthorID  string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func Submit(params SubmitParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, ErrInvalidRating
	}
	comment := strings.TrimSpace(params.Comment)
	if comment == "" {
		return nil, ErrCommentRequired
	}
	if strings.TrimSpace(params.AuthorID) == "" {
		return nil, errors.New("reviews: author is required")
	}
	review := &Review{
		ID:        params.ID,
		ListingID: params.ListingID,
		AuthorID:  params.AuthorID,
		Rating:    params.Rating,
		Comment:   comment,
		CreatedAt: params.CreatedAt.UTC(),
	}
	review.Record(ReviewSubmitted{ReviewID: review.ID, ListingID: review.ListingID, Rating: review.Rating, At: review.CreatedAt})
	return review, nil
}

func (r *Review) EnsureAuthor(actor string) error {
	if actor == "" || r.AuthorID != actor {
		return ErrNotAuthor
	}
	return nil
}

func (r *Review) Clone() *Review {
	if r == nil {
		return nil
	}
	out := *r
	out.Recorder = events.Recorder{}
	return &out
}
