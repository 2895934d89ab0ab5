package dto

import (
	"time"

	domainreviews "stayscape/internal/domain/reviews"
	domainuser "stayscape/internal/domain/user"
)

type Review struct {
	ID        string      `json:"id"`
	ListingID string      `json:"listing_id"`
	Author    UserSummary `json:"author"`
	Rating    int         `json:"rating"`
	Comment   string      `json:"comment"`
	CreatedAt time.Time   `json:"created_at"`
}

func MapReview(review *domainreviews.Review, author *domainuser.User) Review {
	if review == nil {
		return Review{}
	}
	summary := UserSummary{ID: review.AuthorID}
	if author != nil {
		summary = MapUserSummary(author)
	}
	return Review{
		ID:        string(review.ID),
		ListingID: string(review.ListingID),
		Author:    summary,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: review.CreatedAt,
	}
}
