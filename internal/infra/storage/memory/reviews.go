package memory

import (
	"context"
	"sort"

	domainlistings "stayscape/internal/domain/listings"
	domainreviews "stayscape/internal/domain/reviews"
)

type reviewRepo struct {
	u *Unit
}

func (r reviewRepo) ByID(_ context.Context, id domainreviews.ReviewID) (*domainreviews.Review, error) {
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	rev, ok := r.u.reviews.lookup(r.u.store.reviews, id)
	if !ok {
		return nil, domainreviews.ErrNotFound
	}
	return rev.Clone(), nil
}

func (r reviewRepo) ByIDs(_ context.Context, ids []domainreviews.ReviewID) ([]*domainreviews.Review, error) {
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	out := make([]*domainreviews.Review, 0, len(ids))
	for _, id := range ids {
		if rev, ok := r.u.reviews.lookup(r.u.store.reviews, id); ok {
			out = append(out, rev.Clone())
		}
	}
	return out, nil
}

func (r reviewRepo) ListByListing(_ context.Context, listingID domainlistings.ListingID) ([]*domainreviews.Review, error) {
	r.u.store.mu.RLock()
	out := make([]*domainreviews.Review, 0)
	r.u.reviews.each(r.u.store.reviews, func(_ domainreviews.ReviewID, rev *domainreviews.Review) {
		if rev.ListingID == listingID {
			out = append(out, rev.Clone())
		}
	})
	r.u.store.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r reviewRepo) ListByAuthor(_ context.Context, authorID string) ([]*domainreviews.Review, error) {
	r.u.store.mu.RLock()
	out := make([]*domainreviews.Review, 0)
	r.u.reviews.each(r.u.store.reviews, func(_ domainreviews.ReviewID, rev *domainreviews.Review) {
		if rev.AuthorID == authorID {
			out = append(out, rev.Clone())
		}
	})
	r.u.store.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r reviewRepo) Save(_ context.Context, review *domainreviews.Review) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.reviews.put(review.ID, review.Clone())
	return nil
}

func (r reviewRepo) Delete(_ context.Context, id domainreviews.ReviewID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.store.mu.RLock()
	_, ok := r.u.reviews.lookup(r.u.store.reviews, id)
	r.u.store.mu.RUnlock()
	if !ok {
		return domainreviews.ErrNotFound
	}
	r.u.reviews.del(id)
	return nil
}

func (r reviewRepo) DeleteByListing(ctx context.Context, listingID domainlistings.ListingID) (int, error) {
	if err := r.u.writable(); err != nil {
		return 0, err
	}
	items, err := r.ListByListing(ctx, listingID)
	if err != nil {
		return 0, err
	}
	for _, rev := range items {
		r.u.reviews.del(rev.ID)
	}
	return len(items), nil
}
