package memory

import (
	"context"
	"sort"

	domainlistings "stayscape/internal/domain/listings"
)

type listingRepo struct {
	u *Unit
}

func (r listingRepo) ByID(_ context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	l, ok := r.u.listings.lookup(r.u.store.listings, id)
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return l.Clone(), nil
}

func (r listingRepo) ByIDs(_ context.Context, ids []domainlistings.ListingID) ([]*domainlistings.Listing, error) {
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0, len(ids))
	seen := make(map[domainlistings.ListingID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if l, ok := r.u.listings.lookup(r.u.store.listings, id); ok {
			out = append(out, l.Clone())
		}
	}
	return out, nil
}

func (r listingRepo) ListByOwner(ctx context.Context, owner domainlistings.HostID) ([]*domainlistings.Listing, error) {
	res, err := r.Search(ctx, domainlistings.SearchParams{Owner: owner, Unbounded: true})
	if err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Search returns matches in creation order.
func (r listingRepo) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	r.u.store.mu.RLock()
	matches := make([]*domainlistings.Listing, 0)
	r.u.listings.each(r.u.store.listings, func(_ domainlistings.ListingID, l *domainlistings.Listing) {
		if opts.Matches(l) {
			matches = append(matches, l)
		}
	})
	r.u.store.mu.RUnlock()
	if err := ctx.Err(); err != nil {
		return domainlistings.SearchResult{}, err
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	page := opts.Page(matches)
	items := make([]*domainlistings.Listing, 0, len(page))
	for _, l := range page {
		items = append(items, l.Clone())
	}
	return domainlistings.SearchResult{Items: items, Total: len(matches)}, nil
}

func (r listingRepo) Save(_ context.Context, listing *domainlistings.Listing) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.listings.put(listing.ID, listing.Clone())
	return nil
}

func (r listingRepo) Delete(_ context.Context, id domainlistings.ListingID) error {
	if err := r.u.writable(); err != nil {
		return err
	}
	r.u.store.mu.RLock()
	_, ok := r.u.listings.lookup(r.u.store.listings, id)
	r.u.store.mu.RUnlock()
	if !ok {
		return domainlistings.ErrNotFound
	}
	r.u.listings.del(id)
	return nil
}
