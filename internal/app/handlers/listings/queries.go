package listings

import (
	"context"

	"stayscape/internal/app/dto"
	"stayscape/internal/app/queries"
	"stayscape/internal/app/uow"
	domainlistings "stayscape/internal/domain/listings"
	domainreviews "stayscape/internal/domain/reviews"
	domainuser "stayscape/internal/domain/user"
)

const (
	GetListingKey     = "listings.get"
	SearchListingsKey = "listings.search"
	ListingsMapKey    = "listings.map"
)

type GetListingQuery struct {
	ID string
}

func (q GetListingQuery) Key() string { return GetListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle resolves the owner and the reviews with their authors, in listing order.
func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.ListingDetail, error) {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingDetail{}, err
	}
	defer release()

	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ID))
	if err != nil {
		return dto.ListingDetail{}, err
	}
	refs := make([]domainreviews.ReviewID, 0, len(listing.Reviews))
	for _, ref := range listing.Reviews {
		refs = append(refs, domainreviews.ReviewID(ref))
	}
	var reviews []*domainreviews.Review
	if len(refs) > 0 {
		reviews, err = unit.Reviews().ByIDs(execCtx, refs)
		if err != nil {
			return dto.ListingDetail{}, err
		}
	}
	userIDs := []domainuser.ID{domainuser.ID(listing.Owner)}
	for _, r := range reviews {
		userIDs = append(userIDs, domainuser.ID(r.AuthorID))
	}
	users, err := unit.Users().ByIDs(execCtx, userIDs)
	if err != nil {
		return dto.ListingDetail{}, err
	}
	byID := make(map[string]*domainuser.User, len(users))
	for _, u := range users {
		byID[string(u.ID)] = u
	}
	return dto.MapListingDetail(listing, byID[string(listing.Owner)], reviews, byID), nil
}

type SearchListingsQuery struct {
	Query    string
	Category string
	MinPrice *int64
	MaxPrice *int64
	Location string
	Limit    int
	Offset   int
}

func (q SearchListingsQuery) Key() string { return SearchListingsKey }

func (q SearchListingsQuery) params() (domainlistings.SearchParams, error) {
	params := domainlistings.SearchParams{
		Query:    q.Query,
		MinPrice: q.MinPrice,
		MaxPrice: q.MaxPrice,
		Location: q.Location,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.Category != "" {
		category, err := domainlistings.ParseCategory(q.Category)
		if err != nil {
			return domainlistings.SearchParams{}, err
		}
		params.Category = category
	}
	return params.Normalized(), nil
}

type SearchListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchListingsHandler) Handle(ctx context.Context, q SearchListingsQuery) (dto.ListingCatalog, error) {
	params, err := q.params()
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	defer release()

	result, err := unit.Listings().Search(execCtx, params)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	ownerIDs := make([]domainuser.ID, 0, len(result.Items))
	for _, l := range result.Items {
		ownerIDs = append(ownerIDs, domainuser.ID(l.Owner))
	}
	owners := map[domainuser.ID]*domainuser.User{}
	if len(ownerIDs) > 0 {
		users, err := unit.Users().ByIDs(execCtx, ownerIDs)
		if err != nil {
			return dto.ListingCatalog{}, err
		}
		for _, u := range users {
			owners[u.ID] = u
		}
	}
	items := make([]dto.Listing, 0, len(result.Items))
	for _, l := range result.Items {
		items = append(items, dto.MapListing(l, owners[domainuser.ID(l.Owner)]))
	}
	return dto.ListingCatalog{Items: items, Total: result.Total, Limit: params.Limit, Offset: params.Offset}, nil
}

// ListingsMapQuery applies the same filters as search but returns every match.
type ListingsMapQuery struct {
	SearchListingsQuery
}

func (q ListingsMapQuery) Key() string { return ListingsMapKey }

type ListingsMapHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListingsMapHandler) Handle(ctx context.Context, q ListingsMapQuery) (dto.FeatureCollection, error) {
	params, err := q.params()
	if err != nil {
		return dto.FeatureCollection{}, err
	}
	params.Unbounded = true
	params = params.Normalized()

	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.FeatureCollection{}, err
	}
	defer release()

	result, err := unit.Listings().Search(execCtx, params)
	if err != nil {
		return dto.FeatureCollection{}, err
	}
	return dto.MapFeatureCollection(result.Items), nil
}

var (
	_ queries.Handler[GetListingQuery, dto.ListingDetail]      = (*GetListingHandler)(nil)
	_ queries.Handler[SearchListingsQuery, dto.ListingCatalog] = (*SearchListingsHandler)(nil)
	_ queries.Handler[ListingsMapQuery, dto.FeatureCollection] = (*ListingsMapHandler)(nil)
)
