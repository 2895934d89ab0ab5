package mongo

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "stayscape/internal/domain/listings"
)

type ListingRepository struct {
	col    *mongo.Collection
	guards *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection), guards: db.Collection(guardsCollection)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, driverErr("find listing", err)
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) ByIDs(ctx context.Context, ids []domainlistings.ListingID) ([]*domainlistings.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in := make(bson.A, 0, len(ids))
	for _, id := range ids {
		in = append(in, string(id))
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": in}}, options.Find())
}

func (r *ListingRepository) ListByOwner(ctx context.Context, owner domainlistings.HostID) ([]*domainlistings.Listing, error) {
	return r.find(ctx, bson.M{"owner": string(owner)}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	filter := searchFilter(opts)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainlistings.SearchResult{}, driverErr("count listings", err)
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if !opts.Unbounded {
		findOpts = findOpts.SetSkip(int64(opts.Offset)).SetLimit(int64(opts.Limit))
	}
	items, err := r.find(ctx, filter, findOpts)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	return domainlistings.SearchResult{Items: items, Total: int(total)}, nil
}

// searchFilter mirrors SearchParams.Matches. Params must be normalized.
func searchFilter(p domainlistings.SearchParams) bson.M {
	filter := bson.M{}
	if p.Owner != "" {
		filter["owner"] = string(p.Owner)
	}
	if p.Query != "" {
		filter["$or"] = anyFieldContains(p.Query, "title", "location", "country")
	} else if p.Location != "" {
		filter["$or"] = anyFieldContains(p.Location, "location", "country")
	}
	if p.Category != "" {
		filter["category"] = string(p.Category)
	}
	price := bson.M{}
	if p.MinPrice != nil {
		price["$gte"] = *p.MinPrice
	}
	if p.MaxPrice != nil {
		price["$lte"] = *p.MaxPrice
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return filter
}

func anyFieldContains(needle string, fields ...string) bson.A {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(needle), Options: "i"}
	out := make(bson.A, 0, len(fields))
	for _, f := range fields {
		out = append(out, bson.M{f: pattern})
	}
	return out
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return driverErr("save listing", err)
	}
	return nil
}

// Delete bumps the booking guard of the listing, so a transaction creating a
// booking for it concurrently aborts with a write conflict.
func (r *ListingRepository) Delete(ctx context.Context, id domainlistings.ListingID) error {
	if err := bumpGuard(ctx, r.guards, id); err != nil {
		return driverErr("lock listing", err)
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return driverErr("delete listing", err)
	}
	if res.DeletedCount == 0 {
		return domainlistings.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainlistings.Listing, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, driverErr("find listings", err)
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, driverErr("decode listings", err)
	}
	out := make([]*domainlistings.Listing, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type imageDocument struct {
	URL      string `bson:"url"`
	Filename string `bson:"filename"`
}

type geometryDocument struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type listingDocument struct {
	ID          string           `bson:"_id"`
	Owner       string           `bson:"owner"`
	Title       string           `bson:"title"`
	Description string           `bson:"description"`
	Price       int64            `bson:"price"`
	Location    string           `bson:"location"`
	Country     string           `bson:"country"`
	Geometry    geometryDocument `bson:"geometry"`
	Category    string           `bson:"category"`
	Amenities   []string         `bson:"amenities"`
	Image       imageDocument    `bson:"image"`
	Images      []imageDocument  `bson:"images"`
	Reviews     []string         `bson:"reviews"`
	CreatedAt   time.Time        `bson:"created_at"`
	UpdatedAt   time.Time        `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	doc := listingDocument{
		ID:          string(l.ID),
		Owner:       string(l.Owner),
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Location:    l.Location,
		Country:     l.Country,
		Geometry:    geometryDocument{Type: "Point", Coordinates: l.Geometry.Coordinates()},
		Category:    string(l.Category),
		Amenities:   make([]string, 0, len(l.Amenities)),
		Image:       imageDocument{URL: l.Image.URL, Filename: l.Image.Filename},
		Images:      make([]imageDocument, 0, len(l.Images)),
		Reviews:     make([]string, 0, len(l.Reviews)),
		CreatedAt:   l.CreatedAt.UTC(),
		UpdatedAt:   l.UpdatedAt.UTC(),
	}
	for _, a := range l.Amenities {
		doc.Amenities = append(doc.Amenities, string(a))
	}
	for _, img := range l.Images {
		doc.Images = append(doc.Images, imageDocument{URL: img.URL, Filename: img.Filename})
	}
	for _, ref := range l.Reviews {
		doc.Reviews = append(doc.Reviews, string(ref))
	}
	return doc
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	l := &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		Owner:       domainlistings.HostID(d.Owner),
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Location:    d.Location,
		Country:     d.Country,
		Category:    domainlistings.Category(d.Category),
		Image:       domainlistings.Image{URL: d.Image.URL, Filename: d.Image.Filename},
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if len(d.Geometry.Coordinates) == 2 {
		l.Geometry = domainlistings.Point{Longitude: d.Geometry.Coordinates[0], Latitude: d.Geometry.Coordinates[1]}
	}
	for _, a := range d.Amenities {
		l.Amenities = append(l.Amenities, domainlistings.Amenity(a))
	}
	for _, img := range d.Images {
		l.Images = append(l.Images, domainlistings.Image{URL: img.URL, Filename: img.Filename})
	}
	for _, ref := range d.Reviews {
		l.Reviews = append(l.Reviews, domainlistings.ReviewRef(ref))
	}
	return l
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)
