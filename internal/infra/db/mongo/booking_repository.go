package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "stayscape/internal/domain/booking"
	"stayscape/internal/domain/listings"
	domainrange "stayscape/internal/domain/shared/daterange"
)

// BookingRepository must be used with a context carrying a transaction
// session; Create relies on it for overlap detection.
type BookingRepository struct {
	col    *mongo.Collection
	guards *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection), guards: db.Collection(guardsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if isNoDocuments(err) {
			return nil, domainbooking.ErrNotFound
		}
		return nil, storageErr("find booking", err)
	}
	return doc.toAggregate(), nil
}

// Create bumps the listing guard first. Two transactions creating bookings
// for the same listing both write the guard, so one of them aborts with a
// write conflict before either overlap check can go stale.
func (r *BookingRepository) Create(ctx context.Context, b *domainbooking.Booking) error {
	if err := bumpGuard(ctx, r.guards, b.ListingID); err != nil {
		return storageErr("lock listing", err)
	}
	n, err := r.col.CountDocuments(ctx, overlapFilter(b.ListingID, b.Range), options.Count().SetLimit(1))
	if err != nil {
		return storageErr("check overlap", err)
	}
	if n > 0 {
		return domainbooking.ErrDateConflict
	}
	if _, err := r.col.InsertOne(ctx, newBookingDocument(b)); err != nil {
		return storageErr("insert booking", err)
	}
	return nil
}

func bumpGuard(ctx context.Context, guards *mongo.Collection, listingID listings.ListingID) error {
	_, err := guards.UpdateByID(ctx, string(listingID),
		bson.M{"$inc": bson.M{"seq": 1}, "$set": bson.M{"updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	return err
}

func overlapFilter(listingID listings.ListingID, dr domainrange.DateRange) bson.M {
	return bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$ne": string(domainbooking.StatusCancelled)},
		"check_in":   bson.M{"$lt": dr.CheckOut.UnixMilli()},
		"check_out":  bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return storageErr("save booking", err)
	}
	if res.MatchedCount == 0 {
		var probe bson.M
		if err := r.col.FindOne(ctx, bson.M{"_id": doc.ID}, options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&probe); isNoDocuments(err) {
			return domainbooking.ErrNotFound
		}
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"guest_id": guestID}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (r *BookingRepository) ListByListings(ctx context.Context, listingIDs []listings.ListingID) ([]*domainbooking.Booking, error) {
	if len(listingIDs) == 0 {
		return nil, nil
	}
	ids := make(bson.A, 0, len(listingIDs))
	for _, id := range listingIDs {
		ids = append(ids, string(id))
	}
	return r.find(ctx, bson.M{"listing_id": bson.M{"$in": ids}}, bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
}

func (r *BookingRepository) ListOccupying(ctx context.Context, listingID listings.ListingID, from time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"listing_id": string(listingID),
		"status":     bson.M{"$ne": string(domainbooking.StatusCancelled)},
		"check_out":  bson.M{"$gte": from.UnixMilli()},
	}
	return r.find(ctx, filter, bson.D{{Key: "check_in", Value: 1}})
}

func (r *BookingRepository) ListEndedConfirmed(ctx context.Context, before time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":    string(domainbooking.StatusConfirmed),
		"check_out": bson.M{"$lte": before.UnixMilli()},
	}
	return r.find(ctx, filter, bson.D{{Key: "check_out", Value: 1}})
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, sort bson.D) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, storageErr("find bookings", err)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr("decode bookings", err)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type bookingDocument struct {
	ID         string `bson:"_id"`
	ListingID  string `bson:"listing_id"`
	GuestID    string `bson:"guest_id"`
	CheckIn    int64  `bson:"check_in"`
	CheckOut   int64  `bson:"check_out"`
	Guests     int    `bson:"guests"`
	TotalPrice int64  `bson:"total_price"`
	Status     string `bson:"status"`
	CreatedAt  int64  `bson:"created_at"`
	UpdatedAt  int64  `bson:"updated_at"`
	Version    int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:         string(b.ID),
		ListingID:  string(b.ListingID),
		GuestID:    b.GuestID,
		CheckIn:    b.Range.CheckIn.UnixMilli(),
		CheckOut:   b.Range.CheckOut.UnixMilli(),
		Guests:     b.Guests,
		TotalPrice: b.TotalPrice,
		Status:     string(b.Status),
		CreatedAt:  b.CreatedAt.UnixMilli(),
		UpdatedAt:  b.UpdatedAt.UnixMilli(),
		Version:    b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:         domainbooking.BookingID(d.ID),
		ListingID:  listings.ListingID(d.ListingID),
		GuestID:    d.GuestID,
		Range:      domainrange.DateRange{CheckIn: timestampToTime(d.CheckIn), CheckOut: timestampToTime(d.CheckOut)},
		Guests:     d.Guests,
		TotalPrice: d.TotalPrice,
		Status:     domainbooking.Status(d.Status),
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
		Version:    d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
