package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	listingsCollection    = "listings"
	bookingsCollection    = "bookings"
	guardsCollection      = "listing_booking_guards"
	reviewsCollection     = "reviews"
	usersCollection       = "users"
	sessionsCollection    = "sessions"
	idempotencyCollection = "idempotency"
)

// EnsureIndexes creates collections and indexes. Collections must exist
// before transactions write to them on older servers.
func EnsureIndexes(ctx context.Context, db *mongo.Database, idempotencyTTL time.Duration) error {
	specs := map[string][]mongo.IndexModel{
		listingsCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "category", Value: 1}, {Key: "price", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		bookingsCollection: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "status", Value: 1}, {Key: "check_in", Value: 1}}},
			{Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "check_out", Value: 1}}},
		},
		reviewsCollection: {
			{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "author_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		sessionsCollection: {
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
	if idempotencyTTL > 0 {
		specs[idempotencyCollection] = []mongo.IndexModel{{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(idempotencyTTL.Seconds())),
		}}
	}
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return err
	}
	have := make(map[string]struct{}, len(existing))
	for _, name := range existing {
		have[name] = struct{}{}
	}
	for _, name := range []string{listingsCollection, bookingsCollection, guardsCollection, reviewsCollection, usersCollection, sessionsCollection, idempotencyCollection} {
		if _, ok := have[name]; !ok {
			if err := db.CreateCollection(ctx, name); err != nil && !isNamespaceExists(err) {
				return err
			}
		}
		if models := specs[name]; len(models) > 0 {
			if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
				return err
			}
		}
	}
	return nil
}

func isNamespaceExists(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == 48
}
