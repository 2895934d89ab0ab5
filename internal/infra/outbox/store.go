package outbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "stayscape/internal/app/outbox"
)

var ErrMessageNotFound = errors.New("outbox: message not found")

// Message is a committed event record claimed for delivery.
type Message struct {
	ID            string
	Name          string
	AggregateType string
	AggregateID   string
	Payload       []byte
	OccurredAt    time.Time
	Headers       map[string]string
	Attempts      int
}

// Store hands committed records to the relay. Claim returns nil when nothing is due.
type Store interface {
	Claim(ctx context.Context, workerID string, now time.Time) (*Message, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

const collectionName = "outbox"

// MongoStore keeps records in the outbox collection. Add runs inside the
// caller's session context so records commit with the aggregate writes.
type MongoStore struct {
	col *mongo.Collection
	// ClaimTimeout releases claims of workers that died mid-delivery.
	ClaimTimeout time.Duration
}

func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	col := db.Collection(collectionName)
	_, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}},
		{Keys: bson.D{{Key: "aggregate_type", Value: 1}, {Key: "aggregate_id", Value: 1}}},
	})
	if err != nil {
		return nil, err
	}
	return &MongoStore{col: col, ClaimTimeout: time.Minute}, nil
}

type eventDocument struct {
	ID            string            `bson:"_id"`
	Name          string            `bson:"name"`
	AggregateType string            `bson:"aggregate_type"`
	AggregateID   string            `bson:"aggregate_id"`
	Payload       []byte            `bson:"payload"`
	OccurredAt    time.Time         `bson:"occurred_at"`
	Headers       map[string]string `bson:"headers"`
	State         string            `bson:"state"`
	Attempts      int               `bson:"attempts"`
	NextAttempt   time.Time         `bson:"next_attempt_at"`
	ClaimedBy     string            `bson:"claimed_by,omitempty"`
	ClaimedAt     time.Time         `bson:"claimed_at,omitempty"`
	SentAt        time.Time         `bson:"sent_at,omitempty"`
	LastError     string            `bson:"last_error,omitempty"`
	CreatedAt     time.Time         `bson:"created_at"`
}

func (s *MongoStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := time.Now().UTC()
	doc := eventDocument{
		ID:            record.ID,
		Name:          record.Name,
		AggregateType: record.AggregateType,
		AggregateID:   record.AggregateID,
		Payload:       record.Payload,
		OccurredAt:    record.OccurredAt,
		Headers:       record.Headers,
		State:         stateNew,
		NextAttempt:   now,
		CreatedAt:     now,
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

func (s *MongoStore) Claim(ctx context.Context, workerID string, now time.Time) (*Message, error) {
	now = now.UTC()
	filter := bson.M{"$or": bson.A{
		bson.M{"state": bson.M{"$in": bson.A{stateNew, stateFailed}}, "next_attempt_at": bson.M{"$lte": now}},
		bson.M{"state": stateClaimed, "claimed_at": bson.M{"$lte": now.Add(-s.claimTimeout())}},
	}}
	update := bson.M{"$set": bson.M{"state": stateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "created_at", Value: 1}})
	var doc eventDocument
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &Message{
		ID:            doc.ID,
		Name:          doc.Name,
		AggregateType: doc.AggregateType,
		AggregateID:   doc.AggregateID,
		Payload:       doc.Payload,
		OccurredAt:    doc.OccurredAt,
		Headers:       doc.Headers,
		Attempts:      doc.Attempts,
	}, nil
}

func (s *MongoStore) MarkSent(ctx context.Context, id string, at time.Time) error {
	res, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"state": stateSent, "sent_at": at.UTC()},
		"$unset": bson.M{"last_error": ""},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *MongoStore) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"state":           stateFailed,
			"next_attempt_at": next.UTC(),
			"last_error":      errMsg,
		},
		"$inc": bson.M{"attempts": 1},
	}
	res, err := s.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (s *MongoStore) claimTimeout() time.Duration {
	if s.ClaimTimeout <= 0 {
		return time.Minute
	}
	return s.ClaimTimeout
}

var _ Store = (*MongoStore)(nil)
var _ appoutbox.Outbox = (*MongoStore)(nil)
