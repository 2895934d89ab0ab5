package outbox

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayscape/internal/domain/shared/events"
)

type EventRecord struct {
	ID            string
	Name          string
	AggregateType string
	AggregateID   string
	Payload       []byte
	OccurredAt    time.Time
	Headers       map[string]string
}

// Outbox stages event records inside a unit of work.
type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
}

// Flusher is notified after a command commits so pending records ship promptly.
type Flusher interface {
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, err
	}
	idGen := e.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	return EventRecord{
		ID:            idGen(),
		Name:          ev.EventName(),
		AggregateType: AggregateType(ev.EventName()),
		AggregateID:   ev.AggregateID(),
		Payload:       payload,
		OccurredAt:    ev.OccurredAt().UTC(),
		Headers:       map[string]string{"content-type": "application/json"},
	}, nil
}

// AggregateType is the first dotted segment of an event name.
func AggregateType(name string) string {
	if idx := strings.IndexByte(name, '.'); idx > 0 {
		return name[:idx]
	}
	return name
}

func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil || len(evs) == 0 {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
