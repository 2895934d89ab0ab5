package memory

import (
	"context"
	"errors"
	"sync"

	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
	domainreviews "stayscape/internal/domain/reviews"
	domainuser "stayscape/internal/domain/user"
)

var (
	ErrUnitClosed = errors.New("memory: unit of work already finished")
	errReadOnly   = errors.New("memory: write in read-only unit of work")
)

// Store keeps committed state for every aggregate. Write units are serialized
// through a single writer slot; their changes are staged and applied
// atomically on commit.
type Store struct {
	mu       sync.RWMutex
	writer   chan struct{}
	listings map[domainlistings.ListingID]*domainlistings.Listing
	bookings map[domainbooking.BookingID]*domainbooking.Booking
	reviews  map[domainreviews.ReviewID]*domainreviews.Review
	users    map[domainuser.ID]*domainuser.User
	outbox   *outboxLog
}

func NewStore() *Store {
	return &Store{
		writer:   make(chan struct{}, 1),
		listings: make(map[domainlistings.ListingID]*domainlistings.Listing),
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
		reviews:  make(map[domainreviews.ReviewID]*domainreviews.Review),
		users:    make(map[domainuser.ID]*domainuser.User),
		outbox:   newOutboxLog(),
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.writer <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.writer
}

// overlay stages puts and deletes on top of a committed map.
type overlay[K comparable, V any] struct {
	puts map[K]V
	dels map[K]struct{}
}

func newOverlay[K comparable, V any]() overlay[K, V] {
	return overlay[K, V]{puts: make(map[K]V), dels: make(map[K]struct{})}
}

func (o *overlay[K, V]) put(k K, v V) {
	delete(o.dels, k)
	o.puts[k] = v
}

func (o *overlay[K, V]) del(k K) {
	delete(o.puts, k)
	o.dels[k] = struct{}{}
}

// lookup resolves k against the staged changes first and base second.
func (o *overlay[K, V]) lookup(base map[K]V, k K) (V, bool) {
	var zero V
	if _, deleted := o.dels[k]; deleted {
		return zero, false
	}
	if v, ok := o.puts[k]; ok {
		return v, true
	}
	v, ok := base[k]
	return v, ok
}

// each visits the merged view. Iteration order is unspecified.
func (o *overlay[K, V]) each(base map[K]V, fn func(K, V)) {
	for k, v := range base {
		if _, deleted := o.dels[k]; deleted {
			continue
		}
		if _, replaced := o.puts[k]; replaced {
			continue
		}
		fn(k, v)
	}
	for k, v := range o.puts {
		fn(k, v)
	}
}

func (o *overlay[K, V]) apply(base map[K]V) {
	for k := range o.dels {
		delete(base, k)
	}
	for k, v := range o.puts {
		base[k] = v
	}
}

func (o *overlay[K, V]) empty() bool {
	return len(o.puts) == 0 && len(o.dels) == 0
}
