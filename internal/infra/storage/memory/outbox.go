package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "stayscape/internal/app/outbox"
	infraoutbox "stayscape/internal/infra/outbox"
)

type outboxState int

const (
	outboxNew outboxState = iota
	outboxClaimed
	outboxSent
	outboxFailed
)

type outboxEntry struct {
	record      appoutbox.EventRecord
	state       outboxState
	attempts    int
	nextAttempt time.Time
	claimedBy   string
	lastError   string
}

// outboxLog holds committed event records in commit order.
type outboxLog struct {
	mu      sync.Mutex
	entries []*outboxEntry
	index   map[string]*outboxEntry
}

func newOutboxLog() *outboxLog {
	return &outboxLog{index: make(map[string]*outboxEntry)}
}

func (l *outboxLog) append(records []appoutbox.EventRecord) {
	if len(records) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range records {
		if _, dup := l.index[rec.ID]; dup {
			continue
		}
		entry := &outboxEntry{record: rec, state: outboxNew}
		l.entries = append(l.entries, entry)
		l.index[rec.ID] = entry
	}
}

// OutboxStore exposes committed event records to the relay worker.
type OutboxStore struct {
	log *outboxLog
}

func (s *Store) OutboxStore() *OutboxStore {
	return &OutboxStore{log: s.outbox}
}

func (s *OutboxStore) Claim(_ context.Context, workerID string, now time.Time) (*infraoutbox.Message, error) {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()
	for _, entry := range s.log.entries {
		if entry.state != outboxNew && entry.state != outboxFailed {
			continue
		}
		if entry.nextAttempt.After(now) {
			continue
		}
		entry.state = outboxClaimed
		entry.claimedBy = workerID
		msg := infraoutbox.Message{
			ID:            entry.record.ID,
			Name:          entry.record.Name,
			AggregateType: entry.record.AggregateType,
			AggregateID:   entry.record.AggregateID,
			Payload:       append([]byte(nil), entry.record.Payload...),
			OccurredAt:    entry.record.OccurredAt,
			Headers:       copyHeaders(entry.record.Headers),
			Attempts:      entry.attempts,
		}
		return &msg, nil
	}
	return nil, nil
}

func (s *OutboxStore) MarkSent(_ context.Context, id string, _ time.Time) error {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()
	entry, ok := s.log.index[id]
	if !ok {
		return infraoutbox.ErrMessageNotFound
	}
	entry.state = outboxSent
	entry.lastError = ""
	return nil
}

func (s *OutboxStore) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()
	entry, ok := s.log.index[id]
	if !ok {
		return infraoutbox.ErrMessageNotFound
	}
	entry.state = outboxFailed
	entry.attempts++
	entry.nextAttempt = next
	entry.lastError = errMsg
	return nil
}

// Pending counts records not yet sent.
func (s *OutboxStore) Pending() int {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()
	n := 0
	for _, entry := range s.log.entries {
		if entry.state != outboxSent {
			n++
		}
	}
	return n
}

// Records returns every committed record in commit order.
func (s *OutboxStore) Records() []appoutbox.EventRecord {
	s.log.mu.Lock()
	defer s.log.mu.Unlock()
	out := make([]appoutbox.EventRecord, 0, len(s.log.entries))
	for _, entry := range s.log.entries {
		out = append(out, entry.record)
	}
	return out
}

func copyHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ infraoutbox.Store = (*OutboxStore)(nil)
