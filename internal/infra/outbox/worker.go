package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	appoutbox "stayscape/internal/app/outbox"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// Worker relays committed records to a Producer as CloudEvents. Delivery is
// at least once; failed records are retried after Backoff.
type Worker struct {
	Store       Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger
	Now         func() time.Time

	wake chan struct{}
}

// NewWorker returns a worker ready to Run.
func NewWorker(store Store, producer Producer, logger *slog.Logger) *Worker {
	return &Worker{
		Store:    store,
		Producer: producer,
		Logger:   logger,
		Backoff:  []time.Duration{time.Second, 5 * time.Second, 30 * time.Second, 2 * time.Minute},
		wake:     make(chan struct{}, 1),
	}
}

// Flush asks a running worker to drain now. It never blocks.
func (w *Worker) Flush(context.Context) error {
	if w.wake == nil {
		return nil
	}
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	if w.wake == nil {
		w.wake = make(chan struct{}, 1)
	}
	id := w.workerID()
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	w.logger().Info("outbox worker started", "worker_id", id, "interval", w.interval())
	for {
		select {
		case <-ctx.Done():
			w.logger().Info("outbox worker stopped", "worker_id", id)
			return nil
		case <-ticker.C:
		case <-w.wake:
		}
		if err := w.Drain(ctx, id); err != nil && ctx.Err() == nil {
			w.logger().Error("outbox drain failed", "worker_id", id, "error", err)
		}
	}
}

// Drain delivers due records until none are left or the context is done.
func (w *Worker) Drain(ctx context.Context, workerID string) error {
	for ctx.Err() == nil {
		delivered, err := w.processOnce(ctx, workerID)
		if err != nil {
			return err
		}
		if !delivered {
			return nil
		}
	}
	return ctx.Err()
}

func (w *Worker) processOnce(ctx context.Context, workerID string) (bool, error) {
	msg, err := w.Store.Claim(ctx, workerID, w.now())
	if err != nil || msg == nil {
		return false, err
	}
	payload, headers, err := w.formatPayload(msg)
	if err == nil {
		err = w.Producer.Publish(ctx, w.topicFor(msg.Name), msg.AggregateID, payload, headers)
	}
	if err != nil {
		next := w.nextRetry(msg.Attempts)
		w.logger().Warn("outbox publish failed", "event_id", msg.ID, "event", msg.Name, "attempt", msg.Attempts+1, "retry_at", next, "error", err)
		if markErr := w.Store.MarkFailed(context.WithoutCancel(ctx), msg.ID, next, err.Error()); markErr != nil {
			return false, markErr
		}
		return true, nil
	}
	if err := w.Store.MarkSent(context.WithoutCancel(ctx), msg.ID, w.now()); err != nil {
		return false, err
	}
	w.logger().Debug("outbox event published", "event_id", msg.ID, "event", msg.Name)
	return true, nil
}

func (w *Worker) formatPayload(msg *Message) ([]byte, map[string]string, error) {
	var data json.RawMessage = msg.Payload
	if !json.Valid(data) {
		return nil, nil, errors.New("outbox: payload is not valid json")
	}
	evt := map[string]any{
		"specversion":     "1.0",
		"id":              msg.ID,
		"type":            msg.Name + ".v1",
		"source":          w.source(),
		"subject":         msg.AggregateID,
		"time":            msg.OccurredAt.UTC().Format(time.RFC3339Nano),
		"datacontenttype": "application/json",
		"data":            data,
	}
	if trace, ok := msg.Headers["traceparent"]; ok {
		evt["traceparent"] = trace
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, nil, err
	}
	headers := map[string]string{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["content-type"] = "application/cloudevents+json"
	headers["ce-type"] = msg.Name + ".v1"
	return payload, headers, nil
}

// topicFor maps "booking.created" to "<prefix>booking.events.v1".
func (w *Worker) topicFor(name string) string {
	return w.TopicPrefix + appoutbox.AggregateType(name) + ".events.v1"
}

func (w *Worker) workerID() string {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return w.ID
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

func (w *Worker) nextRetry(attempts int) time.Time {
	now := w.now()
	if attempts < len(w.Backoff) {
		return now.Add(w.Backoff[attempts])
	}
	if len(w.Backoff) > 0 {
		return now.Add(w.Backoff[len(w.Backoff)-1])
	}
	return now.Add(5 * time.Second)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://stayscape"
}

func (w *Worker) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

var _ appoutbox.Flusher = (*Worker)(nil)
