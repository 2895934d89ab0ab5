package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/uow"
)

// IdempotentCommand is implemented by commands whose outcome is replayed for a repeated key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	// ResultPrototype returns a pointer to a zero value of the handler result type.
	ResultPrototype() any
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	Error      string
	Sentinel   string
	OccurredAt time.Time
}

// IdempotencyStore keeps the first record saved for a key and ignores later saves.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")

// Idempotency replays stored outcomes. Errors matching one of sentinels are
// replayed as that sentinel so callers keep matching them with errors.Is.
// Retryable failures are not recorded.
func Idempotency(store IdempotencyStore, codec ResultCodec, sentinels ...error) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok {
				return next.Dispatch(ctx, cmd)
			}
			key := idCmd.IdempotencyKey()
			if key == "" {
				return next.Dispatch(ctx, cmd)
			}
			rec, found, err := store.Get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("%w: idempotency lookup: %w", uow.ErrTxFailed, err)
			}
			if found {
				return replay(rec, idCmd, codec, sentinels)
			}

			result, err := next.Dispatch(ctx, cmd)
			if err != nil && uow.IsRetryable(err) {
				return nil, err
			}
			record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
			if err != nil {
				record.Error = err.Error()
				if s := matchSentinel(err, sentinels); s != nil {
					record.Sentinel = s.Error()
				}
				if saveErr := store.Save(context.WithoutCancel(ctx), record); saveErr != nil {
					return nil, errors.Join(err, saveErr)
				}
				return nil, err
			}
			if result != nil {
				payload, encErr := codec.Encode(result)
				if encErr != nil {
					return nil, encErr
				}
				record.Payload = payload
			}
			// the command already committed; a failed save only loses replay
			_ = store.Save(context.WithoutCancel(ctx), record)
			return result, nil
		})
	}
}

func replay(rec IdempotencyRecord, cmd IdempotentCommand, codec ResultCodec, sentinels []error) (any, error) {
	if rec.Error != "" {
		for _, s := range sentinels {
			if s.Error() == rec.Sentinel {
				return nil, s
			}
		}
		return nil, errors.New(rec.Error)
	}
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) > 0 {
		if err := codec.Decode(rec.Payload, proto); err != nil {
			return nil, err
		}
	}
	return derefPrototype(proto), nil
}

func matchSentinel(err error, sentinels []error) error {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s
		}
	}
	return nil
}

// derefPrototype returns the pointed-to value so replayed results have the
// same dynamic type as fresh ones.
func derefPrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return proto
}
