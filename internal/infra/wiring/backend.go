package wiring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"stayscape/internal/app/middleware"
	"stayscape/internal/app/uow"
	domainauth "stayscape/internal/domain/auth"
	domainuser "stayscape/internal/domain/user"
	"stayscape/internal/infra/config"
	mongostore "stayscape/internal/infra/db/mongo"
	infraoutbox "stayscape/internal/infra/outbox"
	"stayscape/internal/infra/storage/memory"
)

// Backend bundles the storage ports selected by STORAGE_DRIVER.
type Backend struct {
	Name        string
	UoW         uow.UoWFactory
	Idempotency middleware.IdempotencyStore
	// Users serves the auth service outside any unit of work.
	Users    domainuser.Repository
	Sessions domainauth.SessionStore
	Outbox   infraoutbox.Store
	Ready    func(ctx context.Context) error
	Close    func(ctx context.Context) error
}

func NewMemoryBackend(idempotencyTTL time.Duration) Backend {
	store := memory.NewStore()
	factory := memory.Factory{Store: store}
	return Backend{
		Name:        config.DriverMemory,
		UoW:         factory,
		Idempotency: memory.NewIdempotencyStore(idempotencyTTL),
		Users:       memory.Users{Factory: factory},
		Sessions:    memory.NewSessionStore(),
		Outbox:      store.OutboxStore(),
		Ready:       func(context.Context) error { return nil },
		Close:       func(context.Context) error { return nil },
	}
}

// NewMongoBackend connects, creates collections and indexes, and returns
// transactional ports. MongoDB must run as a replica set.
func NewMongoBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (Backend, error) {
	client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return Backend{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := mongostore.EnsureIndexes(ctx, client.DB, cfg.IdempotencyTTL); err != nil {
		_ = client.Close(context.WithoutCancel(ctx))
		return Backend{}, fmt.Errorf("mongo indexes: %w", err)
	}
	outboxStore, err := infraoutbox.NewMongoStore(ctx, client.DB)
	if err != nil {
		_ = client.Close(context.WithoutCancel(ctx))
		return Backend{}, fmt.Errorf("mongo outbox: %w", err)
	}
	if logger != nil {
		logger.Info("mongo backend ready", "database", cfg.MongoDB)
	}
	return Backend{
		Name:        config.DriverMongo,
		UoW:         mongostore.Factory{DB: client.DB, Outbox: outboxStore},
		Idempotency: mongostore.NewIdempotencyStore(client.DB),
		Users:       mongostore.NewUserRepository(client.DB),
		Sessions:    mongostore.NewSessionStore(client.DB),
		Outbox:      outboxStore,
		Ready:       client.Ping,
		Close:       client.Close,
	}, nil
}

// NewBackend picks the backend named by cfg.StorageDriver.
func NewBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (Backend, error) {
	switch cfg.StorageDriver {
	case config.DriverMongo:
		return NewMongoBackend(ctx, cfg, logger)
	case config.DriverMemory, "":
		return NewMemoryBackend(cfg.IdempotencyTTL), nil
	default:
		return Backend{}, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
