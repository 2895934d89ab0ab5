package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"stayscape/internal/app/schedule"
	"stayscape/internal/infra/broker/kafka"
	"stayscape/internal/infra/config"
	ginserver "stayscape/internal/infra/http/gin"
	"stayscape/internal/infra/obs"
	infraoutbox "stayscape/internal/infra/outbox"
	"stayscape/internal/infra/storage/s3"
	"stayscape/internal/infra/wiring"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("cannot read .env", "error", err)
	}

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("stayscape stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("stayscape stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	backend, err := wiring.NewBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.Close(closeCtx); err != nil {
			logger.Warn("backend close failed", "error", err)
		}
	}()
	logger.Info("storage backend selected", "driver", backend.Name)

	producer, closeProducer, err := newProducer(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProducer()

	worker := infraoutbox.NewWorker(backend.Outbox, producer, logger)
	worker.Interval = cfg.OutboxPollInterval
	worker.TopicPrefix = cfg.KafkaTopicPrefix
	if len(cfg.RetryBackoff) > 0 {
		worker.Backoff = cfg.RetryBackoff
	}

	uploader := newUploader(cfg, logger)

	app := wiring.Build(backend, wiring.Options{
		Location:   cfg.Location,
		TxTimeout:  cfg.TxTimeout,
		SessionTTL: cfg.SessionTTL,
		Uploader:   uploader,
		Flusher:    worker,
		Logger:     logger,
	})

	if _, err := wiring.LoadListingFixtures(ctx, backend.UoW, cfg.ListingsFixtures, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingsFixtures)
	}

	sweeper := &schedule.Ticker{
		Name:     "booking-completion",
		Interval: cfg.CompletionSweepInterval,
		Job:      app.CompleteEndedBookings,
		Logger:   logger,
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: backend.Ready,
	}, app.Handlers)

	var wg sync.WaitGroup
	background := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil {
				logger.Error("background task failed", "task", name, "error", err)
			}
		}()
	}
	background("outbox-worker", worker.Run)
	background("completion-sweep", sweeper.Run)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	wg.Wait()
	return nil
}

func newProducer(cfg config.Config, logger *slog.Logger) (infraoutbox.Producer, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers not configured, logging outbox events")
		return infraoutbox.LogProducer{Logger: logger}, func() {}, nil
	}
	producer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.KafkaBrokers, ClientID: "stayscape"})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("kafka producer ready", "brokers", cfg.KafkaBrokers)
	return producer, func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}, nil
}

func newUploader(cfg config.Config, logger *slog.Logger) s3.Uploader {
	if cfg.S3Endpoint == "" {
		logger.Info("s3 endpoint not configured, photo uploads disabled")
		return s3.NoopUploader{}
	}
	client, err := s3.NewClient(s3.Config{
		Endpoint:       cfg.S3Endpoint,
		PublicEndpoint: cfg.S3PublicEndpoint,
		AccessKey:      cfg.S3AccessKey,
		SecretKey:      cfg.S3SecretKey,
		Bucket:         cfg.S3Bucket,
		UseSSL:         cfg.S3UseSSL,
	}, logger)
	if err != nil {
		logger.Warn("s3 client unavailable, photo uploads disabled", "error", err)
		return s3.NoopUploader{}
	}
	return client
}
