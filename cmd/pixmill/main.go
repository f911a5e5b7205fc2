package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	jobapi "github.com/pixmill/pixmill/internal/api/handlers/job"
	"github.com/pixmill/pixmill/internal/api/router"
	"github.com/pixmill/pixmill/internal/api/server"
	"github.com/pixmill/pixmill/internal/config"
	"github.com/pixmill/pixmill/internal/encoder"
	"github.com/pixmill/pixmill/internal/heic"
	"github.com/pixmill/pixmill/internal/infra/kafka/consumer"
	"github.com/pixmill/pixmill/internal/infra/kafka/producer"
	jobmsg "github.com/pixmill/pixmill/internal/kafka/handlers/job"
	"github.com/pixmill/pixmill/internal/orchestrator"
	"github.com/pixmill/pixmill/internal/pipeline"
	jobsvc "github.com/pixmill/pixmill/internal/service/job"
	"github.com/pixmill/pixmill/internal/storage/file"
	"github.com/pixmill/pixmill/internal/workers"
)

func main() {
	// Context & signals: used for graceful shutdown on system interrupts.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize logger and load application configuration.
	zlog.Init()
	cfg := config.MustLoad("./config")

	// Start libvips for HEIC decoding and WebP/AVIF output.
	encoder.InitVips()
	defer encoder.ShutdownVips()

	// Retry strategy for Kafka and other external calls.
	strategy := retry.Strategy{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
		Backoff:  cfg.Retry.Backoff,
	}

	// Initialize blob storage (MinIO).
	storage, err := file.NewStorage(ctx, cfg.Storage.Endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.BucketName, cfg.Storage.UseSSL)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to storage")
	}

	// Build the transcoding pipeline and its orchestrator.
	enc := encoder.New()
	pre := heic.New(cfg.Pipeline.HeicTimeout)
	pipe := pipeline.New(pre, enc)

	batch := orchestrator.New(pipe, orchestrator.Options{
		Workers:     workers.Count(cfg.Pipeline.Workers),
		MaxAttempts: cfg.Pipeline.MaxAttempts,
		Defaults:    cfg.Pipeline.Defaults.Settings(),
	})
	batch.Start(ctx)

	// Initialize producer and service layer.
	p := producer.New(&cfg.Kafka, strategy)
	service := jobsvc.NewService(storage, p, batch)

	// Kafka message handler for ingest events.
	ingestHandler := jobmsg.NewIngestHandler(service)

	// HTTP handler for job routes.
	jobHandler := jobapi.NewHandler(service)

	// Kafka consumer for processing ingest events.
	c := consumer.New(&cfg.Kafka, strategy, ingestHandler)

	// Start Kafka consumer in a separate goroutine.
	var wg sync.WaitGroup
	wg.Add(1)
	go c.Consume(ctx, &wg)

	// Start HTTP server in a separate goroutine.
	r := router.Setup(jobHandler)
	s := server.New(cfg.Server.HTTPPort, r)
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Block until context is canceled (SIGINT/SIGTERM).
	<-ctx.Done()
	zlog.Logger.Info().Msg("context done")

	// Wait for Kafka consumer goroutine and in-flight jobs to finish.
	wg.Wait()
	batch.Wait()

	// Graceful shutdown with timeout for HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	zlog.Logger.Info().Msg("shutting down server")
	if err := s.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to shutdown server")
	}
	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		zlog.Logger.Info().Msg("timeout exceeded, forcing shutdown")
	}

	// Close Kafka producer and consumer clients.
	if err = p.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka producer client")
	}
	if err = c.Client.Close(); err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to close kafka consumer client")
	}
}
