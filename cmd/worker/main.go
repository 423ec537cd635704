package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/staffdesk/hradmin/internal/bootstrap"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	infraRedis "github.com/staffdesk/hradmin/internal/infrastructure/redis"
	"github.com/staffdesk/hradmin/internal/repository/postgres"
	"github.com/staffdesk/hradmin/internal/service"
	"github.com/staffdesk/hradmin/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "hradmin-worker", "hradmin_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()
	cfg := app.Config

	defaultMedium, err := payout.ParseMedium(cfg.Payout.DefaultMedium)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Invalid default payout medium")
	}

	// --- Repositories ---
	employeeRepo := postgres.NewEmployeeRepository(app.Pool)
	batchRepo := postgres.NewBatchRepository(app.Pool)
	outboxRepo := postgres.NewOutboxRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)
	streamProducer := infraRedis.NewStreamProducer(app.Redis)

	gateway, err := bootstrap.Gateway(&cfg.Payout, app.Metrics, app.Logger)
	if err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to build payout gateway")
	}
	employeeService := service.NewEmployeeService(employeeRepo, txManager, app.Logger)
	payoutService := service.NewPayoutService(batchRepo, employeeService, outboxRepo, txManager, gateway, app.Logger,
		service.WithMetrics(app.Metrics),
		service.WithDefaultMedium(defaultMedium),
		service.WithStrictAmounts(cfg.Payout.StrictAmounts),
		service.WithProgressPublisher(infraRedis.NewProgressPublisher(app.Redis, app.Logger)),
	)

	// --- Batch stream consumer ---
	workerCfg := cfg.Worker
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.BatchStream,
		workerCfg.ConsumerGroup,
		cfg.InstanceID,
		workerCfg.BatchSize,
		workerCfg.BlockDuration,
	)
	if err := consumer.CreateGroup(ctx); err != nil {
		app.Logger.Fatal().Err(err).Msg("Failed to create consumer group")
	}

	batchConsumer := worker.NewBatchConsumer(consumer, streamProducer, payoutService,
		func() worker.Lock {
			return infraRedis.NewDistributedLock(app.Redis, infraRedis.LockKey(infraRedis.DispatchLockKey), cfg.Payout.LockTTL)
		},
		app.Metrics, app.Logger,
	)
	relay := worker.NewOutboxRelay(txManager, outboxRepo, streamProducer, workerCfg.OutboxPollInterval, app.Logger)

	app.Logger.Info().
		Str("stream", infraRedis.BatchStream).
		Str("group", workerCfg.ConsumerGroup).
		Str("consumer", cfg.InstanceID).
		Msg("Worker started, listening for batches...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Batch dispatcher (reads from Redis Streams).
	g.Go(func() error { return batchConsumer.Run(gCtx) })

	// 2. Outbox relay (polls the outbox table and publishes to Redis Streams).
	g.Go(func() error { return relay.Run(gCtx) })

	// 3. Expired idempotency keys.
	g.Go(func() error {
		return worker.RunIdempotencyCleanup(gCtx, idempotencyRepo, workerCfg.IdempotencyTTL/24, app.Logger)
	})

	// 4. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
