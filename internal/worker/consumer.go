package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"github.com/staffdesk/hradmin/internal/infrastructure/observability"
	infraRedis "github.com/staffdesk/hradmin/internal/infrastructure/redis"
)

// MessageSource is the consumer-group side of the batch stream.
type MessageSource interface {
	Read(ctx context.Context) ([]redis.XMessage, error)
	Ack(ctx context.Context, messageID string) error
	ClaimStale(ctx context.Context, minIdle time.Duration) ([]redis.XMessage, error)
}

type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, msg redis.XMessage, reason string) error
}

// BatchExecutor runs one pending batch to the end.
type BatchExecutor interface {
	ExecuteBatch(ctx context.Context, batchID uuid.UUID) (payout.Summary, error)
}

// Lock serializes dispatch across worker instances.
type Lock interface {
	AcquireWithRetry(ctx context.Context, maxRetries int, retryDelay time.Duration) error
	KeepAlive(ctx context.Context, logger zerolog.Logger) (stop func())
	Release(ctx context.Context) error
}

type BatchConsumer struct {
	source   MessageSource
	dlq      DeadLetterPublisher
	executor BatchExecutor
	newLock  func() Lock
	metrics  *observability.Metrics
	logger   zerolog.Logger

	lockRetries    int
	lockRetryDelay time.Duration
	claimMinIdle   time.Duration
}

func NewBatchConsumer(
	source MessageSource,
	dlq DeadLetterPublisher,
	executor BatchExecutor,
	newLock func() Lock,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *BatchConsumer {
	return &BatchConsumer{
		source:         source,
		dlq:            dlq,
		executor:       executor,
		newLock:        newLock,
		metrics:        metrics,
		logger:         logger.With().Str("component", "batch_consumer").Logger(),
		lockRetries:    10,
		lockRetryDelay: 500 * time.Millisecond,
		claimMinIdle:   5 * time.Minute,
	}
}

// Run reads the stream until ctx ends. Messages left unacked by a crashed
// consumer are reclaimed once they have been idle long enough.
func (c *BatchConsumer) Run(ctx context.Context) error {
	lastClaim := time.Time{}
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if time.Since(lastClaim) >= c.claimMinIdle {
			lastClaim = time.Now()
			stale, err := c.source.ClaimStale(ctx, c.claimMinIdle)
			if err != nil {
				c.logger.Error().Err(err).Msg("Failed to claim stale messages")
			}
			for _, msg := range stale {
				c.Handle(ctx, msg)
			}
		}

		messages, err := c.source.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error().Err(err).Msg("Failed to read from stream")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range messages {
			c.Handle(ctx, msg)
		}
	}
}

// Handle processes one message. It is acked once the batch has run, or when it
// can never run: malformed jobs, unknown batches and batches that already left
// the pending state. Lock contention and infrastructure errors leave the
// message pending for a later claim.
func (c *BatchConsumer) Handle(ctx context.Context, msg redis.XMessage) {
	start := time.Now()

	job, err := infraRedis.ParseBatchJob(msg)
	if err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Malformed batch job, moving to DLQ")
		if err := c.dlq.PublishToDLQ(ctx, msg, err.Error()); err != nil {
			c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to publish to DLQ")
			return
		}
		c.ack(ctx, msg.ID)
		c.record("dead_lettered", start)
		return
	}

	logger := c.logger.With().Str("batch_id", job.BatchID.String()).Str("message_id", msg.ID).Logger()

	lock := c.newLock()
	if err := lock.AcquireWithRetry(ctx, c.lockRetries, c.lockRetryDelay); err != nil {
		logger.Warn().Err(err).Msg("Dispatch lock busy, leaving message pending")
		c.record("lock_busy", start)
		return
	}
	stop := lock.KeepAlive(ctx, logger)
	defer func() {
		stop()
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("Failed to release dispatch lock")
		}
	}()

	logger.Info().Msg("Dispatching batch")
	summary, err := c.executor.ExecuteBatch(ctx, job.BatchID)
	switch {
	case err == nil:
		logger.Info().Str("summary", summary.String()).Msg("Batch finished")
		c.ack(ctx, msg.ID)
		c.record("success", start)
	case errors.Is(err, domainErrors.ErrBatchNotRunnable), errors.Is(err, domainErrors.ErrBatchNotFound):
		logger.Warn().Err(err).Msg("Skipping batch")
		c.ack(ctx, msg.ID)
		c.record("skipped", start)
	case ctx.Err() != nil:
		// Shutdown mid-batch: the batch is already recorded as cancelled.
		logger.Warn().Err(err).Msg("Batch interrupted by shutdown")
		c.ack(context.WithoutCancel(ctx), msg.ID)
		c.record("cancelled", start)
	default:
		logger.Error().Err(err).Msg("Failed to dispatch batch")
		c.record("error", start)
	}
}

func (c *BatchConsumer) ack(ctx context.Context, id string) {
	if err := c.source.Ack(ctx, id); err != nil {
		c.logger.Error().Err(err).Str("message_id", id).Msg("Failed to ack message")
	}
}

func (c *BatchConsumer) record(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.WorkerMessagesProcessed.WithLabelValues(infraRedis.BatchStream, status).Inc()
	c.metrics.WorkerProcessingDuration.WithLabelValues(infraRedis.BatchStream).Observe(time.Since(start).Seconds())
}
