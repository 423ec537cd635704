package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/staffdesk/hradmin/internal/domain/outbox"
	"github.com/staffdesk/hradmin/internal/service"
)

// JobPublisher puts an outbox event on the batch job stream.
type JobPublisher interface {
	PublishBatchJob(ctx context.Context, batchID string, eventType string, data map[string]any) error
}

// OutboxRelay moves pending outbox entries to the job stream.
type OutboxRelay struct {
	txManager service.TransactionManager
	repo      outbox.Repository
	publisher JobPublisher
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

func NewOutboxRelay(
	txManager service.TransactionManager,
	repo outbox.Repository,
	publisher JobPublisher,
	interval time.Duration,
	logger zerolog.Logger,
) *OutboxRelay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &OutboxRelay{
		txManager: txManager,
		repo:      repo,
		publisher: publisher,
		interval:  interval,
		batchSize: 10,
		logger:    logger.With().Str("component", "outbox_relay").Logger(),
	}
}

// Run polls until ctx ends.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if _, err := r.PublishPending(ctx); err != nil {
			r.logger.Error().Err(err).Msg("Outbox relay error")
		}
	}
}

// PublishPending relays one page of pending entries and returns how many were published.
// Entries that fail to publish stay pending until their retries run out.
func (r *OutboxRelay) PublishPending(ctx context.Context) (int, error) {
	published := 0
	err := r.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		entries, err := r.repo.GetPending(txCtx, r.batchSize)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := r.publisher.PublishBatchJob(ctx, entry.AggregateID.String(), entry.EventType, entry.Payload); err != nil {
				r.logger.Error().Err(err).Str("outbox_id", entry.ID.String()).Msg("Failed to publish outbox event")
				if err := r.repo.MarkFailed(txCtx, entry.ID); err != nil {
					return err
				}
				continue
			}
			if err := r.repo.MarkPublished(txCtx, entry.ID); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	return published, err
}
