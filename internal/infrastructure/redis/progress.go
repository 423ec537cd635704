package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/staffdesk/hradmin/internal/pipeline"
)

// ProgressPublisher mirrors batch progress onto a capped Redis stream so
// other processes can follow a running batch.
type ProgressPublisher struct {
	client redis.Cmdable
	stream string
	maxLen int64
	logger zerolog.Logger
}

func NewProgressPublisher(client redis.Cmdable, logger zerolog.Logger) *ProgressPublisher {
	return &ProgressPublisher{
		client: client,
		stream: ProgressStream,
		maxLen: 10000,
		logger: logger,
	}
}

func (p *ProgressPublisher) OnProgress(ctx context.Context, u pipeline.Update) {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: progressValues(u),
	}).Err()
	if err != nil {
		p.logger.Warn().Err(err).Str("batch_id", u.BatchID.String()).Msg("Failed to publish progress")
	}
}

func progressValues(u pipeline.Update) map[string]any {
	return map[string]any{
		"batch_id":    u.BatchID.String(),
		"line":        u.Row.Line,
		"employee_id": u.Row.EmployeeID,
		"external_id": u.Row.ExternalID,
		"outcome":     string(u.Row.Outcome),
		"reason":      string(u.Row.Reason),
		"total":       u.Progress.Total,
		"done":        u.Progress.Done,
		"succeeded":   u.Progress.Succeeded,
		"failed":      u.Progress.Failed,
	}
}
