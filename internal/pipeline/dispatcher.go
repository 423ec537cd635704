package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Sender delivers one payout to the gateway and blocks until it answers.
type Sender interface {
	Send(ctx context.Context, req payout.Request) (*payout.SendResult, error)
}

// Dispatcher runs the rows of a batch strictly one after another. Only one
// Send is ever in flight, and a row starts only once the previous one has
// been resolved and reported.
type Dispatcher struct {
	sender Sender
	logger zerolog.Logger
	tracer trace.Tracer
}

func NewDispatcher(sender Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		logger: logger.With().Str("component", "dispatcher").Logger(),
		tracer: otel.Tracer("github.com/staffdesk/hradmin/internal/pipeline"),
	}
}

// Run dispatches rows for batch, which must be pending. Cancellation of ctx
// is honoured only between rows: the in-flight send always runs to completion.
// On cancellation the batch ends cancelled and Run returns the partial
// summary with ctx's error. Row failures never abort the batch.
func (d *Dispatcher) Run(ctx context.Context, batch *payout.Batch, rows []Row, mapper *Mapper, observer Observer) (payout.Summary, error) {
	if observer == nil {
		observer = Observers(nil)
	}
	if err := batch.Start(len(rows)); err != nil {
		return batch.Summary(), fmt.Errorf("start batch %s: %w", batch.ID, err)
	}

	logger := d.logger.With().Str("batch_id", batch.ID.String()).Logger()
	logger.Info().Int("rows", len(rows)).Str("medium", string(batch.Medium)).Msg("Batch started")

	// Sends and progress reports outlive a cancellation that arrives mid-row.
	rowCtx := context.WithoutCancel(ctx)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			if cerr := batch.Cancel(); cerr != nil {
				return batch.Summary(), cerr
			}
			logger.Warn().
				Int("done", batch.Progress.Done).
				Int("remaining", batch.Progress.Remaining()).
				Msg("Batch cancelled")
			return batch.Summary(), err
		}

		result := d.dispatchRow(rowCtx, batch, row, i, mapper)
		if err := batch.Record(result); err != nil {
			return batch.Summary(), fmt.Errorf("record row %d: %w", row.Line, err)
		}

		logger.Debug().
			Int("line", result.Line).
			Str("employee_id", result.EmployeeID).
			Str("outcome", string(result.Outcome)).
			Str("reason", string(result.Reason)).
			Msg("Row dispatched")

		observer.OnProgress(rowCtx, Update{
			BatchID:  batch.ID,
			Row:      result,
			Progress: batch.Progress,
		})
	}

	if err := batch.Complete(); err != nil {
		return batch.Summary(), err
	}

	summary := batch.Summary()
	logger.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("Batch completed")
	return summary, nil
}

func (d *Dispatcher) dispatchRow(ctx context.Context, batch *payout.Batch, row Row, index int, mapper *Mapper) payout.RowResult {
	ctx, span := d.tracer.Start(ctx, "payout.dispatch_row", trace.WithAttributes(
		attribute.String("batch.id", batch.ID.String()),
		attribute.Int("row.line", row.Line),
		attribute.String("employee.id", row.EmployeeID),
	))
	defer span.End()

	req, result := mapper.Map(row, index)
	if req == nil {
		span.SetAttributes(
			attribute.String("row.outcome", string(result.Outcome)),
			attribute.String("row.reason", string(result.Reason)),
		)
		return result
	}

	return d.send(ctx, span, req, result)
}

func (d *Dispatcher) send(ctx context.Context, span trace.Span, req *payout.Request, result payout.RowResult) payout.RowResult {
	span.SetAttributes(attribute.String("payout.external_id", req.ExternalID))

	res, err := d.sender.Send(ctx, *req)
	switch {
	case err != nil:
		result.Outcome = payout.OutcomeFailed
		result.Reason = payout.ReasonSendFailed
		result.Detail = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !res.Success():
		result.Outcome = payout.OutcomeFailed
		result.Reason = payout.ReasonSendFailed
		result.Detail = rejectionDetail(res)
		span.SetStatus(codes.Error, result.Detail)
	default:
		result.Outcome = payout.OutcomeSucceeded
		result.Reference = res.Reference
		result.Detail = res.Message
	}

	span.SetAttributes(attribute.String("row.outcome", string(result.Outcome)))
	return result
}

func rejectionDetail(res *payout.SendResult) string {
	if res == nil {
		return "gateway returned no result"
	}
	if res.Message == "" {
		return fmt.Sprintf("gateway returned status %q", res.Status)
	}
	return fmt.Sprintf("gateway returned status %q: %s", res.Status, res.Message)
}
