package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/staffdesk/hradmin/internal/domain/employee"
	domainErrors "github.com/staffdesk/hradmin/internal/domain/errors"
	"github.com/staffdesk/hradmin/internal/domain/outbox"
	"github.com/staffdesk/hradmin/internal/domain/payout"
	"github.com/staffdesk/hradmin/internal/infrastructure/observability"
	"github.com/staffdesk/hradmin/internal/pipeline"
)

const dateLayout = "2006-01-02"

// EmployeeDirectory is what the payout flows read from the employee side.
// EmployeeService implements it.
type EmployeeDirectory interface {
	Get(ctx context.Context, id string) (*employee.Employee, error)
	Snapshot(ctx context.Context) (*employee.Snapshot, error)
}

// PayoutService runs manual payouts and CSV batches through the pipeline.
type PayoutService struct {
	batches    payout.Repository
	employees  EmployeeDirectory
	outboxRepo outbox.Repository
	txManager  TransactionManager
	sender     pipeline.Sender
	dispatcher *pipeline.Dispatcher

	defaultMedium payout.Medium
	strictAmounts bool
	publisher     pipeline.Observer
	metrics       *observability.Metrics
	now           func() time.Time
	logger        zerolog.Logger
}

type PayoutOption func(*PayoutService)

// WithProgressPublisher adds an observer that receives every row update of a batch.
func WithProgressPublisher(o pipeline.Observer) PayoutOption {
	return func(s *PayoutService) { s.publisher = o }
}

func WithMetrics(m *observability.Metrics) PayoutOption {
	return func(s *PayoutService) { s.metrics = m }
}

func WithDefaultMedium(m payout.Medium) PayoutOption {
	return func(s *PayoutService) { s.defaultMedium = m }
}

func WithStrictAmounts(strict bool) PayoutOption {
	return func(s *PayoutService) { s.strictAmounts = strict }
}

func WithClock(now func() time.Time) PayoutOption {
	return func(s *PayoutService) { s.now = now }
}

func NewPayoutService(
	batches payout.Repository,
	employees EmployeeDirectory,
	outboxRepo outbox.Repository,
	txManager TransactionManager,
	sender pipeline.Sender,
	logger zerolog.Logger,
	opts ...PayoutOption,
) *PayoutService {
	logger = logger.With().Str("component", "payout_service").Logger()
	s := &PayoutService{
		batches:       batches,
		employees:     employees,
		outboxRepo:    outboxRepo,
		txManager:     txManager,
		sender:        sender,
		dispatcher:    pipeline.NewDispatcher(sender, logger),
		defaultMedium: payout.MediumMobileMoney,
		now:           time.Now,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PayoutService) mapper(dir employee.Directory, medium payout.Medium, date string) *pipeline.Mapper {
	return pipeline.NewMapper(dir, medium, date,
		pipeline.WithStrictAmounts(s.strictAmounts),
		pipeline.WithClock(s.now),
	)
}

func (s *PayoutService) today() string {
	return s.now().Format(dateLayout)
}

// ManualPayout sends a single hand-entered payout and waits for the gateway.
func (s *PayoutService) ManualPayout(ctx context.Context, req ManualPayoutRequest) (*ManualPayoutResult, error) {
	dir, err := s.singleEntryDirectory(ctx, req.EmployeeID)
	if err != nil {
		return nil, err
	}

	medium := req.Medium
	if medium == "" {
		medium = string(s.defaultMedium)
	}
	payoutReq, row := s.mapper(dir, s.defaultMedium, s.today()).MapManual(pipeline.ManualInput{
		EmployeeID: req.EmployeeID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Medium:     medium,
		Date:       req.Date,
		Note:       req.Note,
	})
	if payoutReq == nil {
		s.recordRow("manual", row.Outcome, row.Reason)
		return nil, rejectionError(row)
	}

	res, err := s.sender.Send(ctx, *payoutReq)
	if err == nil && !res.Success() {
		err = domainErrors.NewDomainError("payout_rejected", rejectionMessage(res), domainErrors.ErrProviderRejected)
	}
	if err != nil {
		s.recordRow("manual", payout.OutcomeFailed, payout.ReasonSendFailed)
		s.logger.Warn().Err(err).
			Str("employee_id", payoutReq.UserID).
			Str("external_id", payoutReq.ExternalID).
			Msg("Manual payout failed")
		return nil, err
	}

	s.recordRow("manual", payout.OutcomeSucceeded, payout.ReasonNone)
	s.logger.Info().
		Str("employee_id", payoutReq.UserID).
		Str("external_id", payoutReq.ExternalID).
		Str("status", res.Status).
		Msg("Manual payout sent")

	return &ManualPayoutResult{
		ExternalID: payoutReq.ExternalID,
		EmployeeID: payoutReq.UserID,
		Amount:     row.Amount,
		Currency:   payoutReq.Currency,
		Medium:     payoutReq.Medium,
		Date:       row.Date,
		Status:     res.Status,
		Message:    res.Message,
		Reference:  res.Reference,
	}, nil
}

// singleEntryDirectory looks up one employee. A missing employee yields an
// empty directory so the mapper reports the rejection.
func (s *PayoutService) singleEntryDirectory(ctx context.Context, id string) (employee.Directory, error) {
	entries := map[string]employee.DirectoryEntry{}
	if id != "" {
		e, err := s.employees.Get(ctx, id)
		switch {
		case err == nil:
			entries[e.ID] = e.Entry()
		case !errors.Is(err, domainErrors.ErrEmployeeNotFound):
			return nil, fmt.Errorf("load employee %s: %w", id, err)
		}
	}
	return employee.SnapshotOf(entries), nil
}

func rejectionError(row payout.RowResult) error {
	switch row.Reason {
	case payout.ReasonEmployeeNotFound:
		return domainErrors.ErrEmployeeNotFound
	case payout.ReasonMissingEmployeeID:
		return domainErrors.NewValidationError("employee_id", "cannot be empty")
	case payout.ReasonInvalidMedium:
		return domainErrors.NewDomainError("invalid_medium", row.Detail, domainErrors.ErrInvalidMedium)
	case payout.ReasonInvalidAmount:
		return domainErrors.NewDomainError("invalid_amount", row.Detail, domainErrors.ErrInvalidAmount)
	default:
		return domainErrors.NewDomainError(string(row.Reason), row.Detail, domainErrors.ErrValidationFailed)
	}
}

func rejectionMessage(res *payout.SendResult) string {
	if res == nil {
		return "gateway returned no result"
	}
	if res.Message != "" {
		return res.Message
	}
	return fmt.Sprintf("gateway returned status %q", res.Status)
}

// SubmitBatch stores an uploaded file as a pending batch and announces it on
// the outbox in the same transaction. The worker picks it up from there.
func (s *PayoutService) SubmitBatch(ctx context.Context, req SubmitBatchRequest) (*payout.Batch, error) {
	medium := s.defaultMedium
	if req.Medium != "" {
		m, err := payout.ParseMedium(req.Medium)
		if err != nil {
			return nil, domainErrors.NewValidationError("medium", err.Error())
		}
		medium = m
	}
	date := req.Date
	if date == "" {
		date = s.today()
	}

	rows := pipeline.ParseRows(req.CSV)
	if len(rows) == 0 {
		return nil, domainErrors.ErrEmptyBatch
	}

	batch, err := payout.NewBatch(req.FileName, req.CSV, medium, date, req.SubmittedBy)
	if err != nil {
		return nil, err
	}
	batch.Progress.Total = len(rows)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.batches.Create(txCtx, batch); err != nil {
			return err
		}
		return s.outboxRepo.Insert(txCtx, outbox.BatchSubmitted(batch.ID, batch.FileName, len(rows)))
	})
	if err != nil {
		return nil, fmt.Errorf("submit batch: %w", err)
	}

	s.logger.Info().
		Str("batch_id", batch.ID.String()).
		Str("file", batch.FileName).
		Int("rows", len(rows)).
		Msg("Batch submitted")
	return batch, nil
}

// ExecuteBatch runs a pending batch to the end. The directory is captured
// once before the first row. Cancelling ctx stops the batch between rows.
// Callers must hold the dispatch lock: a batch found running was left behind
// by a worker that died, and is failed instead of resumed because its last
// row may already have been paid.
func (s *PayoutService) ExecuteBatch(ctx context.Context, batchID uuid.UUID) (payout.Summary, error) {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return payout.Summary{BatchID: batchID}, err
	}
	// Persisting the final state must survive a cancelled ctx.
	persistCtx := context.WithoutCancel(ctx)

	if batch.Status == payout.BatchRunning {
		reason := fmt.Sprintf("interrupted after %d of %d rows", batch.Progress.Done, batch.Progress.Total)
		s.logger.Warn().Str("batch_id", batch.ID.String()).Str("reason", reason).Msg("Failing orphaned batch")
		if err := s.failBatch(persistCtx, batch, reason); err != nil {
			return batch.Summary(), err
		}
		return batch.Summary(), domainErrors.NewDomainError("batch_interrupted", reason, domainErrors.ErrBatchNotRunnable)
	}
	if batch.Status != payout.BatchPending {
		return batch.Summary(), domainErrors.NewDomainError(
			"batch_not_runnable",
			fmt.Sprintf("batch %s is %s", batch.ID, batch.Status),
			domainErrors.ErrBatchNotRunnable,
		)
	}

	snapshot, err := s.employees.Snapshot(ctx)
	if err != nil {
		if ferr := s.failBatch(persistCtx, batch, "load employee directory: "+err.Error()); ferr != nil {
			return batch.Summary(), ferr
		}
		return batch.Summary(), fmt.Errorf("load employee directory: %w", err)
	}

	observers := pipeline.Observers{
		&progressPersister{repo: s.batches, batch: batch, logger: s.logger},
		s.publisher,
		s.metricsObserver(),
	}

	if s.metrics != nil {
		s.metrics.ActiveBatches.Inc()
		defer s.metrics.ActiveBatches.Dec()
	}

	rows := pipeline.ParseRows(batch.CSV)
	summary, runErr := s.dispatcher.Run(ctx, batch, rows, s.mapper(snapshot, batch.Medium, batch.DefaultDate), observers)

	if err := s.batches.UpdateProgress(persistCtx, batch); err != nil {
		s.logger.Error().Err(err).Str("batch_id", batch.ID.String()).Msg("Failed to persist batch result")
		if runErr == nil {
			runErr = err
		}
	}
	s.recordBatch(batch.Status)
	return summary, runErr
}

func (s *PayoutService) failBatch(ctx context.Context, batch *payout.Batch, reason string) error {
	if err := batch.Fail(reason); err != nil {
		return err
	}
	if err := s.batches.UpdateProgress(ctx, batch); err != nil {
		s.logger.Error().Err(err).Str("batch_id", batch.ID.String()).Msg("Failed to persist failed batch")
	}
	s.recordBatch(batch.Status)
	return nil
}

// RunFile executes a CSV file locally against the given directory without
// persisting anything. Used by the command line tool.
func (s *PayoutService) RunFile(ctx context.Context, req RunFileRequest, observer pipeline.Observer) (payout.Summary, error) {
	medium := s.defaultMedium
	if req.Medium != "" {
		m, err := payout.ParseMedium(req.Medium)
		if err != nil {
			return payout.Summary{}, domainErrors.NewValidationError("medium", err.Error())
		}
		medium = m
	}
	date := req.Date
	if date == "" {
		date = s.today()
	}

	rows := pipeline.ParseRows(req.CSV)
	if len(rows) == 0 {
		return payout.Summary{}, domainErrors.ErrEmptyBatch
	}

	batch, err := payout.NewBatch(req.FileName, req.CSV, medium, date, "cli")
	if err != nil {
		return payout.Summary{}, err
	}

	observers := pipeline.Observers{observer, s.metricsObserver()}
	return s.dispatcher.Run(ctx, batch, rows, s.mapper(req.Directory, medium, date), observers)
}

func (s *PayoutService) GetBatch(ctx context.Context, id uuid.UUID) (*payout.Batch, error) {
	return s.batches.GetByID(ctx, id)
}

func (s *PayoutService) ListBatches(ctx context.Context, status string, page, limit int) (*BatchPage, error) {
	page, limit = normalizePage(page, limit)
	filter := payout.ListFilter{Limit: limit, Offset: (page - 1) * limit}
	if status != "" {
		st := payout.BatchStatus(status)
		filter.Status = &st
	}

	batches, total, err := s.batches.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &BatchPage{
		Batches: batches,
		Page:    Page{Page: page, Limit: limit, Total: total},
	}, nil
}

// GetBatchRows returns the per-row results recorded so far, in file order.
func (s *PayoutService) GetBatchRows(ctx context.Context, id uuid.UUID) ([]payout.RowResult, error) {
	if _, err := s.batches.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.batches.GetRowResults(ctx, id)
}

func (s *PayoutService) metricsObserver() pipeline.Observer {
	if s.metrics == nil {
		return nil
	}
	return pipeline.ObserverFunc(func(_ context.Context, u pipeline.Update) {
		s.metrics.RecordRow("batch", string(u.Row.Outcome), string(u.Row.Reason))
	})
}

func (s *PayoutService) recordRow(mode string, outcome payout.Outcome, reason payout.Reason) {
	if s.metrics != nil {
		s.metrics.RecordRow(mode, string(outcome), string(reason))
	}
}

func (s *PayoutService) recordBatch(status payout.BatchStatus) {
	if s.metrics != nil {
		s.metrics.BatchesTotal.WithLabelValues(string(status)).Inc()
	}
}

// progressPersister stores each finished row and the running counters so the
// API can serve progress while the worker is still dispatching.
type progressPersister struct {
	repo   payout.Repository
	batch  *payout.Batch
	logger zerolog.Logger
}

func (p *progressPersister) OnProgress(ctx context.Context, u pipeline.Update) {
	if err := p.repo.AddRowResult(ctx, u.BatchID, u.Row); err != nil {
		p.logger.Error().Err(err).Str("batch_id", u.BatchID.String()).Int("line", u.Row.Line).Msg("Failed to store row result")
	}

	snapshot := *p.batch
	snapshot.Progress = u.Progress
	if err := p.repo.UpdateProgress(ctx, &snapshot); err != nil {
		p.logger.Error().Err(err).Str("batch_id", u.BatchID.String()).Msg("Failed to store batch progress")
	}
}
