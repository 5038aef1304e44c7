package ingest

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
	"github.com/markethub/backend/internal/domain/reconcile"
)

// Errors surfaced to inbound callers
var (
	ErrDuplicateOrder = errors.New("ingest service: order already committed")
	ErrNoAdapter      = errors.New("ingest service: no adapter registered for channel")
)

// Result is the outcome of one ingestion run. The caller acknowledges the
// marketplace from it and then triggers Dispatch for the post-commit calls.
type Result struct {
	Draft  *channel.OrderDraft
	Report *channel.ValidationReport
	Commit channel.CommitResult
	// ExistingOrderID is set when the guard found a prior commit
	ExistingOrderID int64
}

// Service orchestrates one order ingestion: parse, idempotency check,
// validation, commit. Reconciliation dispatch is a separate step so webhook
// handlers can acknowledge the marketplace first.
type Service struct {
	adapters   map[channel.Code]channel.Adapter
	guard      *ingest.IdempotencyGuard
	pipeline   *ingest.ValidationPipeline
	commits    *ingest.CommitSequence
	dispatcher *reconcile.Dispatcher
	notifier   ingest.Notifier
	logger     *zap.Logger
}

// NewService creates an ingestion service
func NewService(
	adapters []channel.Adapter,
	guard *ingest.IdempotencyGuard,
	pipeline *ingest.ValidationPipeline,
	commits *ingest.CommitSequence,
	dispatcher *reconcile.Dispatcher,
	notifier ingest.Notifier,
	logger *zap.Logger,
) *Service {
	byChannel := make(map[channel.Code]channel.Adapter, len(adapters))
	for _, a := range adapters {
		byChannel[a.Channel()] = a
	}
	return &Service{
		adapters:   byChannel,
		guard:      guard,
		pipeline:   pipeline,
		commits:    commits,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// IngestRaw parses a raw channel payload and ingests the resulting draft.
func (s *Service) IngestRaw(ctx context.Context, ch channel.Code, raw []byte) (*Result, error) {
	adapter, ok := s.adapters[ch]
	if !ok {
		return nil, ErrNoAdapter
	}
	draft, err := adapter.Parse(raw)
	if err != nil {
		return nil, err
	}
	return s.IngestDraft(ctx, draft)
}

// IngestDraft runs the guard, the validation pipeline and the commit
// sequence for a parsed draft. A duplicate returns ErrDuplicateOrder with
// the prior order id in the result.
func (s *Service) IngestDraft(ctx context.Context, draft *channel.OrderDraft) (*Result, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrMalformedPayload, err)
	}

	if exists, orderID := s.guard.Exists(ctx, draft.Channel, draft.ExternalOrderID); exists {
		s.logger.Info("duplicate order skipped",
			zap.String("channel", draft.Channel.String()),
			zap.String("external_order_id", draft.ExternalOrderID),
			zap.Int64("existing_order_id", orderID),
		)
		return &Result{Draft: draft, ExistingOrderID: orderID}, ErrDuplicateOrder
	}

	report, err := s.pipeline.Validate(ctx, draft)
	if err != nil {
		return nil, err
	}

	result := &Result{Draft: draft, Report: report}
	result.Commit = s.commits.Commit(ctx, draft, report)

	switch {
	case result.Commit.Succeeded():
		s.guard.Remember(ctx, draft.Channel, draft.ExternalOrderID)
		s.notifier.Notify("order-insert", ingest.SeverityInfo,
			fmt.Sprintf("%s order %s committed as %d",
				draft.Channel.DisplayName(), draft.ExternalOrderID, result.Commit.InternalOrderID))
	case report.AllRejected():
		s.notifier.Notify("empty-basket", ingest.SeverityInfo,
			draft.ExternalOrderID+": "+report.Diagnostic())
	default:
		s.notifier.Notify("order-create", ingest.SeverityError,
			draft.ExternalOrderID+": "+result.Commit.ErrorMessage)
	}
	return result, nil
}

// Check parses a raw payload and runs the validation pipeline without
// committing anything. The XML push channel probes availability this way
// before sending the commit document.
func (s *Service) Check(ctx context.Context, ch channel.Code, raw []byte) (*channel.ValidationReport, error) {
	adapter, ok := s.adapters[ch]
	if !ok {
		return nil, ErrNoAdapter
	}
	draft, err := adapter.Parse(raw)
	if err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrMalformedPayload, err)
	}
	return s.pipeline.Validate(ctx, draft)
}

// Dispatch issues the post-commit confirm/reject calls for an ingestion
// result. Webhook handlers call this after the inbound acknowledgement has
// been written. Rejections always go out; confirmations only when the
// commit produced an order.
func (s *Service) Dispatch(ctx context.Context, result *Result) {
	if result == nil || result.Report == nil {
		return
	}
	s.dispatcher.DispatchPostCommit(ctx, result.Draft, result.Report, result.Commit.Succeeded())
}
