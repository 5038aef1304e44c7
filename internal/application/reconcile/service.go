package reconcile

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
	ErrOrderNotFound = errors.New("reconcile service: order not found")
)

// OrderCanceller is the store surface of the inbound cancel flow.
type OrderCanceller interface {
	Cancel(ctx context.Context, orderID int64, reason string) error
}

// Service handles the externally triggered reconciliation flows: status
// transitions, marking callbacks and inbound cancellations.
type Service struct {
	dispatcher *reconcile.Dispatcher
	guard      *ingest.IdempotencyGuard
	canceller  OrderCanceller
	notifier   ingest.Notifier
	logger     *zap.Logger
}

// NewService creates a reconciliation service
func NewService(
	dispatcher *reconcile.Dispatcher,
	guard *ingest.IdempotencyGuard,
	canceller OrderCanceller,
	notifier ingest.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		dispatcher: dispatcher,
		guard:      guard,
		canceller:  canceller,
		notifier:   notifier,
		logger:     logger,
	}
}

// OnStatusChange reacts to an internal order status transition.
func (s *Service) OnStatusChange(ctx context.Context, orderID int64, status channel.StoreStatus) error {
	return s.dispatcher.HandleStatusEvent(ctx, orderID, status)
}

// OnMarkingFulfilled receives the regulatory marking codes for an order
// whose shipment was deferred.
func (s *Service) OnMarkingFulfilled(ctx context.Context, orderID int64, codes []string) error {
	return s.dispatcher.HandleMarkingCallback(ctx, orderID, codes)
}

// OnReturnClaim forwards a return claim for a delivered order to the
// channel that owns it.
func (s *Service) OnReturnClaim(ctx context.Context, orderID int64, reason string) error {
	return s.dispatcher.HandleReturnClaim(ctx, orderID, reason)
}

// CancelByExternalID cancels the committed order behind a marketplace
// cancellation request. An unknown external id returns ErrOrderNotFound;
// the handler answers it with a conflict status.
func (s *Service) CancelByExternalID(ctx context.Context, ch channel.Code, externalOrderID string) error {
	exists, orderID := s.guard.Exists(ctx, ch, externalOrderID)
	if !exists || orderID == 0 {
		s.notifier.Notify("order-does-not-exist", ingest.SeverityError, externalOrderID)
		return ErrOrderNotFound
	}

	reason := fmt.Sprintf("cancelled by %s request, external order %s", ch.DisplayName(), externalOrderID)
	if err := s.canceller.Cancel(ctx, orderID, reason); err != nil {
		s.notifier.Notify("order-cancel", ingest.SeverityError, externalOrderID+": "+err.Error())
		return err
	}

	s.notifier.Notify("order-cancel-success", ingest.SeverityInfo, externalOrderID)
	s.logger.Info("order cancelled on marketplace request",
		zap.String("channel", ch.String()),
		zap.String("external_order_id", externalOrderID),
		zap.Int64("order_id", orderID),
	)
	return nil
}
