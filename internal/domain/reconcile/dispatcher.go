package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
)

// MarkingSentMarker replaces the required-marking property once the deferred
// ship call has been issued, preventing a second send.
const MarkingSentMarker = "STATUS-SENT"

// Errors for reconciliation dispatch
var (
	ErrNotAffiliated = errors.New("reconcile: order does not belong to any channel")
)

// OrderRecords is the narrow store surface the dispatcher needs: property
// reads/writes, the recorded payment/delivery pair for the affiliation
// check, and the committed basket for the ship call.
type OrderRecords interface {
	PropertyValue(ctx context.Context, orderID int64, name string) (string, error)
	SetOrderProperty(ctx context.Context, orderID int64, name, value string) error
	PaymentAndDelivery(ctx context.Context, orderID int64) (paymentID, deliveryID int64, err error)
	BasketLines(ctx context.Context, orderID int64) ([]channel.ShipmentLine, error)
}

// Dispatcher drives the outbound reconciliation protocol: the post-commit
// confirm/reject pair, and the ship/status calls triggered by later
// status-change events.
type Dispatcher struct {
	records  OrderRecords
	gateways *channel.GatewayRegistry
	notifier ingest.Notifier
	logger   *zap.Logger
}

// NewDispatcher creates a reconciliation dispatcher
func NewDispatcher(records OrderRecords, gateways *channel.GatewayRegistry, notifier ingest.Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{records: records, gateways: gateways, notifier: notifier, logger: logger}
}

// DispatchPostCommit sends the reject call for rejected items and, when the
// commit went through, the confirm call for confirmed items. A failed commit
// must not confirm anything: the marketplace would hand the items to a
// fulfillment flow no internal order backs. Callers on the webhook path
// invoke this after the inbound acknowledgement has been written; failures
// here are operator-visible only.
func (d *Dispatcher) DispatchPostCommit(ctx context.Context, draft *channel.OrderDraft, report *channel.ValidationReport, committed bool) {
	gateway, err := d.gateways.Get(draft.Channel)
	if err != nil {
		d.logger.Error("no gateway for post-commit dispatch", zap.String("channel", draft.Channel.String()))
		return
	}

	rejected := d.reconcileItems(draft, report, channel.ValidationRejected)
	if len(rejected) > 0 {
		if err := gateway.RejectOrder(ctx, draft.ExternalOrderID, rejected); err != nil && !errors.Is(err, channel.ErrUnsupportedCall) {
			d.notifier.Notify("order-reject", ingest.SeverityError,
				draft.ExternalOrderID+": "+err.Error()+". "+report.Diagnostic())
		}
	}

	if !committed {
		return
	}

	confirmed := d.reconcileItems(draft, report, channel.ValidationConfirmed)
	if len(confirmed) > 0 {
		if err := gateway.ConfirmOrder(ctx, draft.ExternalOrderID, confirmed); err != nil && !errors.Is(err, channel.ErrUnsupportedCall) {
			d.notifier.Notify("order-confirm", ingest.SeverityError,
				draft.ExternalOrderID+": "+err.Error())
		}
	}
}

// reconcileItems projects the draft line items with the given validation
// status into the outbound call payload, preserving input order.
func (d *Dispatcher) reconcileItems(draft *channel.OrderDraft, report *channel.ValidationReport, status channel.ValidationStatus) []channel.ReconcileItem {
	var items []channel.ReconcileItem
	for _, li := range draft.LineItems {
		outcome, ok := report.Outcome(li.Ref())
		if !ok || outcome.Status != status {
			continue
		}
		items = append(items, channel.ReconcileItem{
			Ref:       li.Ref(),
			ItemIndex: li.ItemIndex,
			Quantity:  li.Quantity,
		})
	}
	return items
}

// HandleStatusEvent reacts to an internal order status transition: it
// re-derives channel affiliation from the recorded payment/delivery pair and
// issues the matching outbound call. Orders with pending regulatory marking
// are not shipped here; see HandleMarkingCallback.
func (d *Dispatcher) HandleStatusEvent(ctx context.Context, orderID int64, status channel.StoreStatus) error {
	ch, identity, err := d.affiliation(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotAffiliated) {
			return nil
		}
		return err
	}

	externalID, err := d.records.PropertyValue(ctx, orderID, identity.OrderIDProperty)
	if err != nil || externalID == "" {
		d.logger.Warn("status event for order without external id",
			zap.Int64("order_id", orderID), zap.String("channel", ch.String()))
		return nil
	}

	gateway, err := d.gateways.Get(ch)
	if err != nil {
		return err
	}

	switch {
	case ch == channel.CodeOzon && status == channel.StatusReadyToShip,
		ch == channel.CodeMegaMarket && status == channel.StatusShipped:
		return d.ship(ctx, gateway, ch, orderID, externalID, nil)
	case ch == channel.CodeMultibonus:
		if err := gateway.NotifyStatus(ctx, externalID, status); err != nil && !errors.Is(err, channel.ErrUnsupportedCall) {
			d.notifier.Notify("order-send-status", ingest.SeverityError, externalID+": "+err.Error())
		}
		return nil
	default:
		return nil
	}
}

// HandleMarkingCallback receives the fulfilled regulatory marking codes for
// an order whose shipment was deferred. The ship call is issued once the
// code count matches the required set, and the requirement is marked sent.
func (d *Dispatcher) HandleMarkingCallback(ctx context.Context, orderID int64, codes []string) error {
	ch, identity, err := d.affiliation(ctx, orderID)
	if err != nil {
		return err
	}

	required, err := d.records.PropertyValue(ctx, orderID, channel.PropertyMarkingProducts)
	if err != nil {
		return err
	}
	if required == "" || required == MarkingSentMarker {
		return nil
	}
	if len(codes) != len(strings.Split(required, ",")) {
		d.notifier.Notify("marking-count", ingest.SeverityError,
			fmt.Sprintf("order %d: supplied marking codes do not cover required products", orderID))
		return nil
	}

	externalID, err := d.records.PropertyValue(ctx, orderID, identity.OrderIDProperty)
	if err != nil || externalID == "" {
		return err
	}
	gateway, err := d.gateways.Get(ch)
	if err != nil {
		return err
	}

	if err := d.ship(ctx, gateway, ch, orderID, externalID, codes); err != nil {
		return err
	}
	return d.records.SetOrderProperty(ctx, orderID, channel.PropertyMarkingProducts, MarkingSentMarker)
}

// ship issues the outbound ship call, deferring when the order still carries
// an unfulfilled marking requirement and no codes were supplied.
func (d *Dispatcher) ship(ctx context.Context, gateway channel.Gateway, ch channel.Code, orderID int64, externalID string, markingCodes []string) error {
	if len(markingCodes) == 0 {
		required, err := d.records.PropertyValue(ctx, orderID, channel.PropertyMarkingProducts)
		if err == nil && required != "" && required != MarkingSentMarker {
			d.logger.Info("shipment deferred until marking fulfillment",
				zap.Int64("order_id", orderID), zap.String("external_order_id", externalID))
			return nil
		}
	}

	notice := channel.ShipmentNotice{
		MarkingCodes: markingCodes,
		Lines:        d.shipmentLines(ctx, orderID, markingCodes),
	}
	if ch == channel.CodeMegaMarket {
		notice.BoxCodes = d.boxCodes(ctx, orderID)
		if len(notice.BoxCodes) == 0 {
			d.notifier.Notify("data-shipping-error", ingest.SeverityInfo,
				externalID+": no box codes recorded, shipping call skipped")
			return nil
		}
	}

	if err := gateway.ShipOrder(ctx, externalID, notice); err != nil && !errors.Is(err, channel.ErrUnsupportedCall) {
		d.notifier.Notify("order-ship", ingest.SeverityError, externalID+": "+err.Error())
		return err
	}
	return nil
}

// shipmentLines loads the committed basket for the outbound ship call. With
// marking codes supplied, each code is attached to its product following the
// recorded requirement order.
func (d *Dispatcher) shipmentLines(ctx context.Context, orderID int64, markingCodes []string) []channel.ShipmentLine {
	lines, err := d.records.BasketLines(ctx, orderID)
	if err != nil {
		d.logger.Warn("basket lines unavailable for ship call",
			zap.Int64("order_id", orderID), zap.Error(err))
		return nil
	}
	if len(markingCodes) == 0 {
		return lines
	}

	required, err := d.records.PropertyValue(ctx, orderID, channel.PropertyMarkingProducts)
	if err != nil || required == "" || required == MarkingSentMarker {
		return lines
	}
	byProduct := make(map[int64][]string)
	for i, raw := range strings.Split(required, ",") {
		if i >= len(markingCodes) {
			break
		}
		productID, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			continue
		}
		byProduct[productID] = append(byProduct[productID], markingCodes[i])
	}
	for i := range lines {
		lines[i].Exemplars = byProduct[lines[i].ProductID]
	}
	return lines
}

// HandleReturnClaim files a return claim for a delivered order on its
// channel. Channels without a return protocol make this a no-op.
func (d *Dispatcher) HandleReturnClaim(ctx context.Context, orderID int64, reason string) error {
	ch, identity, err := d.affiliation(ctx, orderID)
	if err != nil {
		return err
	}

	externalID, err := d.records.PropertyValue(ctx, orderID, identity.OrderIDProperty)
	if err != nil {
		return err
	}
	if externalID == "" {
		d.logger.Warn("return claim for order without external id",
			zap.Int64("order_id", orderID), zap.String("channel", ch.String()))
		return nil
	}

	gateway, err := d.gateways.Get(ch)
	if err != nil {
		return err
	}
	if err := gateway.ReturnClaim(ctx, externalID, reason); err != nil {
		if errors.Is(err, channel.ErrUnsupportedCall) {
			return nil
		}
		d.notifier.Notify("order-return", ingest.SeverityError, externalID+": "+err.Error())
		return err
	}
	return nil
}

// affiliation matches the order's recorded payment/delivery pair against the
// fixed per-channel identifiers.
func (d *Dispatcher) affiliation(ctx context.Context, orderID int64) (channel.Code, channel.Identity, error) {
	paymentID, deliveryID, err := d.records.PaymentAndDelivery(ctx, orderID)
	if err != nil {
		return "", channel.Identity{}, err
	}
	for _, code := range []channel.Code{channel.CodeOzon, channel.CodeMegaMarket, channel.CodeMultibonus} {
		identity, err := channel.IdentityOf(code)
		if err != nil {
			continue
		}
		if identity.PaymentID == paymentID && identity.DeliveryID == deliveryID {
			return code, identity, nil
		}
	}
	return "", channel.Identity{}, ErrNotAffiliated
}

// boxCodes reads the JSON-encoded box codes saved during packing.
func (d *Dispatcher) boxCodes(ctx context.Context, orderID int64) []string {
	raw, err := d.records.PropertyValue(ctx, orderID, channel.PropertyBoxCodes)
	if err != nil || raw == "" {
		return nil
	}
	var codes []string
	if err := json.Unmarshal([]byte(raw), &codes); err != nil {
		d.logger.Warn("stored box codes are not valid JSON", zap.Int64("order_id", orderID), zap.Error(err))
		return nil
	}
	return codes
}
