package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
)

// fakeRecords serves order properties, the recorded payment/delivery pair
// and the committed basket.
type fakeRecords struct {
	properties  map[string]string
	written     map[string]string
	paymentID   int64
	deliveryID  int64
	lines       []channel.ShipmentLine
	pairErr     error
	propertyErr error
	linesErr    error
}

func (r *fakeRecords) PropertyValue(ctx context.Context, orderID int64, name string) (string, error) {
	if r.propertyErr != nil {
		return "", r.propertyErr
	}
	return r.properties[name], nil
}

func (r *fakeRecords) SetOrderProperty(ctx context.Context, orderID int64, name, value string) error {
	if r.written == nil {
		r.written = make(map[string]string)
	}
	r.written[name] = value
	return nil
}

func (r *fakeRecords) PaymentAndDelivery(ctx context.Context, orderID int64) (int64, int64, error) {
	return r.paymentID, r.deliveryID, r.pairErr
}

func (r *fakeRecords) BasketLines(ctx context.Context, orderID int64) ([]channel.ShipmentLine, error) {
	return r.lines, r.linesErr
}

// fakeGateway records outbound calls and returns the configured errors.
type fakeGateway struct {
	code       channel.Code
	confirmed  [][]channel.ReconcileItem
	rejected   [][]channel.ReconcileItem
	shipped    []channel.ShipmentNotice
	statuses   []channel.StoreStatus
	returns    []string
	calls      []string
	confirmErr error
	rejectErr  error
	shipErr    error
	statusErr  error
	returnErr  error
}

func (g *fakeGateway) Channel() channel.Code { return g.code }

func (g *fakeGateway) ConfirmOrder(ctx context.Context, id string, items []channel.ReconcileItem) error {
	g.calls = append(g.calls, "confirm")
	g.confirmed = append(g.confirmed, items)
	return g.confirmErr
}

func (g *fakeGateway) RejectOrder(ctx context.Context, id string, items []channel.ReconcileItem) error {
	g.calls = append(g.calls, "reject")
	g.rejected = append(g.rejected, items)
	return g.rejectErr
}

func (g *fakeGateway) ShipOrder(ctx context.Context, id string, notice channel.ShipmentNotice) error {
	g.calls = append(g.calls, "ship")
	g.shipped = append(g.shipped, notice)
	return g.shipErr
}

func (g *fakeGateway) NotifyStatus(ctx context.Context, id string, status channel.StoreStatus) error {
	g.calls = append(g.calls, "status")
	g.statuses = append(g.statuses, status)
	return g.statusErr
}

func (g *fakeGateway) ReturnClaim(ctx context.Context, id, reason string) error {
	g.calls = append(g.calls, "return")
	g.returns = append(g.returns, reason)
	return g.returnErr
}

type recordingNotifier struct {
	events  []string
	details []string
}

func (n *recordingNotifier) Notify(code string, severity ingest.Severity, detail string) {
	n.events = append(n.events, code)
	n.details = append(n.details, detail)
}

func registryWith(gateways ...*fakeGateway) *channel.GatewayRegistry {
	registry := channel.NewGatewayRegistry()
	for _, g := range gateways {
		registry.Register(g)
	}
	return registry
}

func ozonRecords(props map[string]string) *fakeRecords {
	merged := map[string]string{"OZON_ORDER_ID": "12345-0001-1"}
	for k, v := range props {
		merged[k] = v
	}
	return &fakeRecords{properties: merged, paymentID: 33, deliveryID: 95}
}

func twoItemDraft() (*channel.OrderDraft, *channel.ValidationReport) {
	draft := &channel.OrderDraft{
		Channel:         channel.CodeOzon,
		ExternalOrderID: "12345-0001-1",
		LineItems: []channel.LineItem{
			{ChannelSKU: "SKU-1", UnitPrice: decimal.NewFromInt(100), Quantity: 2, ItemIndex: 0},
			{ChannelSKU: "SKU-2", UnitPrice: decimal.NewFromInt(50), Quantity: 1, ItemIndex: 1},
		},
	}
	report := &channel.ValidationReport{}
	report.AddConfirmed("SKU-1", 11, 10)
	report.AddRejected("SKU-2", 22, channel.RejectInsufficientStock, 0, "SKU-2: out of stock")
	return draft, report
}

func TestDispatcher_DispatchPostCommit(t *testing.T) {
	ctx := context.Background()

	t.Run("reject goes out before confirm", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		d := NewDispatcher(&fakeRecords{}, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		draft, report := twoItemDraft()
		d.DispatchPostCommit(ctx, draft, report, true)

		assert.Equal(t, []string{"reject", "confirm"}, gateway.calls)
		require.Len(t, gateway.rejected, 1)
		assert.Equal(t, "SKU-2", gateway.rejected[0][0].Ref)
		require.Len(t, gateway.confirmed, 1)
		assert.Equal(t, "SKU-1", gateway.confirmed[0][0].Ref)
		assert.Equal(t, 2, gateway.confirmed[0][0].Quantity)
	})

	t.Run("failed commit rejects but never confirms", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		d := NewDispatcher(&fakeRecords{}, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		draft, report := twoItemDraft()
		d.DispatchPostCommit(ctx, draft, report, false)

		assert.Equal(t, []string{"reject"}, gateway.calls)
		assert.Empty(t, gateway.confirmed)
	})

	t.Run("no rejected items skips the reject call", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		d := NewDispatcher(&fakeRecords{}, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		draft, _ := twoItemDraft()
		report := &channel.ValidationReport{}
		report.AddConfirmed("SKU-1", 11, 10)
		report.AddConfirmed("SKU-2", 22, 10)
		d.DispatchPostCommit(ctx, draft, report, true)

		assert.Equal(t, []string{"confirm"}, gateway.calls)
	})

	t.Run("unsupported calls are silent no-ops", func(t *testing.T) {
		gateway := &fakeGateway{
			code:       channel.CodeOzon,
			confirmErr: channel.ErrUnsupportedCall,
			rejectErr:  channel.ErrUnsupportedCall,
		}
		notifier := &recordingNotifier{}
		d := NewDispatcher(&fakeRecords{}, registryWith(gateway), notifier, zaptest.NewLogger(t))

		draft, report := twoItemDraft()
		d.DispatchPostCommit(ctx, draft, report, true)

		assert.Empty(t, notifier.events)
	})

	t.Run("transport failures notify the operator", func(t *testing.T) {
		gateway := &fakeGateway{
			code:       channel.CodeOzon,
			confirmErr: errors.New("503"),
			rejectErr:  errors.New("503"),
		}
		notifier := &recordingNotifier{}
		d := NewDispatcher(&fakeRecords{}, registryWith(gateway), notifier, zaptest.NewLogger(t))

		draft, report := twoItemDraft()
		d.DispatchPostCommit(ctx, draft, report, true)

		assert.Equal(t, []string{"order-reject", "order-confirm"}, notifier.events)
	})
}

func TestDispatcher_HandleStatusEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("ready-to-ship on an affiliated order ships it", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := ozonRecords(nil)
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		err := d.HandleStatusEvent(ctx, 900, channel.StatusReadyToShip)
		require.NoError(t, err)
		assert.Equal(t, []string{"ship"}, gateway.calls)
	})

	t.Run("ship call carries the committed basket", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := ozonRecords(nil)
		records.lines = []channel.ShipmentLine{
			{ProductID: 11, Quantity: 2},
			{ProductID: 22, Quantity: 1},
		}
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		require.NoError(t, d.HandleStatusEvent(ctx, 900, channel.StatusReadyToShip))
		require.Len(t, gateway.shipped, 1)
		assert.Equal(t, records.lines, gateway.shipped[0].Lines)
	})

	t.Run("foreign payment delivery pair is ignored", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := &fakeRecords{paymentID: 1, deliveryID: 2}
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		err := d.HandleStatusEvent(ctx, 900, channel.StatusReadyToShip)
		require.NoError(t, err)
		assert.Empty(t, gateway.calls)
	})

	t.Run("pending marking defers the ship call", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := ozonRecords(map[string]string{channel.PropertyMarkingProducts: "11,22"})
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		err := d.HandleStatusEvent(ctx, 900, channel.StatusReadyToShip)
		require.NoError(t, err)
		assert.Empty(t, gateway.calls)
	})

	t.Run("marking already sent does not defer", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := ozonRecords(map[string]string{channel.PropertyMarkingProducts: MarkingSentMarker})
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		err := d.HandleStatusEvent(ctx, 900, channel.StatusReadyToShip)
		require.NoError(t, err)
		assert.Equal(t, []string{"ship"}, gateway.calls)
	})

	t.Run("shipped status for a box channel attaches box codes", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeMegaMarket}
		records := &fakeRecords{
			paymentID:  35,
			deliveryID: 101,
			properties: map[string]string{
				"MEGAMARKET_ORDER_ID":   "MM-1",
				channel.PropertyBoxCodes: `["BOX-1","BOX-2"]`,
			},
		}
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		err := d.HandleStatusEvent(ctx, 900, channel.StatusShipped)
		require.NoError(t, err)
		require.Len(t, gateway.shipped, 1)
		assert.Equal(t, []string{"BOX-1", "BOX-2"}, gateway.shipped[0].BoxCodes)
	})

	t.Run("box channel without box codes skips and notifies", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeMegaMarket}
		records := &fakeRecords{
			paymentID:  35,
			deliveryID: 101,
			properties: map[string]string{"MEGAMARKET_ORDER_ID": "MM-1"},
		}
		notifier := &recordingNotifier{}
		d := NewDispatcher(records, registryWith(gateway), notifier, zaptest.NewLogger(t))

		err := d.HandleStatusEvent(ctx, 900, channel.StatusShipped)
		require.NoError(t, err)
		assert.Empty(t, gateway.shipped)
		assert.Equal(t, []string{"data-shipping-error"}, notifier.events)
	})

	t.Run("lifecycle channel forwards every status", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeMultibonus}
		records := &fakeRecords{
			paymentID:  31,
			deliveryID: 91,
			properties: map[string]string{"MULTIBONUS_ORDER_ID": "VTB-1"},
		}
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		require.NoError(t, d.HandleStatusEvent(ctx, 900, channel.StatusCancelled))
		assert.Equal(t, []channel.StoreStatus{channel.StatusCancelled}, gateway.statuses)
	})

	t.Run("missing external id is logged and skipped", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := &fakeRecords{paymentID: 33, deliveryID: 95}
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		err := d.HandleStatusEvent(ctx, 900, channel.StatusReadyToShip)
		require.NoError(t, err)
		assert.Empty(t, gateway.calls)
	})
}

func TestDispatcher_HandleMarkingCallback(t *testing.T) {
	ctx := context.Background()

	t.Run("matching code count ships and marks sent", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := ozonRecords(map[string]string{channel.PropertyMarkingProducts: "11,22"})
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		err := d.HandleMarkingCallback(ctx, 900, []string{"CODE-A", "CODE-B"})
		require.NoError(t, err)
		require.Len(t, gateway.shipped, 1)
		assert.Equal(t, []string{"CODE-A", "CODE-B"}, gateway.shipped[0].MarkingCodes)
		assert.Equal(t, MarkingSentMarker, records.written[channel.PropertyMarkingProducts])
	})

	t.Run("count mismatch notifies and does not ship", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := ozonRecords(map[string]string{channel.PropertyMarkingProducts: "11,22"})
		notifier := &recordingNotifier{}
		d := NewDispatcher(records, registryWith(gateway), notifier, zaptest.NewLogger(t))

		err := d.HandleMarkingCallback(ctx, 900, []string{"CODE-A"})
		require.NoError(t, err)
		assert.Empty(t, gateway.shipped)
		assert.Equal(t, []string{"marking-count"}, notifier.events)
		require.Len(t, notifier.details, 1)
		// the notification names the internal order, not a property name
		assert.Contains(t, notifier.details[0], "order 900")
		assert.Empty(t, records.written)
	})

	t.Run("codes attach to their products on the shipped lines", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := ozonRecords(map[string]string{channel.PropertyMarkingProducts: "11,22"})
		records.lines = []channel.ShipmentLine{
			{ProductID: 11, Quantity: 2},
			{ProductID: 22, Quantity: 1},
			{ProductID: 33, Quantity: 4},
		}
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		require.NoError(t, d.HandleMarkingCallback(ctx, 900, []string{"CODE-A", "CODE-B"}))
		require.Len(t, gateway.shipped, 1)

		lines := gateway.shipped[0].Lines
		require.Len(t, lines, 3)
		assert.Equal(t, []string{"CODE-A"}, lines[0].Exemplars)
		assert.Equal(t, []string{"CODE-B"}, lines[1].Exemplars)
		assert.Empty(t, lines[2].Exemplars)
		assert.Equal(t, 4, lines[2].Quantity)
	})

	t.Run("already sent requirement is a no-op", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon}
		records := ozonRecords(map[string]string{channel.PropertyMarkingProducts: MarkingSentMarker})
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		require.NoError(t, d.HandleMarkingCallback(ctx, 900, []string{"CODE-A"}))
		assert.Empty(t, gateway.calls)
	})

	t.Run("affiliation failure propagates", func(t *testing.T) {
		records := &fakeRecords{pairErr: errors.New("db down")}
		d := NewDispatcher(records, registryWith(&fakeGateway{code: channel.CodeOzon}), &recordingNotifier{}, zaptest.NewLogger(t))

		assert.Error(t, d.HandleMarkingCallback(ctx, 900, []string{"CODE-A"}))
	})
}

func TestDispatcher_HandleReturnClaim(t *testing.T) {
	ctx := context.Background()

	multibonusRecords := func() *fakeRecords {
		return &fakeRecords{
			paymentID:  31,
			deliveryID: 91,
			properties: map[string]string{"MULTIBONUS_ORDER_ID": "VTB-1"},
		}
	}

	t.Run("claim reaches the channel with the reason", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeMultibonus}
		d := NewDispatcher(multibonusRecords(), registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		require.NoError(t, d.HandleReturnClaim(ctx, 900, "damaged on arrival"))
		assert.Equal(t, []string{"return"}, gateway.calls)
		assert.Equal(t, []string{"damaged on arrival"}, gateway.returns)
	})

	t.Run("unsupported channel is a silent no-op", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeOzon, returnErr: channel.ErrUnsupportedCall}
		records := ozonRecords(nil)
		notifier := &recordingNotifier{}
		d := NewDispatcher(records, registryWith(gateway), notifier, zaptest.NewLogger(t))

		require.NoError(t, d.HandleReturnClaim(ctx, 900, "damaged"))
		assert.Empty(t, notifier.events)
	})

	t.Run("transport failure notifies and propagates", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeMultibonus, returnErr: errors.New("503")}
		notifier := &recordingNotifier{}
		d := NewDispatcher(multibonusRecords(), registryWith(gateway), notifier, zaptest.NewLogger(t))

		assert.Error(t, d.HandleReturnClaim(ctx, 900, "damaged"))
		assert.Equal(t, []string{"order-return"}, notifier.events)
	})

	t.Run("missing external id skips the call", func(t *testing.T) {
		gateway := &fakeGateway{code: channel.CodeMultibonus}
		records := &fakeRecords{paymentID: 31, deliveryID: 91}
		d := NewDispatcher(records, registryWith(gateway), &recordingNotifier{}, zaptest.NewLogger(t))

		require.NoError(t, d.HandleReturnClaim(ctx, 900, "damaged"))
		assert.Empty(t, gateway.calls)
	})
}

var (
	_ OrderRecords    = (*fakeRecords)(nil)
	_ channel.Gateway = (*fakeGateway)(nil)
	_ ingest.Notifier = (*recordingNotifier)(nil)
)
