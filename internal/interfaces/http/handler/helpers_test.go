package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	appingest "github.com/markethub/backend/internal/application/ingest"
	appreconcile "github.com/markethub/backend/internal/application/reconcile"
	"github.com/markethub/backend/internal/domain/channel"
	dingest "github.com/markethub/backend/internal/domain/ingest"
	dreconcile "github.com/markethub/backend/internal/domain/reconcile"
)

// stubStore is an in-memory order store covering every surface the handlers
// reach: creation, idempotency lookups, properties and cancellation.
type stubStore struct {
	existing   map[string][]int64
	handle     *stubHandle
	properties map[string]string
	written    map[string]string
	paymentID  int64
	deliveryID int64
	cancelled  []int64
	lines      []channel.ShipmentLine
}

func newStubStore() *stubStore {
	return &stubStore{
		existing:   make(map[string][]int64),
		handle:     &stubHandle{finalizeID: 900},
		properties: make(map[string]string),
		written:    make(map[string]string),
	}
}

func (s *stubStore) Create(ctx context.Context, buyerID int64, currency, site string) (dingest.OrderHandle, error) {
	return s.handle, nil
}

func (s *stubStore) FindByProperty(ctx context.Context, name, value string, from, to time.Time) ([]int64, error) {
	return s.existing[name+"/"+value], nil
}

func (s *stubStore) PropertyValue(ctx context.Context, orderID int64, name string) (string, error) {
	return s.properties[name], nil
}

func (s *stubStore) SetOrderProperty(ctx context.Context, orderID int64, name, value string) error {
	s.written[name] = value
	return nil
}

func (s *stubStore) Cancel(ctx context.Context, orderID int64, reason string) error {
	s.cancelled = append(s.cancelled, orderID)
	return nil
}

func (s *stubStore) PaymentAndDelivery(ctx context.Context, orderID int64) (int64, int64, error) {
	return s.paymentID, s.deliveryID, nil
}

func (s *stubStore) BasketLines(ctx context.Context, orderID int64) ([]channel.ShipmentLine, error) {
	return s.lines, nil
}

type stubHandle struct {
	basket     []dingest.BasketLine
	properties map[string]string
	finalizeID int64
}

func (h *stubHandle) AttachBasketLine(ctx context.Context, line dingest.BasketLine) error {
	h.basket = append(h.basket, line)
	return nil
}

func (h *stubHandle) AttachDelivery(ctx context.Context, d dingest.DeliveryLine) error { return nil }
func (h *stubHandle) AttachPayment(ctx context.Context, p dingest.PaymentLine) error  { return nil }

func (h *stubHandle) SetProperty(ctx context.Context, key, value string) error {
	if h.properties == nil {
		h.properties = make(map[string]string)
	}
	h.properties[key] = value
	return nil
}

func (h *stubHandle) Finalize(ctx context.Context) (int64, []string, []string, error) {
	return h.finalizeID, nil, nil, nil
}

type stubCatalog struct{}

func (stubCatalog) ProductByChannelSKU(ctx context.Context, ch channel.Code, sku string) (*dingest.Product, error) {
	switch sku {
	case "SKU-1":
		return &dingest.Product{ID: 11, Active: true, Available: true, AvailableQuantity: 10, HasPrice: true, Price: decimal.NewFromInt(100)}, nil
	case "SKU-2":
		return &dingest.Product{ID: 22, Active: true, Available: false, HasPrice: true, Price: decimal.NewFromInt(50)}, nil
	default:
		return nil, nil
	}
}

type stubBuyers struct{}

func (stubBuyers) ResolveOrCreate(ctx context.Context, login, email string, info channel.BuyerInfo) (int64, error) {
	return 55, nil
}

type stubSuppressor struct{}

func (stubSuppressor) Acquire(ctx context.Context) (func(), error) { return func() {}, nil }

type stubNotifier struct{ events []string }

func (n *stubNotifier) Notify(code string, severity dingest.Severity, detail string) {
	n.events = append(n.events, code)
}

type stubGateway struct {
	code    channel.Code
	calls   []string
	shipped []channel.ShipmentNotice
}

func (g *stubGateway) Channel() channel.Code { return g.code }

func (g *stubGateway) ConfirmOrder(ctx context.Context, id string, items []channel.ReconcileItem) error {
	g.calls = append(g.calls, "confirm")
	return nil
}

func (g *stubGateway) RejectOrder(ctx context.Context, id string, items []channel.ReconcileItem) error {
	g.calls = append(g.calls, "reject")
	return nil
}

func (g *stubGateway) ShipOrder(ctx context.Context, id string, notice channel.ShipmentNotice) error {
	g.calls = append(g.calls, "ship")
	g.shipped = append(g.shipped, notice)
	return nil
}

func (g *stubGateway) NotifyStatus(ctx context.Context, id string, status channel.StoreStatus) error {
	g.calls = append(g.calls, "status")
	return nil
}

func (g *stubGateway) ReturnClaim(ctx context.Context, id, reason string) error {
	g.calls = append(g.calls, "return")
	return nil
}

type stubPackingGateway struct {
	packed []appreconcile.PackingItem
	sheet  string
}

func (g *stubPackingGateway) Packing(ctx context.Context, shipmentID string, items []appreconcile.PackingItem) error {
	g.packed = items
	return nil
}

func (g *stubPackingGateway) StickerSheet(ctx context.Context, shipmentID string, boxCodes []string, items []appreconcile.PackingItem) (string, error) {
	return g.sheet, nil
}

type stubMailer struct{ sent int }

func (m *stubMailer) Send(to, subject, body string) error {
	m.sent++
	return nil
}

// rig wires the full handler stack over the stubs.
type rig struct {
	engine   *gin.Engine
	store    *stubStore
	notifier *stubNotifier
	gateway  *stubGateway
	packGate *stubPackingGateway
	mailer   *stubMailer
}

func newRig(t *testing.T, adapters []channel.Adapter, gatewayChannel channel.Code) *rig {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zaptest.NewLogger(t)

	store := newStubStore()
	notifier := &stubNotifier{}
	gateway := &stubGateway{code: gatewayChannel}

	registry := channel.NewGatewayRegistry()
	registry.Register(gateway)

	guard := dingest.NewIdempotencyGuard(store, nil, nil, logger)
	pipeline := dingest.NewValidationPipeline(stubCatalog{}, nil, logger)
	commits := dingest.NewCommitSequence(store, stubBuyers{}, stubSuppressor{}, nil, notifier, dingest.CommitConfig{
		Currency: "RUB",
		Site:     "s1",
	}, logger)
	dispatcher := dreconcile.NewDispatcher(store, registry, notifier, logger)

	ingestSvc := appingest.NewService(adapters, guard, pipeline, commits, dispatcher, notifier, logger)
	reconcileSvc := appreconcile.NewService(dispatcher, guard, store, notifier, logger)

	packGate := &stubPackingGateway{sheet: "<html>stickers</html>"}
	mailer := &stubMailer{}
	packing := appreconcile.NewPackingService(store, packGate, mailer, notifier, "MH", "warehouse@markethub.local", logger)

	engine := gin.New()
	mm := NewMegaMarketHandler(ingestSvc, reconcileSvc, packing, "tok-1", logger)
	mm.RegisterRoutes(engine.Group("/api/market/v1/orderService"))
	mb := NewMultibonusHandler(ingestSvc, 500, "190000", logger)
	mb.RegisterRoutes(engine.Group("/api/multibonus/v1"))
	ff := NewFulfillmentHandler(reconcileSvc, logger)
	ff.RegisterRoutes(engine.Group("/api/v1"))

	return &rig{
		engine:   engine,
		store:    store,
		notifier: notifier,
		gateway:  gateway,
		packGate: packGate,
		mailer:   mailer,
	}
}

func (r *rig) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.engine.ServeHTTP(w, req)
	return w
}
