package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
	"github.com/markethub/backend/internal/domain/reconcile"
)

// Errors for the packing flow
var (
	ErrBadPackingRequest = errors.New("reconcile service: malformed packing request")
	ErrNoExternalOrderID = errors.New("reconcile service: order has no external order id")
	ErrNoItemIndexes     = errors.New("reconcile service: order has no recorded item indexes")
)

// PackingItem binds one marketplace line item index to its coded box.
type PackingItem struct {
	ItemIndex  int
	CargoIndex int
	BoxCode    string
}

// PackingGateway is the channel surface of the packing flow.
type PackingGateway interface {
	Packing(ctx context.Context, shipmentID string, items []PackingItem) error
	// StickerSheet fetches the printable sticker document for the packed
	// boxes
	StickerSheet(ctx context.Context, shipmentID string, boxCodes []string, items []PackingItem) (string, error)
}

// Mailer sends the sticker sheet to the warehouse.
type Mailer interface {
	Send(to, subject, body string) error
}

// PackingRequest is the fulfillment-side packing instruction: which cargo
// place each product of an order went into.
type PackingRequest struct {
	// OrderID is the internal order id
	OrderID int64
	// FulfillmentOrders are the upstream fulfillment document numbers,
	// echoed in the warehouse email
	FulfillmentOrders []string
	// CargoPlaces maps internal product ids to cargo place numbers
	CargoPlaces map[int64]int
	// DisablePackingRequest skips the outbound packing call
	DisablePackingRequest bool
	// DisableWarehouseEmail skips the sticker email
	DisableWarehouseEmail bool
}

// Validate checks the mandatory fields of a packing request
func (r *PackingRequest) Validate() error {
	if r.OrderID <= 0 || len(r.FulfillmentOrders) == 0 || len(r.CargoPlaces) == 0 {
		return ErrBadPackingRequest
	}
	return nil
}

// PackingService drives the packing flow of the webhook channel: box code
// assignment, the outbound packing call, the sticker sheet email, and the
// box code property for the later shipping call.
type PackingService struct {
	records        reconcile.OrderRecords
	gateway        PackingGateway
	mailer         Mailer
	notifier       ingest.Notifier
	merchantCode   string
	warehouseEmail string
	logger         *zap.Logger
}

// NewPackingService creates a packing service
func NewPackingService(
	records reconcile.OrderRecords,
	gateway PackingGateway,
	mailer Mailer,
	notifier ingest.Notifier,
	merchantCode, warehouseEmail string,
	logger *zap.Logger,
) *PackingService {
	return &PackingService{
		records:        records,
		gateway:        gateway,
		mailer:         mailer,
		notifier:       notifier,
		merchantCode:   merchantCode,
		warehouseEmail: warehouseEmail,
		logger:         logger,
	}
}

// HandlePacking performs the packing flow for one order.
func (s *PackingService) HandlePacking(ctx context.Context, req PackingRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	identity, err := channel.IdentityOf(channel.CodeMegaMarket)
	if err != nil {
		return err
	}
	shipmentID, err := s.records.PropertyValue(ctx, req.OrderID, identity.OrderIDProperty)
	if err != nil || shipmentID == "" {
		s.notifier.Notify("order-number-extract", ingest.SeverityError,
			fmt.Sprintf("order %d: failed to get external order id", req.OrderID))
		return ErrNoExternalOrderID
	}

	items, boxCodes, err := s.glueItems(ctx, req)
	if err != nil {
		s.notifier.Notify("order-indexes-extract", ingest.SeverityError,
			fmt.Sprintf("order %d: %v", req.OrderID, err))
		return err
	}

	if !req.DisablePackingRequest {
		if err := s.gateway.Packing(ctx, shipmentID, items); err != nil {
			return err
		}
	}

	if !req.DisableWarehouseEmail {
		s.sendStickerSheet(ctx, req, shipmentID, boxCodes, items)
	}

	raw, err := json.Marshal(boxCodes)
	if err == nil {
		if err := s.records.SetOrderProperty(ctx, req.OrderID, channel.PropertyBoxCodes, string(raw)); err != nil {
			s.notifier.Notify("box-codes", ingest.SeverityError,
				fmt.Sprintf("order %d: saving box codes: %v", req.OrderID, err))
		}
	}
	return nil
}

// glueItems matches the recorded item indexes against the cargo places and
// assigns box codes of the form merchant*order*cargoIndex.
func (s *PackingService) glueItems(ctx context.Context, req PackingRequest) ([]PackingItem, []string, error) {
	raw, err := s.records.PropertyValue(ctx, req.OrderID, channel.PropertyItemIndexes)
	if err != nil || raw == "" {
		return nil, nil, ErrNoItemIndexes
	}
	var indexes map[string]int64
	if err := json.Unmarshal([]byte(raw), &indexes); err != nil {
		return nil, nil, fmt.Errorf("decode item indexes: %w", err)
	}

	var items []PackingItem
	seenCodes := make(map[string]struct{})
	var boxCodes []string
	for indexKey, productID := range indexes {
		cargoIndex, ok := req.CargoPlaces[productID]
		if !ok {
			continue
		}
		itemIndex := parseIndex(indexKey)
		boxCode := fmt.Sprintf("%s*%d*%d", s.merchantCode, req.OrderID, cargoIndex)
		items = append(items, PackingItem{
			ItemIndex:  itemIndex,
			CargoIndex: cargoIndex,
			BoxCode:    boxCode,
		})
		if _, seen := seenCodes[boxCode]; !seen {
			seenCodes[boxCode] = struct{}{}
			boxCodes = append(boxCodes, boxCode)
		}
	}
	if len(items) == 0 {
		return nil, nil, ErrNoItemIndexes
	}
	return items, boxCodes, nil
}

// sendStickerSheet fetches the sticker document and mails it to the
// warehouse. Failures notify, never fail the packing flow.
func (s *PackingService) sendStickerSheet(ctx context.Context, req PackingRequest, shipmentID string, boxCodes []string, items []PackingItem) {
	sheet, err := s.gateway.StickerSheet(ctx, shipmentID, boxCodes, items)
	if err != nil {
		s.notifier.Notify("sticker-print", ingest.SeverityError,
			fmt.Sprintf("shipment %s: %v", shipmentID, err))
		return
	}
	subject := "Stickers for orders " + strings.Join(req.FulfillmentOrders, ", ")
	if err := s.mailer.Send(s.warehouseEmail, subject, sheet); err != nil {
		s.notifier.Notify("sticker-mail", ingest.SeverityError,
			fmt.Sprintf("shipment %s: %v", shipmentID, err))
	}
}

func parseIndex(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
