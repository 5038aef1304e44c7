package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
)

// MegaMarketClient talks to the MegaMarket merchant order service: the
// post-commit confirm/reject pair, the packing and shipping calls, and the
// sticker sheet retrieval.
type MegaMarketClient struct {
	config     *MegaMarketConfig
	httpClient *http.Client
	retry      *RetryClient
	logger     *zap.Logger
}

// Interface assertion
var _ channel.Gateway = (*MegaMarketClient)(nil)

// NewMegaMarketClient creates a MegaMarket merchant API client
func NewMegaMarketClient(config *MegaMarketConfig, retry *RetryClient, logger *zap.Logger) (*MegaMarketClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &MegaMarketClient{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		retry:  retry,
		logger: logger,
	}, nil
}

// Channel returns the channel code this client serves
func (c *MegaMarketClient) Channel() channel.Code {
	return channel.CodeMegaMarket
}

// ConfirmOrder reports the accepted line items of a shipment.
func (c *MegaMarketClient) ConfirmOrder(ctx context.Context, externalOrderID string, items []channel.ReconcileItem) error {
	return c.reconcileCall(ctx, "order/confirm", "megamarket-confirm", channel.ConfirmRetryPolicy, externalOrderID, items)
}

// RejectOrder reports the rejected line items of a shipment.
func (c *MegaMarketClient) RejectOrder(ctx context.Context, externalOrderID string, items []channel.ReconcileItem) error {
	return c.reconcileCall(ctx, "order/reject", "megamarket-reject", channel.RejectRetryPolicy, externalOrderID, items)
}

func (c *MegaMarketClient) reconcileCall(ctx context.Context, path, operation string, policy channel.RetryPolicy, externalOrderID string, items []channel.ReconcileItem) error {
	specs := make([]MegaMarketItemSpec, 0, len(items))
	for _, it := range items {
		specs = append(specs, MegaMarketItemSpec{ItemIndex: it.ItemIndex, OfferID: it.Ref, Quantity: it.Quantity})
	}
	data := megaMarketOrderConfirmData{
		Token:     c.config.Token,
		Shipments: []megaMarketShipmentItems{{ShipmentID: externalOrderID, Items: specs}},
	}

	attempt := func(ctx context.Context) (*MegaMarketResponse, error) {
		return c.doRequest(ctx, path, data)
	}
	_, _, ok := Execute(ctx, c.retry, policy, operation, attempt, megaMarketClassifier)
	if !ok {
		return fmt.Errorf("megamarket: %s for %s not accepted", path, externalOrderID)
	}
	return nil
}

// ShipOrder reports a shipment as handed over, naming its packed boxes.
func (c *MegaMarketClient) ShipOrder(ctx context.Context, externalOrderID string, notice channel.ShipmentNotice) error {
	boxes := make([]MegaMarketBox, 0, len(notice.BoxCodes))
	for i, code := range notice.BoxCodes {
		boxes = append(boxes, MegaMarketBox{BoxIndex: i + 1, BoxCode: code})
	}
	data := megaMarketShippingData{Token: c.config.Token, ShipmentID: externalOrderID, Boxes: boxes}

	attempt := func(ctx context.Context) (*MegaMarketResponse, error) {
		return c.doRequest(ctx, "order/shipping", data)
	}
	_, _, ok := Execute(ctx, c.retry, channel.ShipRetryPolicy, "megamarket-shipping", attempt, megaMarketClassifier)
	if !ok {
		return fmt.Errorf("megamarket: shipping for %s not accepted", externalOrderID)
	}
	return nil
}

// NotifyStatus is not part of the MegaMarket protocol; lifecycle reporting
// happens through the packing and shipping calls.
func (c *MegaMarketClient) NotifyStatus(ctx context.Context, externalOrderID string, status channel.StoreStatus) error {
	return channel.ErrUnsupportedCall
}

// ReturnClaim is not part of the MegaMarket protocol.
func (c *MegaMarketClient) ReturnClaim(ctx context.Context, externalOrderID, reason string) error {
	return channel.ErrUnsupportedCall
}

// Packing reports the box assignment of a shipment's line items.
func (c *MegaMarketClient) Packing(ctx context.Context, shipmentID string, items []MegaMarketPackingItem) error {
	data := megaMarketPackingData{
		Token:     c.config.Token,
		Shipments: []megaMarketPackingShip{{ShipmentID: shipmentID, Items: items}},
	}
	attempt := func(ctx context.Context) (*MegaMarketResponse, error) {
		return c.doRequest(ctx, "order/packing", data)
	}
	_, _, ok := Execute(ctx, c.retry, channel.ConfirmRetryPolicy, "megamarket-packing", attempt, megaMarketClassifier)
	if !ok {
		return fmt.Errorf("megamarket: packing for %s not accepted", shipmentID)
	}
	return nil
}

// StickerPrint fetches the sticker sheet for the packed boxes. The response
// data is the HTML document the warehouse prints.
func (c *MegaMarketClient) StickerPrint(ctx context.Context, shipmentID string, boxCodes []string, items []MegaMarketPackingItem) (string, error) {
	data := megaMarketStickerData{
		Token:      c.config.Token,
		ShipmentID: shipmentID,
		BoxCodes:   boxCodes,
		Items:      items,
	}
	resp, err := c.doRequest(ctx, "order/stickerPrint", data)
	if err != nil {
		return "", err
	}
	if resp.Success != 1 {
		return "", fmt.Errorf("megamarket: sticker print rejected: %s", resp.Error)
	}
	var sheet string
	if err := json.Unmarshal(resp.Data, &sheet); err != nil {
		return "", fmt.Errorf("megamarket: decode sticker sheet: %w", err)
	}
	if sheet == "" {
		return "", fmt.Errorf("megamarket: empty sticker sheet")
	}
	return sheet, nil
}

func megaMarketClassifier(resp *MegaMarketResponse, err error) Classification {
	if err == nil && resp != nil && resp.Success == 1 {
		return ClassSuccess
	}
	return ClassRetry
}

// doRequest performs one enveloped JSON POST against the merchant API
func (c *MegaMarketClient) doRequest(ctx context.Context, path string, data interface{}) (*MegaMarketResponse, error) {
	payload, err := json.Marshal(megaMarketEnvelope{Data: data, Meta: map[string]interface{}{}})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBaseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("megamarket api returned non-200",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
	}

	var decoded MegaMarketResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return &decoded, nil
}
