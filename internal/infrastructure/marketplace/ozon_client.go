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

const ozonPostingPageSize = 10

// OzonClient talks to the Ozon seller API: paginated order polling, the
// ship call, and the cron-driven stock/price pushes.
type OzonClient struct {
	config     *OzonConfig
	httpClient *http.Client
	retry      *RetryClient
	logger     *zap.Logger
}

// Interface assertion
var _ channel.Gateway = (*OzonClient)(nil)

// NewOzonClient creates an Ozon seller API client
func NewOzonClient(config *OzonConfig, retry *RetryClient, logger *zap.Logger) (*OzonClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &OzonClient{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		retry:  retry,
		logger: logger,
	}, nil
}

// Channel returns the channel code this client serves
func (c *OzonClient) Channel() channel.Code {
	return channel.CodeOzon
}

// ListPostings fetches all awaiting postings of the [since, to) window,
// following pagination until the API reports no further pages.
func (c *OzonClient) ListPostings(ctx context.Context, since, to time.Time) ([]OzonPosting, error) {
	var postings []OzonPosting
	offset := 0
	for {
		req := ozonPostingListRequest{
			Dir: "ASC",
			Filter: ozonPostingListFilter{
				Since:  since.UTC().Format(time.RFC3339),
				To:     to.UTC().Format(time.RFC3339),
				Status: "awaiting_packaging",
			},
			Limit:  ozonPostingPageSize,
			Offset: offset,
			With:   ozonPostingListOptions{AnalyticsData: true},
		}

		var resp ozonPostingListResponse
		if err := c.doRequest(ctx, "/v3/posting/fbs/list", req, &resp); err != nil {
			return nil, fmt.Errorf("ozon: list postings: %w", err)
		}
		postings = append(postings, resp.Result.Postings...)
		if !resp.Result.HasNext {
			return postings, nil
		}
		offset += ozonPostingPageSize
	}
}

// ConfirmOrder is not part of the Ozon protocol: polled postings are
// implicitly accepted by shipping them.
func (c *OzonClient) ConfirmOrder(ctx context.Context, externalOrderID string, items []channel.ReconcileItem) error {
	return channel.ErrUnsupportedCall
}

// RejectOrder is not part of the Ozon protocol.
func (c *OzonClient) RejectOrder(ctx context.Context, externalOrderID string, items []channel.ReconcileItem) error {
	return channel.ErrUnsupportedCall
}

// NotifyStatus is not part of the Ozon protocol.
func (c *OzonClient) NotifyStatus(ctx context.Context, externalOrderID string, status channel.StoreStatus) error {
	return channel.ErrUnsupportedCall
}

// ReturnClaim is not part of the Ozon protocol.
func (c *OzonClient) ReturnClaim(ctx context.Context, externalOrderID, reason string) error {
	return channel.ErrUnsupportedCall
}

// ShipOrder reports a posting as shipped, declaring every basket line of the
// package with its marking exemplars. The call retries under the ship
// policy; a non-empty result array is success. Postings already shipped or
// cancelled on the marketplace side are expected rejections and stay quiet.
func (c *OzonClient) ShipOrder(ctx context.Context, externalOrderID string, notice channel.ShipmentNotice) error {
	products := make([]ozonPackageProduct, 0, len(notice.Lines))
	for _, line := range notice.Lines {
		products = append(products, ozonPackageProduct{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Exemplars: line.Exemplars,
		})
	}
	if len(products) == 0 {
		// No recorded basket: fall back to a single opaque package so the
		// posting still leaves the awaiting state.
		products = []ozonPackageProduct{{Quantity: 1, Exemplars: notice.MarkingCodes}}
	}
	req := ozonShipRequest{
		PostingNumber: externalOrderID,
		Packages:      []ozonPackage{{Products: products}},
	}

	attempt := func(ctx context.Context) (*ozonShipResponse, error) {
		var resp ozonShipResponse
		if err := c.doRequest(ctx, "/v2/posting/fbs/ship", req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	}
	classify := func(resp *ozonShipResponse, err error) Classification {
		if err == nil && resp != nil && len(resp.Result) > 0 {
			return ClassSuccess
		}
		if resp != nil {
			if _, expected := ozonExpectedErrorTypes[resp.ErrorType()]; expected {
				return ClassExpectedFailure
			}
		}
		return ClassRetry
	}

	_, _, ok := Execute(ctx, c.retry, channel.ShipRetryPolicy, "ozon-ship", attempt, classify)
	if !ok {
		return fmt.Errorf("ozon: ship %s: %w", externalOrderID, errShipNotConfirmed)
	}
	return nil
}

var errShipNotConfirmed = fmt.Errorf("ship call not confirmed by marketplace")

// PushStocks uploads current stock levels for changed products.
func (c *OzonClient) PushStocks(ctx context.Context, items []OzonStockItem) error {
	for i := range items {
		if items[i].WarehouseID == 0 {
			items[i].WarehouseID = c.config.WarehouseID
		}
	}
	req := ozonStockImportRequest{Stocks: items}

	attempt := func(ctx context.Context) (*ozonImportResponse, error) {
		var resp ozonImportResponse
		if err := c.doRequest(ctx, "/v1/product/import/stocks", req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	}
	_, _, ok := Execute(ctx, c.retry, channel.StockRetryPolicy, "ozon-stocks", attempt, importClassifier)
	if !ok {
		return fmt.Errorf("ozon: stock push not accepted")
	}
	return nil
}

// PushPrices uploads current prices for changed products.
func (c *OzonClient) PushPrices(ctx context.Context, items []OzonPriceItem) error {
	req := ozonPriceImportRequest{Prices: items}

	attempt := func(ctx context.Context) (*ozonImportResponse, error) {
		var resp ozonImportResponse
		if err := c.doRequest(ctx, "/v1/product/import/prices", req, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	}
	_, _, ok := Execute(ctx, c.retry, channel.PriceRetryPolicy, "ozon-prices", attempt, importClassifier)
	if !ok {
		return fmt.Errorf("ozon: price push not accepted")
	}
	return nil
}

func importClassifier(resp *ozonImportResponse, err error) Classification {
	if err == nil && resp != nil && len(resp.Result) > 0 {
		return ClassSuccess
	}
	return ClassRetry
}

// doRequest performs one JSON POST against the seller API
func (c *OzonClient) doRequest(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Id", c.config.ClientID)
	req.Header.Set("Api-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ozon api returned non-200",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	return nil
}
