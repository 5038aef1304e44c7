package marketplace

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	appingest "github.com/markethub/backend/internal/application/ingest"
	appreconcile "github.com/markethub/backend/internal/application/reconcile"
	appsync "github.com/markethub/backend/internal/application/sync"
	"github.com/markethub/backend/internal/domain/channel"
)

// OzonDraftSource adapts the Ozon client and adapter to the poller's draft
// source port.
type OzonDraftSource struct {
	client  *OzonClient
	adapter *OzonAdapter
	logger  *zap.Logger
}

// Interface assertion
var _ appingest.DraftSource = (*OzonDraftSource)(nil)

// NewOzonDraftSource creates a draft source over the Ozon client
func NewOzonDraftSource(client *OzonClient, adapter *OzonAdapter, logger *zap.Logger) *OzonDraftSource {
	return &OzonDraftSource{client: client, adapter: adapter, logger: logger}
}

// Channel returns the channel code this source serves
func (s *OzonDraftSource) Channel() channel.Code {
	return channel.CodeOzon
}

// FetchDrafts polls the posting list and converts each posting to a draft.
// Malformed postings are logged and skipped; one bad record must not stall
// the batch.
func (s *OzonDraftSource) FetchDrafts(ctx context.Context, since, to time.Time) ([]*channel.OrderDraft, error) {
	postings, err := s.client.ListPostings(ctx, since, to)
	if err != nil {
		return nil, err
	}

	drafts := make([]*channel.OrderDraft, 0, len(postings))
	for i := range postings {
		draft, err := s.adapter.DraftFromPosting(&postings[i])
		if err != nil {
			if errors.Is(err, channel.ErrMalformedPayload) {
				s.logger.Warn("skipping malformed posting",
					zap.String("posting_number", postings[i].PostingNumber),
					zap.Error(err),
				)
				continue
			}
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// MegaMarketPackingGateway adapts the MegaMarket client to the packing
// service's gateway port.
type MegaMarketPackingGateway struct {
	client *MegaMarketClient
}

// Interface assertion
var _ appreconcile.PackingGateway = (*MegaMarketPackingGateway)(nil)

// NewMegaMarketPackingGateway creates a packing gateway over the client
func NewMegaMarketPackingGateway(client *MegaMarketClient) *MegaMarketPackingGateway {
	return &MegaMarketPackingGateway{client: client}
}

// Packing reports the box assignment of a shipment
func (g *MegaMarketPackingGateway) Packing(ctx context.Context, shipmentID string, items []appreconcile.PackingItem) error {
	return g.client.Packing(ctx, shipmentID, wirePackingItems(items))
}

// StickerSheet fetches the printable sticker document for the packed boxes
func (g *MegaMarketPackingGateway) StickerSheet(ctx context.Context, shipmentID string, boxCodes []string, items []appreconcile.PackingItem) (string, error) {
	return g.client.StickerPrint(ctx, shipmentID, boxCodes, wirePackingItems(items))
}

// OzonSyncTarget adapts the Ozon client to the catalog sync target port.
// Ozon is the only channel with a stock/price upload API.
type OzonSyncTarget struct {
	client      *OzonClient
	warehouseID int64
}

// Interface assertion
var _ appsync.Target = (*OzonSyncTarget)(nil)

// NewOzonSyncTarget creates a sync target over the Ozon client
func NewOzonSyncTarget(client *OzonClient, warehouseID int64) *OzonSyncTarget {
	return &OzonSyncTarget{client: client, warehouseID: warehouseID}
}

// Channel returns the channel code this target serves
func (t *OzonSyncTarget) Channel() channel.Code {
	return channel.CodeOzon
}

// PushStocks uploads stock levels for the mapped products
func (t *OzonSyncTarget) PushStocks(ctx context.Context, records []appsync.StockRecord) error {
	items := make([]OzonStockItem, 0, len(records))
	for _, r := range records {
		items = append(items, OzonStockItem{
			OfferID:     r.SKU,
			Stock:       r.Quantity,
			WarehouseID: t.warehouseID,
		})
	}
	return t.client.PushStocks(ctx, items)
}

// PushPrices uploads current prices for the mapped products
func (t *OzonSyncTarget) PushPrices(ctx context.Context, records []appsync.PriceRecord) error {
	items := make([]OzonPriceItem, 0, len(records))
	for _, r := range records {
		items = append(items, OzonPriceItem{
			OfferID: r.SKU,
			Price:   r.Price.StringFixed(2),
		})
	}
	return t.client.PushPrices(ctx, items)
}

func wirePackingItems(items []appreconcile.PackingItem) []MegaMarketPackingItem {
	wire := make([]MegaMarketPackingItem, 0, len(items))
	for _, it := range items {
		wire = append(wire, MegaMarketPackingItem{
			ItemIndex: it.ItemIndex,
			Quantity:  1,
			Boxes:     []MegaMarketBox{{BoxIndex: it.CargoIndex, BoxCode: it.BoxCode}},
		})
	}
	return wire
}
