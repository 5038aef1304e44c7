package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/markethub/backend/internal/domain/channel"
)

type fakeSource struct {
	stocks    map[channel.Code][]StockRecord
	prices    map[channel.Code][]PriceRecord
	stocksErr error
	pricesErr error
	limit     int
}

func (s *fakeSource) Stocks(ctx context.Context, ch channel.Code, limit int) ([]StockRecord, error) {
	s.limit = limit
	if s.stocksErr != nil {
		return nil, s.stocksErr
	}
	return s.stocks[ch], nil
}

func (s *fakeSource) Prices(ctx context.Context, ch channel.Code, limit int) ([]PriceRecord, error) {
	if s.pricesErr != nil {
		return nil, s.pricesErr
	}
	return s.prices[ch], nil
}

type fakeTarget struct {
	code      channel.Code
	stocks    [][]StockRecord
	prices    [][]PriceRecord
	stocksErr error
}

func (t *fakeTarget) Channel() channel.Code { return t.code }

func (t *fakeTarget) PushStocks(ctx context.Context, records []StockRecord) error {
	if t.stocksErr != nil {
		return t.stocksErr
	}
	t.stocks = append(t.stocks, records)
	return nil
}

func (t *fakeTarget) PushPrices(ctx context.Context, records []PriceRecord) error {
	t.prices = append(t.prices, records)
	return nil
}

func TestService_SyncStocks(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes per-channel records to each target", func(t *testing.T) {
		source := &fakeSource{stocks: map[channel.Code][]StockRecord{
			channel.CodeOzon: {{SKU: "SKU-1", Quantity: 5, Available: true}},
		}}
		target := &fakeTarget{code: channel.CodeOzon}
		svc := NewService(source, []Target{target}, 100, zaptest.NewLogger(t))

		svc.SyncStocks(ctx)

		assert.Equal(t, 100, source.limit)
		assert.Len(t, target.stocks, 1)
		assert.Equal(t, "SKU-1", target.stocks[0][0].SKU)
	})

	t.Run("no records means no push", func(t *testing.T) {
		target := &fakeTarget{code: channel.CodeOzon}
		svc := NewService(&fakeSource{}, []Target{target}, 100, zaptest.NewLogger(t))

		svc.SyncStocks(ctx)
		assert.Empty(t, target.stocks)
	})

	t.Run("one failing target does not stall the others", func(t *testing.T) {
		source := &fakeSource{stocks: map[channel.Code][]StockRecord{
			channel.CodeOzon:       {{SKU: "SKU-1"}},
			channel.CodeMegaMarket: {{SKU: "SKU-2"}},
		}}
		broken := &fakeTarget{code: channel.CodeOzon, stocksErr: errors.New("503")}
		healthy := &fakeTarget{code: channel.CodeMegaMarket}
		svc := NewService(source, []Target{broken, healthy}, 100, zaptest.NewLogger(t))

		svc.SyncStocks(ctx)
		assert.Len(t, healthy.stocks, 1)
	})

	t.Run("read failure skips the target", func(t *testing.T) {
		target := &fakeTarget{code: channel.CodeOzon}
		svc := NewService(&fakeSource{stocksErr: errors.New("db down")}, []Target{target}, 100, zaptest.NewLogger(t))

		svc.SyncStocks(ctx)
		assert.Empty(t, target.stocks)
	})
}

func TestService_SyncPrices(t *testing.T) {
	source := &fakeSource{prices: map[channel.Code][]PriceRecord{
		channel.CodeOzon: {{SKU: "SKU-1", Price: decimal.NewFromInt(199)}},
	}}
	target := &fakeTarget{code: channel.CodeOzon}
	svc := NewService(source, []Target{target}, 100, zaptest.NewLogger(t))

	svc.SyncPrices(context.Background())

	assert.Len(t, target.prices, 1)
	assert.True(t, decimal.NewFromInt(199).Equal(target.prices[0][0].Price))
}

func TestNewService_BatchSizeDefault(t *testing.T) {
	source := &fakeSource{stocks: map[channel.Code][]StockRecord{
		channel.CodeOzon: {{SKU: "SKU-1"}},
	}}
	svc := NewService(source, []Target{&fakeTarget{code: channel.CodeOzon}}, 0, zaptest.NewLogger(t))

	svc.SyncStocks(context.Background())
	assert.Equal(t, 100, source.limit)
}
