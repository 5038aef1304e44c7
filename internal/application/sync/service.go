// Package sync pushes catalog state out to the marketplaces: stock levels
// and prices for every product mapped to a channel SKU.
package sync

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
)

// StockRecord is one product's stock state bound to its channel SKU.
type StockRecord struct {
	SKU       string
	Quantity  int
	Available bool
}

// PriceRecord is one product's current price bound to its channel SKU.
type PriceRecord struct {
	SKU   string
	Price decimal.Decimal
}

// CatalogSource reads the catalog state to push for one channel.
type CatalogSource interface {
	Stocks(ctx context.Context, ch channel.Code, limit int) ([]StockRecord, error)
	Prices(ctx context.Context, ch channel.Code, limit int) ([]PriceRecord, error)
}

// Target pushes catalog state to one marketplace.
type Target interface {
	Channel() channel.Code
	PushStocks(ctx context.Context, records []StockRecord) error
	PushPrices(ctx context.Context, records []PriceRecord) error
}

// Service runs the periodic stock and price pushes over every registered
// target. A failing target is logged and skipped; one marketplace outage
// must not stall the others.
type Service struct {
	source    CatalogSource
	targets   []Target
	batchSize int
	logger    *zap.Logger
}

// NewService creates a sync service over the catalog source
func NewService(source CatalogSource, targets []Target, batchSize int, logger *zap.Logger) *Service {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Service{source: source, targets: targets, batchSize: batchSize, logger: logger}
}

// SyncStocks pushes current stock levels to every target.
func (s *Service) SyncStocks(ctx context.Context) {
	for _, target := range s.targets {
		ch := target.Channel()
		records, err := s.source.Stocks(ctx, ch, s.batchSize)
		if err != nil {
			s.logger.Error("stock read failed", zap.String("channel", ch.String()), zap.Error(err))
			continue
		}
		if len(records) == 0 {
			continue
		}
		if err := target.PushStocks(ctx, records); err != nil {
			s.logger.Error("stock push failed", zap.String("channel", ch.String()), zap.Error(err))
			continue
		}
		s.logger.Info("stocks pushed",
			zap.String("channel", ch.String()),
			zap.Int("records", len(records)),
		)
	}
}

// SyncPrices pushes current prices to every target.
func (s *Service) SyncPrices(ctx context.Context) {
	for _, target := range s.targets {
		ch := target.Channel()
		records, err := s.source.Prices(ctx, ch, s.batchSize)
		if err != nil {
			s.logger.Error("price read failed", zap.String("channel", ch.String()), zap.Error(err))
			continue
		}
		if len(records) == 0 {
			continue
		}
		if err := target.PushPrices(ctx, records); err != nil {
			s.logger.Error("price push failed", zap.String("channel", ch.String()), zap.Error(err))
			continue
		}
		s.logger.Info("prices pushed",
			zap.String("channel", ch.String()),
			zap.Int("records", len(records)),
		)
	}
}
