package persistence

import (
	"context"

	"gorm.io/gorm"

	appsync "github.com/markethub/backend/internal/application/sync"
	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/infrastructure/persistence/models"
)

// GormCatalogSyncSource reads the stock and price state of every product
// mapped to a channel SKU, for the periodic marketplace pushes.
type GormCatalogSyncSource struct {
	db *gorm.DB
}

// Interface assertion
var _ appsync.CatalogSource = (*GormCatalogSyncSource)(nil)

// NewGormCatalogSyncSource creates a sync source over the catalog tables
func NewGormCatalogSyncSource(db *gorm.DB) *GormCatalogSyncSource {
	return &GormCatalogSyncSource{db: db}
}

type syncRow struct {
	SKU       string
	Quantity  int
	Available bool
}

// Stocks returns the stock records of active channel-mapped products.
func (s *GormCatalogSyncSource) Stocks(ctx context.Context, ch channel.Code, limit int) ([]appsync.StockRecord, error) {
	var rows []syncRow
	err := s.db.WithContext(ctx).
		Model(&models.ProductChannelSKUModel{}).
		Select("product_channel_skus.sku, products.quantity, products.available, products.active").
		Joins("JOIN products ON products.id = product_channel_skus.product_id").
		Where("product_channel_skus.channel = ? AND products.active = ?", ch.String(), true).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]appsync.StockRecord, 0, len(rows))
	for _, row := range rows {
		quantity := row.Quantity
		if !row.Available {
			quantity = 0
		}
		records = append(records, appsync.StockRecord{
			SKU:       row.SKU,
			Quantity:  quantity,
			Available: row.Available,
		})
	}
	return records, nil
}

// Prices returns the price records of active channel-mapped products that
// carry a base-group price.
func (s *GormCatalogSyncSource) Prices(ctx context.Context, ch channel.Code, limit int) ([]appsync.PriceRecord, error) {
	var products []models.ProductModel
	err := s.db.WithContext(ctx).
		Select("products.*").
		Joins("JOIN product_channel_skus ON product_channel_skus.product_id = products.id").
		Where("product_channel_skus.channel = ? AND products.active = ? AND products.has_price = ? AND products.price_group_id = ?",
			ch.String(), true, true, basePriceGroupID).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(products))
	byID := make(map[int64]models.ProductModel, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var mappings []models.ProductChannelSKUModel
	err = s.db.WithContext(ctx).
		Where("channel = ? AND product_id IN ?", ch.String(), ids).
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}

	records := make([]appsync.PriceRecord, 0, len(mappings))
	for _, m := range mappings {
		product, ok := byID[m.ProductID]
		if !ok {
			continue
		}
		records = append(records, appsync.PriceRecord{
			SKU:   m.SKU,
			Price: product.Price,
		})
	}
	return records, nil
}
