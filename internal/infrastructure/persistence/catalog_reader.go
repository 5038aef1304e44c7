package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
	"github.com/markethub/backend/internal/infrastructure/persistence/models"
)

// basePriceGroupID is the price group validation reads current prices from.
const basePriceGroupID = 1

// GormCatalogReader implements ingest.CatalogReader using GORM
type GormCatalogReader struct {
	db *gorm.DB
}

// Interface assertion
var _ ingest.CatalogReader = (*GormCatalogReader)(nil)

// NewGormCatalogReader creates a new GormCatalogReader
func NewGormCatalogReader(db *gorm.DB) *GormCatalogReader {
	return &GormCatalogReader{db: db}
}

// ProductByChannelSKU resolves a channel-side SKU to its catalog snapshot.
// A missing mapping or product returns (nil, nil): absence is a validation
// outcome, not an error.
func (r *GormCatalogReader) ProductByChannelSKU(ctx context.Context, ch channel.Code, sku string) (*ingest.Product, error) {
	var mapping models.ProductChannelSKUModel
	err := r.db.WithContext(ctx).
		Where("channel = ? AND sku = ?", ch.String(), sku).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var product models.ProductModel
	err = r.db.WithContext(ctx).
		Where("id = ?", mapping.ProductID).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot := &ingest.Product{
		ID:                product.ID,
		Active:            product.Active,
		Available:         product.Available,
		AvailableQuantity: product.Quantity,
	}
	if product.HasPrice && product.PriceGroupID == basePriceGroupID {
		snapshot.Price = product.Price
		snapshot.HasPrice = true
	}
	return snapshot, nil
}
