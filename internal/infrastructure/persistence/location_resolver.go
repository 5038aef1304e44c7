package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
	"github.com/markethub/backend/internal/infrastructure/persistence/models"
)

// GormLocationResolver maps a shipping address to a store location code.
// Lookup order: KLADR code, postal code, city name. The first hit wins.
type GormLocationResolver struct {
	db *gorm.DB
}

// Interface assertion
var _ ingest.LocationResolver = (*GormLocationResolver)(nil)

// NewGormLocationResolver creates a resolver over the locations table
func NewGormLocationResolver(db *gorm.DB) *GormLocationResolver {
	return &GormLocationResolver{db: db}
}

// Resolve returns the location code of the address, or an error when no
// lookup key matches.
func (r *GormLocationResolver) Resolve(ctx context.Context, addr channel.ShippingAddress) (string, error) {
	lookups := []struct {
		column string
		value  string
	}{
		{"kladr_code", addr.KladrCode},
		{"postal_code", addr.PostalCode},
		{"city", strings.TrimSpace(addr.City)},
	}

	for _, l := range lookups {
		if l.value == "" {
			continue
		}
		var loc models.LocationModel
		err := r.db.WithContext(ctx).
			Where(fmt.Sprintf("%s = ?", l.column), l.value).
			First(&loc).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		return loc.Code, nil
	}

	return "", fmt.Errorf("no location for city %q postal %q", addr.City, addr.PostalCode)
}
