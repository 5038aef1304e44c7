package persistence

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
	"github.com/markethub/backend/internal/infrastructure/persistence/models"
)

// GormBuyerRepository implements ingest.BuyerResolver using GORM
type GormBuyerRepository struct {
	db *gorm.DB
}

// Interface assertion
var _ ingest.BuyerResolver = (*GormBuyerRepository)(nil)

// NewGormBuyerRepository creates a new GormBuyerRepository
func NewGormBuyerRepository(db *gorm.DB) *GormBuyerRepository {
	return &GormBuyerRepository{db: db}
}

// ResolveOrCreate returns the buyer id for a synthesized login, creating
// the record when absent.
func (r *GormBuyerRepository) ResolveOrCreate(ctx context.Context, login, email string, info channel.BuyerInfo) (int64, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return 0, errors.New("persistence: buyer login is empty")
	}

	var buyer models.BuyerModel
	err := r.db.WithContext(ctx).Where("login = ?", login).First(&buyer).Error
	if err == nil {
		return buyer.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	buyer = models.BuyerModel{
		Login:      login,
		Email:      strings.ToLower(email),
		Name:       info.Name,
		Phone:      info.Phone,
		PostalCode: info.PostalCode,
	}
	if err := r.db.WithContext(ctx).Create(&buyer).Error; err != nil {
		return 0, err
	}
	return buyer.ID, nil
}
