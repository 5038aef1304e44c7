package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
	"github.com/markethub/backend/internal/infrastructure/persistence/models"
)

// Errors for the order store
var (
	ErrOrderNotFound   = errors.New("persistence: order not found")
	ErrHandleFinalized = errors.New("persistence: order handle already finalized")
	ErrNoPaymentPair   = errors.New("persistence: order has no payment or shipment recorded")
)

// GormOrderStore implements ingest.OrderStore using GORM. An order handle
// accumulates its sub-objects in memory and writes them in one transaction
// at finalize.
type GormOrderStore struct {
	db *gorm.DB
}

// Interface assertion
var _ ingest.OrderStore = (*GormOrderStore)(nil)

// NewGormOrderStore creates a new GormOrderStore
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// Create opens a new order handle for the buyer
func (s *GormOrderStore) Create(ctx context.Context, buyerID int64, currency, site string) (ingest.OrderHandle, error) {
	if currency == "" || site == "" {
		return nil, fmt.Errorf("persistence: currency and site are required")
	}
	return &gormOrderHandle{
		db: s.db,
		order: models.OrderModel{
			BuyerID:  buyerID,
			Currency: currency,
			Site:     site,
		},
	}, nil
}

// FindByProperty returns ids of orders carrying the property value within
// the window, newest first.
func (s *GormOrderStore) FindByProperty(ctx context.Context, name, value string, from, to time.Time) ([]int64, error) {
	var ids []int64
	err := s.db.WithContext(ctx).
		Model(&models.OrderPropertyModel{}).
		Where("name = ? AND value = ? AND created_at >= ? AND created_at < ?", name, value, from, to).
		Order("order_id DESC").
		Pluck("order_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// PropertyValue reads one property of a committed order
func (s *GormOrderStore) PropertyValue(ctx context.Context, orderID int64, name string) (string, error) {
	var prop models.OrderPropertyModel
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND name = ?", orderID, name).
		First(&prop).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return prop.Value, nil
}

// SetOrderProperty writes one property of a committed order, replacing any
// previous value.
func (s *GormOrderStore) SetOrderProperty(ctx context.Context, orderID int64, name, value string) error {
	var existing models.OrderPropertyModel
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND name = ?", orderID, name).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.WithContext(ctx).Create(&models.OrderPropertyModel{
			OrderID: orderID,
			Name:    name,
			Value:   value,
		}).Error
	}
	if err != nil {
		return err
	}
	existing.Value = value
	return s.db.WithContext(ctx).Save(&existing).Error
}

// Cancel cancels a committed order with a reason
func (s *GormOrderStore) Cancel(ctx context.Context, orderID int64, reason string) error {
	result := s.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"cancelled":     true,
			"cancel_reason": reason,
			"status":        "CA",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// PaymentAndDelivery returns the payment and delivery method ids recorded
// on a committed order.
func (s *GormOrderStore) PaymentAndDelivery(ctx context.Context, orderID int64) (int64, int64, error) {
	var payment models.PaymentModel
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrNoPaymentPair
		}
		return 0, 0, err
	}
	var shipment models.ShipmentModel
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&shipment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, ErrNoPaymentPair
		}
		return 0, 0, err
	}
	return payment.PaymentMethodID, shipment.DeliveryMethodID, nil
}

// BasketLines returns the committed basket of an order in insertion order,
// for the outbound ship call.
func (s *GormOrderStore) BasketLines(ctx context.Context, orderID int64) ([]channel.ShipmentLine, error) {
	var items []models.BasketItemModel
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	lines := make([]channel.ShipmentLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, channel.ShipmentLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return lines, nil
}

// UpdateStatus sets the order status, for the status-event flow
func (s *GormOrderStore) UpdateStatus(ctx context.Context, orderID int64, status string) error {
	result := s.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ?", orderID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Order handle
// ---------------------------------------------------------------------------

// gormOrderHandle accumulates an order under construction. Nothing touches
// the database until Finalize.
type gormOrderHandle struct {
	db        *gorm.DB
	order     models.OrderModel
	finalized bool
}

// Interface assertion
var _ ingest.OrderHandle = (*gormOrderHandle)(nil)

func (h *gormOrderHandle) AttachBasketLine(ctx context.Context, line ingest.BasketLine) error {
	if h.finalized {
		return ErrHandleFinalized
	}
	h.order.Items = append(h.order.Items, models.BasketItemModel{
		ProductID:       line.ProductID,
		Quantity:        line.Quantity,
		UnitPrice:       line.UnitPrice,
		Currency:        line.Currency,
		CustomPrice:     true,
		RequiresMarking: line.RequiresMarking,
	})
	return nil
}

func (h *gormOrderHandle) AttachDelivery(ctx context.Context, delivery ingest.DeliveryLine) error {
	if h.finalized {
		return ErrHandleFinalized
	}
	h.order.Shipments = append(h.order.Shipments, models.ShipmentModel{
		DeliveryMethodID: delivery.MethodID,
		Cost:             delivery.Cost,
		AllowDelivery:    delivery.AllowDelivery,
		CustomPrice:      true,
	})
	return nil
}

func (h *gormOrderHandle) AttachPayment(ctx context.Context, payment ingest.PaymentLine) error {
	if h.finalized {
		return ErrHandleFinalized
	}
	h.order.Payments = append(h.order.Payments, models.PaymentModel{
		PaymentMethodID: payment.MethodID,
		Sum:             payment.Sum,
		Currency:        payment.Currency,
		Paid:            payment.Paid,
		PayerID:         payment.PayerID,
	})
	return nil
}

func (h *gormOrderHandle) SetProperty(ctx context.Context, key, value string) error {
	if h.finalized {
		return ErrHandleFinalized
	}
	h.order.Properties = append(h.order.Properties, models.OrderPropertyModel{
		Name:  key,
		Value: value,
	})
	return nil
}

// Finalize writes the order and all sub-objects in one transaction.
func (h *gormOrderHandle) Finalize(ctx context.Context) (int64, []string, []string, error) {
	if h.finalized {
		return 0, nil, nil, ErrHandleFinalized
	}
	h.finalized = true

	var storeErrors []string
	if len(h.order.Items) == 0 {
		storeErrors = append(storeErrors, "order has no basket items")
	}
	if len(h.order.Shipments) == 0 {
		storeErrors = append(storeErrors, "order has no delivery")
	}
	if len(h.order.Payments) == 0 {
		storeErrors = append(storeErrors, "order has no payment")
	}
	if len(storeErrors) > 0 {
		return 0, storeErrors, nil, nil
	}

	if err := h.db.WithContext(ctx).Create(&h.order).Error; err != nil {
		return 0, []string{err.Error()}, nil, nil
	}
	return h.order.ID, nil, nil, nil
}
