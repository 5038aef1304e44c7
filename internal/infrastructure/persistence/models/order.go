package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderModel is the GORM model for committed orders
type OrderModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	BuyerID   int64  `gorm:"index;not null"`
	Currency  string `gorm:"size:3;not null"`
	Site      string `gorm:"size:8;not null"`
	Status    string `gorm:"size:8;index;default:'AS'"`
	Cancelled bool   `gorm:"default:false"`
	// CancelReason records why a cancelled order was cancelled
	CancelReason string    `gorm:"size:512"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time

	Items      []BasketItemModel    `gorm:"foreignKey:OrderID"`
	Properties []OrderPropertyModel `gorm:"foreignKey:OrderID"`
	Shipments  []ShipmentModel      `gorm:"foreignKey:OrderID"`
	Payments   []PaymentModel       `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for OrderModel
func (OrderModel) TableName() string {
	return "orders"
}

// BasketItemModel is the GORM model for basket lines
type BasketItemModel struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"index;not null"`
	ProductID int64           `gorm:"index;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Currency  string          `gorm:"size:3;not null"`
	// CustomPrice marks the price as channel-declared, exempt from
	// catalog repricing
	CustomPrice     bool `gorm:"default:true"`
	RequiresMarking bool `gorm:"default:false"`
	CreatedAt       time.Time
}

// TableName returns the table name for BasketItemModel
func (BasketItemModel) TableName() string {
	return "basket_items"
}

// OrderPropertyModel is the GORM model for free-text order annotations
type OrderPropertyModel struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	OrderID int64  `gorm:"index:idx_order_property,priority:1;not null"`
	Name    string `gorm:"size:64;index:idx_order_property,priority:2;index:idx_property_value,priority:1;not null"`
	Value   string `gorm:"size:2048;index:idx_property_value,priority:2"`
	// CreatedAt bounds the idempotency lookup window
	CreatedAt time.Time `gorm:"index"`
}

// TableName returns the table name for OrderPropertyModel
func (OrderPropertyModel) TableName() string {
	return "order_properties"
}

// ShipmentModel is the GORM model for the single delivery line of an order
type ShipmentModel struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"`
	OrderID          int64           `gorm:"index;not null"`
	DeliveryMethodID int64           `gorm:"index;not null"`
	Cost             decimal.Decimal `gorm:"type:decimal(15,2)"`
	AllowDelivery    bool            `gorm:"default:false"`
	CustomPrice      bool            `gorm:"default:true"`
	CreatedAt        time.Time
}

// TableName returns the table name for ShipmentModel
func (ShipmentModel) TableName() string {
	return "order_shipments"
}

// PaymentModel is the GORM model for the single payment line of an order
type PaymentModel struct {
	ID              int64           `gorm:"primaryKey;autoIncrement"`
	OrderID         int64           `gorm:"index;not null"`
	PaymentMethodID int64           `gorm:"index;not null"`
	Sum             decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Currency        string          `gorm:"size:3;not null"`
	Paid            bool            `gorm:"default:false"`
	PayerID         int64           `gorm:"index"`
	CreatedAt       time.Time
}

// TableName returns the table name for PaymentModel
func (PaymentModel) TableName() string {
	return "order_payments"
}

// BuyerModel is the GORM model for buyer records
type BuyerModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Login      string `gorm:"size:128;uniqueIndex;not null"`
	Email      string `gorm:"size:255;not null"`
	Name       string `gorm:"size:255"`
	Phone      string `gorm:"size:32"`
	PostalCode string `gorm:"size:16"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for BuyerModel
func (BuyerModel) TableName() string {
	return "buyers"
}

// ProductModel is the GORM model for the catalog snapshot the validation
// pipeline reads. Channel SKU mappings hang off ProductChannelSKUModel.
type ProductModel struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	Active bool  `gorm:"default:true;index"`
	// Available mirrors the warehouse availability flag
	Available bool            `gorm:"default:false"`
	Quantity  int             `gorm:"default:0"`
	Price     decimal.Decimal `gorm:"type:decimal(15,2)"`
	// PriceGroupID identifies the price group the price belongs to;
	// validation reads base group 1
	PriceGroupID int64  `gorm:"default:1;index"`
	HasPrice     bool   `gorm:"default:false"`
	Name         string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for ProductModel
func (ProductModel) TableName() string {
	return "products"
}

// ProductChannelSKUModel maps channel-side SKUs to catalog products
type ProductChannelSKUModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	ProductID int64  `gorm:"index;not null"`
	Channel   string `gorm:"size:16;uniqueIndex:idx_channel_sku,priority:1;not null"`
	SKU       string `gorm:"size:128;uniqueIndex:idx_channel_sku,priority:2;not null"`
	CreatedAt time.Time
}

// TableName returns the table name for ProductChannelSKUModel
func (ProductChannelSKUModel) TableName() string {
	return "product_channel_skus"
}
