package ingest

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/markethub/backend/internal/domain/channel"
)

// Severity of a notification event.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notifier emits operator-facing events: a structured log line always, an
// email for error (and some flagged info) events. Implementations must never
// fail the caller.
type Notifier interface {
	Notify(code string, severity Severity, detail string)
}

// Product is the catalog snapshot the validation pipeline checks against.
type Product struct {
	ID                int64
	Active            bool
	Available         bool
	AvailableQuantity int
	// Price is the current catalog price in the base price group,
	// zero when HasPrice is false
	Price    decimal.Decimal
	HasPrice bool
}

// CatalogReader resolves channel SKUs to catalog products.
type CatalogReader interface {
	// ProductByChannelSKU resolves a channel-side SKU. A missing product
	// returns (nil, nil): absence is a validation outcome, not an error.
	ProductByChannelSKU(ctx context.Context, ch channel.Code, sku string) (*Product, error)
}

// OrderHandle is a not-yet-finalized order under construction in the store.
type OrderHandle interface {
	AttachBasketLine(ctx context.Context, line BasketLine) error
	AttachDelivery(ctx context.Context, delivery DeliveryLine) error
	AttachPayment(ctx context.Context, payment PaymentLine) error
	// SetProperty attaches a free-text annotation. Best effort: callers
	// swallow failures.
	SetProperty(ctx context.Context, key, value string) error
	// Finalize persists the order and returns its id together with any
	// store-reported errors and warnings
	Finalize(ctx context.Context) (int64, []string, []string, error)
}

// BasketLine is one persisted basket entry, custom-priced.
type BasketLine struct {
	ProductID       int64
	Quantity        int
	UnitPrice       decimal.Decimal
	Currency        string
	RequiresMarking bool
}

// DeliveryLine is the single delivery attached to a committed order.
type DeliveryLine struct {
	MethodID int64
	Cost     decimal.Decimal
	// AllowDelivery pre-marks the shipment as cleared for delivery
	AllowDelivery bool
}

// PaymentLine is the single payment attached to a committed order.
type PaymentLine struct {
	MethodID int64
	Sum      decimal.Decimal
	Currency string
	// Paid pre-marks the payment as settled; marketplace orders arrive
	// already paid on the marketplace side
	Paid    bool
	PayerID int64
}

// OrderStore is the persistence collaborator of the commit sequence and the
// idempotency guard. The engine consumes this contract only; the store's
// schema is its own concern.
type OrderStore interface {
	Create(ctx context.Context, buyerID int64, currency, site string) (OrderHandle, error)
	// FindByProperty returns ids of orders carrying the given property
	// value, bounded to the [from, to) window
	FindByProperty(ctx context.Context, name, value string, from, to time.Time) ([]int64, error)
	// PropertyValue reads one property of a committed order
	PropertyValue(ctx context.Context, orderID int64, name string) (string, error)
	// SetOrderProperty writes one property of a committed order
	SetOrderProperty(ctx context.Context, orderID int64, name, value string) error
	// Cancel cancels a committed order with a reason
	Cancel(ctx context.Context, orderID int64, reason string) error
	// PaymentAndDelivery returns the payment and delivery method ids
	// recorded on a committed order, for the affiliation check
	PaymentAndDelivery(ctx context.Context, orderID int64) (paymentID, deliveryID int64, err error)
}

// BuyerResolver resolves or creates the buyer record for a draft.
type BuyerResolver interface {
	// ResolveOrCreate returns the buyer id for the synthesized login,
	// creating the record when absent
	ResolveOrCreate(ctx context.Context, login, email string, info channel.BuyerInfo) (int64, error)
}

// CouponSuppressor is the scoped suppression of promotional coupon
// consumption around a commit. Acquire at commit start, release exactly once
// on every exit path.
type CouponSuppressor interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// LocationResolver normalizes a shipping address to a store location code.
// Resolution failures are reported but never fail a commit.
type LocationResolver interface {
	Resolve(ctx context.Context, addr channel.ShippingAddress) (string, error)
}

// IdempotencyCache is an optional fast-path cache in front of the store
// lookup. Errors are ignored by the guard (fail open).
type IdempotencyCache interface {
	Seen(ctx context.Context, ch channel.Code, externalOrderID string) (bool, error)
	Remember(ctx context.Context, ch channel.Code, externalOrderID string) error
}
