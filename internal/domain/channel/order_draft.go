package channel

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Errors for draft validation
var (
	ErrEmptyExternalOrderID = errors.New("channel: external order id is empty")
	ErrEmptyLineItems       = errors.New("channel: draft has no line items")
)

// OrderDraft is the canonical, channel-agnostic order representation
// produced by a channel adapter. A draft is owned by the adapter until it is
// handed to the validation pipeline; all hand-offs are by value.
type OrderDraft struct {
	// Channel identifies the originating marketplace
	Channel Code
	// ExternalOrderID is the marketplace's own order identifier,
	// unique per channel
	ExternalOrderID string
	// LineItems is the ordered sequence of product lines
	LineItems []LineItem
	// Buyer carries the (possibly synthesized) buyer contact data
	Buyer BuyerInfo
	// ShippingAddress is the free-form destination
	ShippingAddress ShippingAddress
	// RequestedShipDate is the marketplace-requested ship date, if any
	RequestedShipDate *time.Time
	// DeclaredTotal is the order total as declared by the marketplace
	DeclaredTotal decimal.Decimal
	// DeclaredDeliveryCost is the delivery cost declared by the
	// marketplace, used by channels that price delivery themselves
	DeclaredDeliveryCost decimal.Decimal
	// RequiredMarkingRefs lists channel-side SKU identifiers whose units
	// require regulatory marking before shipment
	RequiredMarkingRefs []string
}

// LineItem is one product line of a draft. UnitPrice and Quantity are parsed
// defensively by adapters: a missing or non-numeric value becomes zero and is
// left for the validation pipeline to reject.
type LineItem struct {
	// ChannelSKU is the marketplace-side product identifier
	ChannelSKU string
	// ItemIndex is the marketplace-side position of the line inside the
	// order, preserved for confirm/reject and packing calls
	ItemIndex int
	// InternalProductID is the catalog id, resolved by the validation
	// pipeline, zero until then
	InternalProductID int64
	// UnitPrice is the declared per-unit price
	UnitPrice decimal.Decimal
	// Quantity is the requested amount
	Quantity int
}

// LineTotal recomputes the line total from unit price and quantity. Declared
// totals from the payload are never trusted.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Ref returns the stable reference used for the validation partition and the
// outbound confirm/reject calls.
func (li LineItem) Ref() string {
	return li.ChannelSKU
}

// BuyerInfo carries buyer contact data. Email may be synthesized by the
// commit sequence when the channel does not supply one.
type BuyerInfo struct {
	Name       string
	Phone      string
	Email      string
	PostalCode string
}

// ShippingAddress is the free-form destination of a draft.
type ShippingAddress struct {
	City       string
	Region     string
	PostalCode string
	KladrCode  string
	Address    string
}

// ItemsTotal sums the recomputed line totals of all line items.
func (d *OrderDraft) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range d.LineItems {
		total = total.Add(li.LineTotal())
	}
	return total
}

// Validate checks the draft invariants. A draft failing validation is
// discarded before the validation pipeline runs.
func (d *OrderDraft) Validate() error {
	if d.ExternalOrderID == "" {
		return ErrEmptyExternalOrderID
	}
	if len(d.LineItems) == 0 {
		return ErrEmptyLineItems
	}
	return nil
}

// RequiresMarking reports whether the given channel SKU is in the draft's
// required-marking set.
func (d *OrderDraft) RequiresMarking(channelSKU string) bool {
	for _, ref := range d.RequiredMarkingRefs {
		if ref == channelSKU {
			return true
		}
	}
	return false
}
