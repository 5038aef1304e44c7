package channel

import "errors"

// Code identifies one external marketplace channel.
type Code string

const (
	// CodeOzon is the polling REST channel: orders are fetched in batches
	// by a cron-driven poller.
	CodeOzon Code = "OZON"
	// CodeMegaMarket is the webhook REST channel: the marketplace pushes
	// orders as JSON webhook calls.
	CodeMegaMarket Code = "MEGAMARKET"
	// CodeMultibonus is the XML push channel: the marketplace pushes
	// orders as XML documents over mutual TLS.
	CodeMultibonus Code = "MULTIBONUS"
)

// Kind describes how orders arrive from a channel.
type Kind string

const (
	KindPolling Kind = "POLLING"
	KindWebhook Kind = "WEBHOOK"
	KindXMLPush Kind = "XML_PUSH"
)

// Errors for channel identification
var (
	ErrUnknownChannel = errors.New("channel: unknown channel code")
)

// IsValid checks if the channel code is a known channel
func (c Code) IsValid() bool {
	switch c {
	case CodeOzon, CodeMegaMarket, CodeMultibonus:
		return true
	}
	return false
}

// String returns the string representation of the channel code
func (c Code) String() string {
	return string(c)
}

// DisplayName returns the human-readable name of the channel
func (c Code) DisplayName() string {
	switch c {
	case CodeOzon:
		return "Ozon"
	case CodeMegaMarket:
		return "MegaMarket"
	case CodeMultibonus:
		return "Multibonus"
	default:
		return string(c)
	}
}

// Kind returns the ingestion kind of the channel
func (c Code) Kind() Kind {
	switch c {
	case CodeOzon:
		return KindPolling
	case CodeMegaMarket:
		return KindWebhook
	case CodeMultibonus:
		return KindXMLPush
	default:
		return ""
	}
}

// Identity carries the store-level identifiers fixed per channel: the
// delivery and payment method ids every committed order gets, and the order
// property under which the external order id is stored. The delivery/payment
// pair doubles as the affiliation check for status-transition events.
type Identity struct {
	DeliveryID      int64
	PaymentID       int64
	OrderIDProperty string
}

// identities holds the fixed per-channel store identifiers.
var identities = map[Code]Identity{
	CodeOzon:       {DeliveryID: 95, PaymentID: 33, OrderIDProperty: "OZON_ORDER_ID"},
	CodeMegaMarket: {DeliveryID: 101, PaymentID: 35, OrderIDProperty: "MEGAMARKET_ORDER_ID"},
	CodeMultibonus: {DeliveryID: 91, PaymentID: 31, OrderIDProperty: "MULTIBONUS_ORDER_ID"},
}

// IdentityOf returns the fixed store identifiers for a channel.
func IdentityOf(c Code) (Identity, error) {
	id, ok := identities[c]
	if !ok {
		return Identity{}, ErrUnknownChannel
	}
	return id, nil
}

// Order property names shared by all channels.
const (
	// PropertyMarkingProducts stores the comma-joined internal ids of
	// products that require regulatory marking before shipment.
	PropertyMarkingProducts = "MARKING_PRODUCTS"
	// PropertyMarkingCodes stores the supplied marking codes, or the
	// sent marker once the deferred ship call has been issued.
	PropertyMarkingCodes = "MARKING_CODES"
	// PropertyBoxCodes stores the JSON-encoded box codes assigned during
	// packing, consumed by the later shipping call.
	PropertyBoxCodes = "BOX_CODES"
	// PropertyItemIndexes stores the JSON-encoded map of line item
	// indexes to internal product ids, needed by the packing request.
	PropertyItemIndexes = "ITEM_INDEXES"
)
