package marketplace

import "encoding/json"

// MegaMarket merchant API wire types. Every call wraps its payload in a
// data/meta envelope; the response success flag is an integer.

// megaMarketEnvelope is the shared request wrapper
type megaMarketEnvelope struct {
	Data interface{}            `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

// MegaMarketResponse is the shared response wrapper; success == 1 is the
// success predicate of every outbound call.
type MegaMarketResponse struct {
	Success int             `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Meta    struct{}        `json:"meta"`
}

// megaMarketOrderConfirmData is the payload of order/confirm and order/reject
type megaMarketOrderConfirmData struct {
	Token     string                    `json:"token"`
	Shipments []megaMarketShipmentItems `json:"shipments"`
}

type megaMarketShipmentItems struct {
	ShipmentID string               `json:"shipmentId"`
	OrderCode  string               `json:"orderCode,omitempty"`
	Items      []MegaMarketItemSpec `json:"items"`
}

// MegaMarketItemSpec names one line item of a confirm/reject call
type MegaMarketItemSpec struct {
	ItemIndex int    `json:"itemIndex"`
	OfferID   string `json:"offerId"`
	Quantity  int    `json:"quantity,omitempty"`
}

// megaMarketPackingData is the payload of order/packing
type megaMarketPackingData struct {
	Token      string                  `json:"token"`
	Shipments  []megaMarketPackingShip `json:"shipments"`
	OrderIndex int                     `json:"orderIndex,omitempty"`
}

type megaMarketPackingShip struct {
	ShipmentID string                  `json:"shipmentId"`
	Items      []MegaMarketPackingItem `json:"items"`
}

// MegaMarketPackingItem binds one line item to its box
type MegaMarketPackingItem struct {
	ItemIndex   int             `json:"itemIndex"`
	Quantity    int             `json:"quantity,omitempty"`
	Boxes       []MegaMarketBox `json:"boxes"`
	DigitalMark string          `json:"digitalMark"`
}

// MegaMarketBox is one coded cargo place
type MegaMarketBox struct {
	BoxIndex int    `json:"boxIndex"`
	BoxCode  string `json:"boxCode"`
}

// megaMarketShippingData is the payload of order/shipping
type megaMarketShippingData struct {
	Token      string          `json:"token"`
	ShipmentID string          `json:"shipmentId"`
	Boxes      []MegaMarketBox `json:"boxes"`
}

// megaMarketStickerData is the payload of the sticker print call; the
// response data is an HTML sheet forwarded to the warehouse.
type megaMarketStickerData struct {
	Token      string                  `json:"token"`
	ShipmentID string                  `json:"shipmentId"`
	BoxCodes   []string                `json:"boxCodes"`
	Items      []MegaMarketPackingItem `json:"items"`
}

// MegaMarketWebhook is the inbound webhook body of order/new, order/cancel
// and the fulfillment packing request.
type MegaMarketWebhook struct {
	Data MegaMarketWebhookData  `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

type MegaMarketWebhookData struct {
	Token     string               `json:"token"`
	Shipments []MegaMarketShipment `json:"shipments"`
}

// MegaMarketShipment is one inbound order-equivalent shipment
type MegaMarketShipment struct {
	ShipmentID       string               `json:"shipmentId"`
	OrderCode        string               `json:"orderCode"`
	ShipmentDateFrom string               `json:"shipmentDateFrom"`
	ShipmentDateTo   string               `json:"shipmentDateTo"`
	DeliveryID       string               `json:"deliveryId"`
	DepositedAmount  json.Number          `json:"depositedAmount"`
	Items            []MegaMarketWireItem `json:"items"`
	Customer         MegaMarketCustomer   `json:"customer"`
	Label            MegaMarketLabel      `json:"label"`
}

// MegaMarketWireItem is one inbound line item; price and quantity are
// parsed defensively downstream.
type MegaMarketWireItem struct {
	ItemIndex   json.Number `json:"itemIndex"`
	GoodsID     string      `json:"goodsId"`
	OfferID     string      `json:"offerId"`
	ItemName    string      `json:"itemName"`
	Price       json.Number `json:"price"`
	FinalPrice  json.Number `json:"finalPrice"`
	Quantity    json.Number `json:"quantity"`
	GoodsData   struct{}    `json:"goodsData"`
	DigitalMark bool        `json:"isDigitalMark"`
}

// MegaMarketCustomer is the inbound buyer block
type MegaMarketCustomer struct {
	FullName string `json:"customerFullName"`
	Phone    string `json:"customerPhone"`
	Email    string `json:"customerEmail"`
}

// MegaMarketLabel carries the destination address block
type MegaMarketLabel struct {
	Region       string `json:"region"`
	City         string `json:"city"`
	Address      string `json:"address"`
	PostalCode   string `json:"postalCode"`
	FullName     string `json:"fullName"`
	MerchantName string `json:"merchantName"`
}
