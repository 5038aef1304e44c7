package marketplace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/markethub/backend/internal/domain/channel"
)

// MegaMarketAdapter converts the inbound order/new webhook body into the
// canonical draft. The first shipment of the payload is the order; the
// marketplace sends one shipment per call.
type MegaMarketAdapter struct{}

// Interface assertion
var _ channel.Adapter = (*MegaMarketAdapter)(nil)

// NewMegaMarketAdapter creates a MegaMarket webhook adapter
func NewMegaMarketAdapter() *MegaMarketAdapter {
	return &MegaMarketAdapter{}
}

// Channel returns the channel code this adapter serves
func (a *MegaMarketAdapter) Channel() channel.Code {
	return channel.CodeMegaMarket
}

// Parse decodes an order/new webhook body into a draft.
func (a *MegaMarketAdapter) Parse(raw []byte) (*channel.OrderDraft, error) {
	var webhook MegaMarketWebhook
	if err := json.Unmarshal(raw, &webhook); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrMalformedPayload, err)
	}
	if len(webhook.Data.Shipments) == 0 {
		return nil, fmt.Errorf("%w: no shipments in webhook body", channel.ErrMalformedPayload)
	}
	shipment := webhook.Data.Shipments[0]

	draft := &channel.OrderDraft{
		Channel:         channel.CodeMegaMarket,
		ExternalOrderID: shipment.ShipmentID,
		Buyer: channel.BuyerInfo{
			Name:       firstNonEmpty(shipment.Customer.FullName, shipment.Label.FullName),
			Phone:      shipment.Customer.Phone,
			Email:      shipment.Customer.Email,
			PostalCode: shipment.Label.PostalCode,
		},
		ShippingAddress: channel.ShippingAddress{
			City:       shipment.Label.City,
			Region:     shipment.Label.Region,
			PostalCode: shipment.Label.PostalCode,
			Address:    shipment.Label.Address,
		},
	}

	if shipment.ShipmentDateFrom != "" {
		if shipDate, err := time.Parse(time.RFC3339, shipment.ShipmentDateFrom); err == nil {
			draft.RequestedShipDate = &shipDate
		}
	}

	// The marketplace may repeat an offer across entries; repeats merge
	// into one line with the quantities summed.
	positions := make(map[string]int, len(shipment.Items))
	for _, item := range shipment.Items {
		sku := firstNonEmpty(item.OfferID, item.GoodsID)
		if pos, seen := positions[sku]; seen {
			draft.LineItems[pos].Quantity += numberToInt(item.Quantity)
			continue
		}
		positions[sku] = len(draft.LineItems)
		draft.LineItems = append(draft.LineItems, channel.LineItem{
			ChannelSKU: sku,
			ItemIndex:  numberToInt(item.ItemIndex),
			UnitPrice:  numberToDecimal(firstNonEmptyNumber(item.FinalPrice, item.Price)),
			Quantity:   numberToInt(item.Quantity),
		})
		if item.DigitalMark {
			draft.RequiredMarkingRefs = append(draft.RequiredMarkingRefs, sku)
		}
	}
	draft.DeclaredTotal = numberToDecimal(shipment.DepositedAmount)

	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrMalformedPayload, err)
	}
	return draft, nil
}

// numberToInt parses a wire number defensively; defective values become zero
// and fail validation downstream.
func numberToInt(n json.Number) int {
	v, err := n.Int64()
	if err != nil {
		return 0
	}
	return int(v)
}

func numberToDecimal(n json.Number) decimal.Decimal {
	if n.String() == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func firstNonEmptyNumber(values ...json.Number) json.Number {
	for _, v := range values {
		if v.String() != "" && v.String() != "0" {
			return v
		}
	}
	return json.Number("")
}
