package marketplace

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/markethub/backend/internal/domain/channel"
)

// MultibonusAdapter converts inbound check/commit XML documents into the
// canonical draft. Check and commit carry the same order block.
type MultibonusAdapter struct{}

// Interface assertion
var _ channel.Adapter = (*MultibonusAdapter)(nil)

// NewMultibonusAdapter creates a Multibonus XML adapter
func NewMultibonusAdapter() *MultibonusAdapter {
	return &MultibonusAdapter{}
}

// Channel returns the channel code this adapter serves
func (a *MultibonusAdapter) Channel() channel.Code {
	return channel.CodeMultibonus
}

// Parse decodes a CheckOrderMessage or CommitOrderMessage into a draft.
func (a *MultibonusAdapter) Parse(raw []byte) (*channel.OrderDraft, error) {
	switch {
	case bytes.Contains(raw, []byte("<CheckOrderMessage")):
		var msg MultibonusCheckOrderMessage
		if err := xml.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", channel.ErrMalformedPayload, err)
		}
		return a.draftFromOrder(&msg.Order)
	case bytes.Contains(raw, []byte("<CommitOrderMessage")):
		var msg MultibonusCommitOrderMessage
		if err := xml.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", channel.ErrMalformedPayload, err)
		}
		return a.draftFromOrder(&msg.Order)
	default:
		return nil, fmt.Errorf("%w: unrecognized document root", channel.ErrMalformedPayload)
	}
}

func (a *MultibonusAdapter) draftFromOrder(order *MultibonusOrder) (*channel.OrderDraft, error) {
	draft := &channel.OrderDraft{
		Channel:         channel.CodeMultibonus,
		ExternalOrderID: order.OrderID,
		Buyer: channel.BuyerInfo{
			Name:       order.ClientInfo.Fio,
			Phone:      order.ClientInfo.Phone,
			Email:      order.ClientInfo.Email,
			PostalCode: order.Location.PostCode,
		},
		ShippingAddress: channel.ShippingAddress{
			City:       order.Location.City,
			Region:     order.Location.Region,
			PostalCode: order.Location.PostCode,
			KladrCode:  order.Location.KladrCode,
			Address:    order.Location.Address,
		},
		DeclaredTotal:        stringToDecimal(order.TotalCost),
		DeclaredDeliveryCost: stringToDecimal(order.DeliveryCost),
	}

	for i, item := range order.Items {
		draft.LineItems = append(draft.LineItems, channel.LineItem{
			ChannelSKU: item.ExternalItemID,
			ItemIndex:  i + 1,
			UnitPrice:  stringToDecimal(item.Price),
			Quantity:   stringToInt(item.Amount),
		})
	}

	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrMalformedPayload, err)
	}
	return draft, nil
}

// stringToDecimal parses a wire number defensively; defective values become
// zero and fail validation downstream.
func stringToDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func stringToInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
