package marketplace

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/markethub/backend/internal/domain/channel"
)

// OzonAdapter converts one polled posting into the canonical draft. The
// poller feeds it posting-by-posting; Parse also accepts the raw JSON of a
// single posting for symmetry with the push channels.
type OzonAdapter struct{}

// Interface assertion
var _ channel.Adapter = (*OzonAdapter)(nil)

// NewOzonAdapter creates an Ozon posting adapter
func NewOzonAdapter() *OzonAdapter {
	return &OzonAdapter{}
}

// Channel returns the channel code this adapter serves
func (a *OzonAdapter) Channel() channel.Code {
	return channel.CodeOzon
}

// Parse decodes a single posting JSON document into a draft.
func (a *OzonAdapter) Parse(raw []byte) (*channel.OrderDraft, error) {
	var posting OzonPosting
	if err := json.Unmarshal(raw, &posting); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrMalformedPayload, err)
	}
	return a.DraftFromPosting(&posting)
}

// DraftFromPosting builds the canonical draft from a decoded posting.
func (a *OzonAdapter) DraftFromPosting(posting *OzonPosting) (*channel.OrderDraft, error) {
	if len(posting.Products) == 0 {
		return nil, fmt.Errorf("%w: posting %s has no products", channel.ErrMalformedPayload, posting.PostingNumber)
	}

	draft := &channel.OrderDraft{
		Channel:         channel.CodeOzon,
		ExternalOrderID: posting.PostingNumber,
		Buyer: channel.BuyerInfo{
			Name:       posting.Customer.Name,
			Phone:      posting.Customer.Phone,
			PostalCode: posting.Customer.Address.ZipCode,
		},
		ShippingAddress: channel.ShippingAddress{
			City:       firstNonEmpty(posting.Customer.Address.City, posting.AnalyticsData.City),
			Region:     posting.AnalyticsData.Region,
			PostalCode: posting.Customer.Address.ZipCode,
			Address:    posting.Customer.Address.Text,
		},
	}

	if posting.ShipmentDate != "" {
		if shipDate, err := time.Parse(time.RFC3339, posting.ShipmentDate); err == nil {
			draft.RequestedShipDate = &shipDate
		}
	}

	markingSKUs := make(map[int64]struct{}, len(posting.Requirements.ProductsRequiringMandatoryMark))
	for _, sku := range posting.Requirements.ProductsRequiringMandatoryMark {
		markingSKUs[sku] = struct{}{}
	}

	for i, p := range posting.Products {
		// Defective prices become zero and fail validation downstream.
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			price = decimal.Zero
		}
		draft.LineItems = append(draft.LineItems, channel.LineItem{
			ChannelSKU: p.OfferID,
			ItemIndex:  i + 1,
			UnitPrice:  price,
			Quantity:   p.Quantity,
		})
		draft.DeclaredTotal = draft.DeclaredTotal.Add(price.Mul(decimal.NewFromInt(int64(p.Quantity))))
		if _, required := markingSKUs[p.SKU]; required {
			draft.RequiredMarkingRefs = append(draft.RequiredMarkingRefs, p.OfferID)
		}
	}

	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", channel.ErrMalformedPayload, err)
	}
	return draft, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
