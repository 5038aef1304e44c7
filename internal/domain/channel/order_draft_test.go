package channel

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderDraft_Validate(t *testing.T) {
	valid := OrderDraft{
		Channel:         CodeOzon,
		ExternalOrderID: "12345-0001-1",
		LineItems:       []LineItem{{ChannelSKU: "SKU-1", Quantity: 1}},
	}

	t.Run("valid draft passes", func(t *testing.T) {
		draft := valid
		assert.NoError(t, draft.Validate())
	})

	t.Run("empty external order id", func(t *testing.T) {
		draft := valid
		draft.ExternalOrderID = ""
		assert.ErrorIs(t, draft.Validate(), ErrEmptyExternalOrderID)
	})

	t.Run("no line items", func(t *testing.T) {
		draft := valid
		draft.LineItems = nil
		assert.ErrorIs(t, draft.Validate(), ErrEmptyLineItems)
	})
}

func TestOrderDraft_ItemsTotal(t *testing.T) {
	draft := OrderDraft{
		LineItems: []LineItem{
			{ChannelSKU: "A", UnitPrice: decimal.NewFromFloat(129.90), Quantity: 2},
			{ChannelSKU: "B", UnitPrice: decimal.NewFromInt(500), Quantity: 1},
		},
	}

	// 129.90*2 + 500 = 759.80, recomputed from the lines, never the
	// declared total
	assert.True(t, decimal.NewFromFloat(759.80).Equal(draft.ItemsTotal()))
}

func TestLineItem_LineTotal(t *testing.T) {
	li := LineItem{UnitPrice: decimal.NewFromFloat(33.33), Quantity: 3}
	assert.True(t, decimal.NewFromFloat(99.99).Equal(li.LineTotal()))
}

func TestOrderDraft_RequiresMarking(t *testing.T) {
	draft := OrderDraft{RequiredMarkingRefs: []string{"SKU-1", "SKU-3"}}

	assert.True(t, draft.RequiresMarking("SKU-1"))
	assert.False(t, draft.RequiresMarking("SKU-2"))
}

func TestCode_IsValid(t *testing.T) {
	assert.True(t, CodeOzon.IsValid())
	assert.True(t, CodeMegaMarket.IsValid())
	assert.True(t, CodeMultibonus.IsValid())
	assert.False(t, Code("WILDBERRIES").IsValid())
}

func TestRetryPolicy_Valid(t *testing.T) {
	assert.True(t, ShipRetryPolicy.Valid())
	assert.True(t, StockRetryPolicy.Valid())
	assert.False(t, RetryPolicy{MaxAttempts: 0}.Valid())
	assert.False(t, RetryPolicy{MaxAttempts: 1, BackoffMin: 5, BackoffMax: 1}.Valid())
}
