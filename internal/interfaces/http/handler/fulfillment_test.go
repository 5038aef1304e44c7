package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/infrastructure/marketplace"
)

func newFulfillmentRig(t *testing.T) *rig {
	r := newRig(t, []channel.Adapter{marketplace.NewOzonAdapter()}, channel.CodeOzon)
	// affiliate order 900 with the polled channel
	r.store.paymentID = 33
	r.store.deliveryID = 95
	r.store.properties["OZON_ORDER_ID"] = "12345-0001-1"
	return r
}

func TestFulfillmentHandler_StatusChange(t *testing.T) {
	t.Run("ready-to-ship triggers the ship call", func(t *testing.T) {
		r := newFulfillmentRig(t)

		w := r.do(t, http.MethodPost, "/api/v1/orders/900/status", "application/json", `{"status": "SO"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"ship"}, r.gateway.calls)
	})

	t.Run("unaffiliated order is acknowledged without a call", func(t *testing.T) {
		r := newFulfillmentRig(t)
		r.store.paymentID = 1
		r.store.deliveryID = 2

		w := r.do(t, http.MethodPost, "/api/v1/orders/900/status", "application/json", `{"status": "SO"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, r.gateway.calls)
	})

	t.Run("invalid order id", func(t *testing.T) {
		r := newFulfillmentRig(t)

		w := r.do(t, http.MethodPost, "/api/v1/orders/abc/status", "application/json", `{"status": "SO"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing status", func(t *testing.T) {
		r := newFulfillmentRig(t)

		w := r.do(t, http.MethodPost, "/api/v1/orders/900/status", "application/json", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFulfillmentHandler_MarkingFulfilled(t *testing.T) {
	t.Run("matching codes ship the deferred order", func(t *testing.T) {
		r := newFulfillmentRig(t)
		r.store.properties[channel.PropertyMarkingProducts] = "11"

		w := r.do(t, http.MethodPost, "/api/v1/orders/900/marking", "application/json", `{"codes": ["CODE-A"]}`)
		require.Equal(t, http.StatusOK, w.Code)

		require.Len(t, r.gateway.shipped, 1)
		assert.Equal(t, []string{"CODE-A"}, r.gateway.shipped[0].MarkingCodes)
	})

	t.Run("empty code list", func(t *testing.T) {
		r := newFulfillmentRig(t)

		w := r.do(t, http.MethodPost, "/api/v1/orders/900/marking", "application/json", `{"codes": []}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestFulfillmentHandler_ReturnClaim(t *testing.T) {
	t.Run("claim goes to the owning channel", func(t *testing.T) {
		r := newFulfillmentRig(t)

		w := r.do(t, http.MethodPost, "/api/v1/orders/900/return", "application/json", `{"reason": "damaged in transit"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"return"}, r.gateway.calls)
	})

	t.Run("invalid order id", func(t *testing.T) {
		r := newFulfillmentRig(t)

		w := r.do(t, http.MethodPost, "/api/v1/orders/abc/return", "application/json", `{"reason": "damaged"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing reason", func(t *testing.T) {
		r := newFulfillmentRig(t)

		w := r.do(t, http.MethodPost, "/api/v1/orders/900/return", "application/json", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, r.gateway.calls)
	})
}
