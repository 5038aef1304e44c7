package handler

import (
	"encoding/xml"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/infrastructure/marketplace"
)

func newMultibonusRig(t *testing.T) *rig {
	return newRig(t, []channel.Adapter{marketplace.NewMultibonusAdapter()}, channel.CodeMultibonus)
}

func multibonusOrderXML(root, orderID, sku string) string {
	return `<` + root + ` xmlns="http://tempuri.org/XMLSchema.xsd">
	<Order>
		<OrderId>` + orderID + `</OrderId>
		<TotalCost>100</TotalCost>
		<ClientInfo><Fio>Сергей Сидоров</Fio><Phone>+79031112233</Phone></ClientInfo>
		<Location><City>Санкт-Петербург</City><PostCode>190000</PostCode></Location>
		<Items>
			<Item><ExternalItemId>` + sku + `</ExternalItemId><Price>100</Price><Amount>1</Amount></Item>
		</Items>
	</Order>
</` + root + `>`
}

func TestMultibonusHandler_CheckOrder(t *testing.T) {
	t.Run("available order checks out", func(t *testing.T) {
		r := newMultibonusRig(t)

		w := r.do(t, http.MethodPost, "/api/multibonus/v1/push", "text/xml", multibonusOrderXML("CheckOrderMessage", "VTB-900", "SKU-1"))
		require.Equal(t, http.StatusOK, w.Code)

		var result marketplace.MultibonusCheckOrderResult
		require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Checked)

		// a check never commits
		assert.Empty(t, r.store.handle.basket)
	})

	t.Run("unavailable order fails the check with a reason", func(t *testing.T) {
		r := newMultibonusRig(t)

		w := r.do(t, http.MethodPost, "/api/multibonus/v1/push", "text/xml", multibonusOrderXML("CheckOrderMessage", "VTB-900", "SKU-2"))
		require.Equal(t, http.StatusOK, w.Code)

		var result marketplace.MultibonusCheckOrderResult
		require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 0, result.Checked)
		assert.NotEmpty(t, result.Reason)
	})
}

func TestMultibonusHandler_CommitOrder(t *testing.T) {
	t.Run("commits and reports the internal order id", func(t *testing.T) {
		r := newMultibonusRig(t)

		w := r.do(t, http.MethodPost, "/api/multibonus/v1/push", "text/xml", multibonusOrderXML("CommitOrderMessage", "VTB-900", "SKU-1"))
		require.Equal(t, http.StatusOK, w.Code)

		var result marketplace.MultibonusCommitOrderResult
		require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 1, result.Confirmed)
		assert.Equal(t, int64(900), result.InternalOrderID)

		require.Len(t, r.store.handle.basket, 1)
		assert.Equal(t, "VTB-900", r.store.handle.properties["MULTIBONUS_ORDER_ID"])
	})

	t.Run("repeated commit reports the prior order id", func(t *testing.T) {
		r := newMultibonusRig(t)
		r.store.existing["MULTIBONUS_ORDER_ID/VTB-900"] = []int64{777}

		w := r.do(t, http.MethodPost, "/api/multibonus/v1/push", "text/xml", multibonusOrderXML("CommitOrderMessage", "VTB-900", "SKU-1"))
		require.Equal(t, http.StatusOK, w.Code)

		var result marketplace.MultibonusCommitOrderResult
		require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, int64(777), result.InternalOrderID)
		assert.Empty(t, r.store.handle.basket)
	})

	t.Run("fully rejected commit answers unconfirmed", func(t *testing.T) {
		r := newMultibonusRig(t)

		w := r.do(t, http.MethodPost, "/api/multibonus/v1/push", "text/xml", multibonusOrderXML("CommitOrderMessage", "VTB-901", "SKU-2"))
		require.Equal(t, http.StatusOK, w.Code)

		var result marketplace.MultibonusCommitOrderResult
		require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, 0, result.Confirmed)
		assert.NotEmpty(t, result.Reason)
	})
}

func TestMultibonusHandler_DeliveryVariants(t *testing.T) {
	r := newMultibonusRig(t)

	body := `<GetDeliveryVariantsMessage xmlns="http://tempuri.org/XMLSchema.xsd">
	<Location><City>Москва</City></Location>
	<Items>
		<Item><ExternalItemId>SKU-1</ExternalItemId><Price>100</Price><Amount>2</Amount></Item>
	</Items>
</GetDeliveryVariantsMessage>`

	w := r.do(t, http.MethodPost, "/api/multibonus/v1/push", "text/xml", body)
	require.Equal(t, http.StatusOK, w.Code)

	var result marketplace.MultibonusDeliveryVariantsResult
	require.NoError(t, xml.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 0, result.ResultCode)
	require.NotNil(t, result.Location)
	assert.Equal(t, "Москва", result.Location.LocationName)
	// postcode falls back to the configured default
	assert.Equal(t, "190000", result.Location.PostCode)

	require.Len(t, result.Groups, 1)
	variant := result.Groups[0].Variants[0]
	assert.Equal(t, int64(200), variant.ItemsCost)
	assert.Equal(t, int64(500), variant.DeliveryCost)
	assert.Equal(t, int64(700), variant.TotalCost)
}

func TestMultibonusHandler_UnrecognizedDocument(t *testing.T) {
	r := newMultibonusRig(t)

	w := r.do(t, http.MethodPost, "/api/multibonus/v1/push", "text/xml", `<SomethingElse/>`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
