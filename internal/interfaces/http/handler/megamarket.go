package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appingest "github.com/markethub/backend/internal/application/ingest"
	appreconcile "github.com/markethub/backend/internal/application/reconcile"
	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/interfaces/http/dto"
)

// maxWebhookBody bounds one inbound webhook or push document.
const maxWebhookBody = 1 << 20

// MegaMarketHandler serves the merchant webhook endpoint. The marketplace
// pushes one JSON document per call; the method name is the last path
// segment and only the whitelisted methods are served.
type MegaMarketHandler struct {
	ingest    *appingest.Service
	reconcile *appreconcile.Service
	packing   *appreconcile.PackingService
	token     string
	logger    *zap.Logger
}

// NewMegaMarketHandler creates a webhook handler
func NewMegaMarketHandler(
	ingest *appingest.Service,
	reconcile *appreconcile.Service,
	packing *appreconcile.PackingService,
	token string,
	logger *zap.Logger,
) *MegaMarketHandler {
	return &MegaMarketHandler{
		ingest:    ingest,
		reconcile: reconcile,
		packing:   packing,
		token:     token,
		logger:    logger,
	}
}

// RegisterRoutes mounts the webhook endpoints
func (h *MegaMarketHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/order/:method", h.Handle)
}

// webhookEnvelope is the outer shape shared by all webhook methods. The
// token is repeated inside data on every call.
type webhookEnvelope struct {
	Data json.RawMessage        `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}

type webhookTokenProbe struct {
	Token string `json:"token"`
}

// packingWebhookData is the order/packing payload
type packingWebhookData struct {
	Token                 string         `json:"token"`
	OrderID               int64          `json:"orderId"`
	FulfillmentOrders     []string       `json:"fulfillmentOrders"`
	CargoPlaces           map[string]int `json:"cargoPlaces"`
	DisablePackingRequest bool           `json:"disablePackingRequest"`
	DisableWarehouseEmail bool           `json:"disableWarehouseEmail"`
}

// cancelWebhookData is the order/cancel payload
type cancelWebhookData struct {
	Token     string `json:"token"`
	Shipments []struct {
		ShipmentID string `json:"shipmentId"`
	} `json:"shipments"`
}

// Handle dispatches one webhook call by its method path segment.
func (h *MegaMarketHandler) Handle(c *gin.Context) {
	method := c.Param("method")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "unreadable request body"))
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Data) == 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "malformed webhook document"))
		return
	}

	var probe webhookTokenProbe
	if err := json.Unmarshal(envelope.Data, &probe); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "malformed webhook data"))
		return
	}
	if h.token == "" || subtle.ConstantTimeCompare([]byte(probe.Token), []byte(h.token)) != 1 {
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(dto.ErrCodeUnauthorized, "invalid token"))
		return
	}

	switch method {
	case "new":
		h.orderNew(c, body)
	case "cancel":
		h.orderCancel(c, envelope.Data)
	case "packing":
		h.orderPacking(c, envelope.Data)
	default:
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponse(dto.ErrCodeUnknownMethod, "unsupported method: order/"+method))
	}
}

// orderNew ingests a new order document. The marketplace is acknowledged
// before the confirm/reject calls go out.
func (h *MegaMarketHandler) orderNew(c *gin.Context, body []byte) {
	result, err := h.ingest.IngestRaw(c.Request.Context(), channel.CodeMegaMarket, body)
	switch {
	case errors.Is(err, appingest.ErrDuplicateOrder):
		c.JSON(http.StatusNotAcceptable, dto.NewErrorResponse(dto.ErrCodeConflict, "order already accepted"))
		return
	case errors.Is(err, channel.ErrMalformedPayload):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "malformed order document"))
		return
	case err != nil:
		h.logger.Error("webhook order ingestion failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "order ingestion failed"))
		return
	}

	c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
		"orderId": result.Commit.InternalOrderID,
	}))

	// The acknowledgement is already written; confirm/reject calls follow.
	h.ingest.Dispatch(c.Request.Context(), result)
}

// orderCancel cancels a previously accepted order.
func (h *MegaMarketHandler) orderCancel(c *gin.Context, data json.RawMessage) {
	var payload cancelWebhookData
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Shipments) == 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "cancel document carries no shipments"))
		return
	}

	shipmentID := payload.Shipments[0].ShipmentID
	err := h.reconcile.CancelByExternalID(c.Request.Context(), channel.CodeMegaMarket, shipmentID)
	switch {
	case errors.Is(err, appreconcile.ErrOrderNotFound):
		c.JSON(http.StatusNotAcceptable, dto.NewErrorResponse(dto.ErrCodeConflict, "unknown order: "+shipmentID))
	case err != nil:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "cancel failed"))
	default:
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
	}
}

// orderPacking runs the box assignment flow for a packed order.
func (h *MegaMarketHandler) orderPacking(c *gin.Context, data json.RawMessage) {
	var payload packingWebhookData
	if err := json.Unmarshal(data, &payload); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "malformed packing document"))
		return
	}

	req := appreconcile.PackingRequest{
		OrderID:               payload.OrderID,
		FulfillmentOrders:     payload.FulfillmentOrders,
		CargoPlaces:           parseCargoPlaces(payload.CargoPlaces),
		DisablePackingRequest: payload.DisablePackingRequest,
		DisableWarehouseEmail: payload.DisableWarehouseEmail,
	}

	err := h.packing.HandlePacking(c.Request.Context(), req)
	switch {
	case errors.Is(err, appreconcile.ErrBadPackingRequest):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "incomplete packing request"))
	case errors.Is(err, appreconcile.ErrNoExternalOrderID), errors.Is(err, appreconcile.ErrNoItemIndexes):
		c.JSON(http.StatusNotAcceptable, dto.NewErrorResponse(dto.ErrCodeConflict, err.Error()))
	case err != nil:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "packing failed"))
	default:
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
	}
}

func parseCargoPlaces(places map[string]int) map[int64]int {
	parsed := make(map[int64]int, len(places))
	for key, cargo := range places {
		productID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		parsed[productID] = cargo
	}
	return parsed
}
