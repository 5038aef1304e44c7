package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appreconcile "github.com/markethub/backend/internal/application/reconcile"
	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/interfaces/http/dto"
)

// FulfillmentHandler receives the fulfillment-side callbacks: order status
// transitions from the store backend and regulatory marking codes from the
// labeling system.
type FulfillmentHandler struct {
	reconcile *appreconcile.Service
	logger    *zap.Logger
}

// NewFulfillmentHandler creates a fulfillment callback handler
func NewFulfillmentHandler(reconcile *appreconcile.Service, logger *zap.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{reconcile: reconcile, logger: logger}
}

// RegisterRoutes mounts the callback endpoints
func (h *FulfillmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/orders/:id/status", h.StatusChange)
	rg.POST("/orders/:id/marking", h.MarkingFulfilled)
	rg.POST("/orders/:id/return", h.ReturnClaim)
}

// statusChangeRequest carries one internal status transition
type statusChangeRequest struct {
	Status string `json:"status" binding:"required"`
}

// markingRequest carries the fulfilled marking codes of one order
type markingRequest struct {
	Codes []string `json:"codes" binding:"required"`
}

// returnClaimRequest carries the reason of one return claim
type returnClaimRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// StatusChange reacts to an order status transition.
func (h *FulfillmentHandler) StatusChange(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "invalid order id"))
		return
	}

	var req statusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "status is required"))
		return
	}

	if err := h.reconcile.OnStatusChange(c.Request.Context(), orderID, channel.StoreStatus(req.Status)); err != nil {
		h.logger.Error("status change handling failed",
			zap.Int64("order_id", orderID),
			zap.String("status", req.Status),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "status change handling failed"))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}

// MarkingFulfilled receives marking codes for an order whose shipment was
// deferred until labeling completed.
func (h *FulfillmentHandler) MarkingFulfilled(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "invalid order id"))
		return
	}

	var req markingRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Codes) == 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "codes are required"))
		return
	}

	err = h.reconcile.OnMarkingFulfilled(c.Request.Context(), orderID, req.Codes)
	switch {
	case errors.Is(err, appreconcile.ErrOrderNotFound):
		c.JSON(http.StatusNotAcceptable, dto.NewErrorResponse(dto.ErrCodeConflict, "unknown order"))
	case err != nil:
		h.logger.Error("marking callback failed", zap.Int64("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "marking handling failed"))
	default:
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
	}
}

// ReturnClaim files a return claim for a delivered order with its channel.
func (h *FulfillmentHandler) ReturnClaim(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "invalid order id"))
		return
	}

	var req returnClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeMalformed, "reason is required"))
		return
	}

	if err := h.reconcile.OnReturnClaim(c.Request.Context(), orderID, req.Reason); err != nil {
		h.logger.Error("return claim handling failed",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, "return claim handling failed"))
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
}
