package handler

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appingest "github.com/markethub/backend/internal/application/ingest"
	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/infrastructure/marketplace"
)

// MultibonusHandler serves the partner XML push endpoint. The partner posts
// one XML document per call over mutual TLS; the document root selects the
// operation.
type MultibonusHandler struct {
	ingest            *appingest.Service
	deliveryCost      int64
	defaultPostalCode string
	logger            *zap.Logger
}

// NewMultibonusHandler creates an XML push handler
func NewMultibonusHandler(ingest *appingest.Service, deliveryCost int64, defaultPostalCode string, logger *zap.Logger) *MultibonusHandler {
	return &MultibonusHandler{
		ingest:            ingest,
		deliveryCost:      deliveryCost,
		defaultPostalCode: defaultPostalCode,
		logger:            logger,
	}
}

// RegisterRoutes mounts the push endpoint
func (h *MultibonusHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/push", h.Handle)
}

// Handle dispatches one pushed XML document by its root element.
func (h *MultibonusHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.XML(http.StatusBadRequest, marketplace.NewMultibonusCheckOrderResult(false, "unreadable request body"))
		return
	}

	switch {
	case bytes.Contains(body, []byte("<CheckOrderMessage")):
		h.checkOrder(c, body)
	case bytes.Contains(body, []byte("<CommitOrderMessage")):
		h.commitOrder(c, body)
	case bytes.Contains(body, []byte("<GetDeliveryVariantsMessage")):
		h.deliveryVariants(c, body)
	default:
		c.XML(http.StatusBadRequest, marketplace.NewMultibonusCheckOrderResult(false, "unrecognized document root"))
	}
}

// checkOrder answers an availability probe without committing anything.
func (h *MultibonusHandler) checkOrder(c *gin.Context, body []byte) {
	report, err := h.ingest.Check(c.Request.Context(), channel.CodeMultibonus, body)
	if err != nil {
		if errors.Is(err, channel.ErrMalformedPayload) {
			c.XML(http.StatusBadRequest, marketplace.NewMultibonusCheckOrderResult(false, "malformed order document"))
			return
		}
		h.logger.Error("order check failed", zap.Error(err))
		c.XML(http.StatusInternalServerError, marketplace.NewMultibonusCheckOrderResult(false, "order check failed"))
		return
	}

	if rejected := report.RejectedRefs(); len(rejected) > 0 {
		c.XML(http.StatusOK, marketplace.NewMultibonusCheckOrderResult(false, report.Diagnostic()))
		return
	}
	c.XML(http.StatusOK, marketplace.NewMultibonusCheckOrderResult(true, ""))
}

// commitOrder ingests a pushed order and reports the internal order id. The
// partner is answered before the status notification goes out.
func (h *MultibonusHandler) commitOrder(c *gin.Context, body []byte) {
	result, err := h.ingest.IngestRaw(c.Request.Context(), channel.CodeMultibonus, body)
	switch {
	case errors.Is(err, appingest.ErrDuplicateOrder):
		c.XML(http.StatusOK, marketplace.NewMultibonusCommitOrderResult(result.ExistingOrderID, "order already accepted"))
		return
	case errors.Is(err, channel.ErrMalformedPayload):
		c.XML(http.StatusBadRequest, marketplace.NewMultibonusCommitOrderResult(0, "malformed order document"))
		return
	case err != nil:
		h.logger.Error("pushed order ingestion failed", zap.Error(err))
		c.XML(http.StatusInternalServerError, marketplace.NewMultibonusCommitOrderResult(0, "order ingestion failed"))
		return
	}

	if !result.Commit.Succeeded() {
		reason := result.Commit.ErrorMessage
		if reason == "" {
			reason = result.Report.Diagnostic()
		}
		c.XML(http.StatusOK, marketplace.NewMultibonusCommitOrderResult(0, reason))
		return
	}

	c.XML(http.StatusOK, marketplace.NewMultibonusCommitOrderResult(result.Commit.InternalOrderID, ""))

	h.ingest.Dispatch(c.Request.Context(), result)
}

// deliveryVariants quotes the courier delivery for a location. The quote is
// a single fixed-cost courier group.
func (h *MultibonusHandler) deliveryVariants(c *gin.Context, body []byte) {
	var msg marketplace.MultibonusDeliveryVariantsMessage
	if err := xml.Unmarshal(body, &msg); err != nil {
		c.XML(http.StatusBadRequest, marketplace.MultibonusDeliveryVariantsResult{
			XMLNS:      marketplace.MultibonusXMLNamespace,
			ResultCode: 1,
			Reason:     "malformed delivery request",
		})
		return
	}

	postCode := msg.Location.PostCode
	if postCode == "" {
		postCode = h.defaultPostalCode
	}
	locationName := msg.Location.City
	if locationName == "" {
		locationName = msg.Location.Region
	}

	itemsCost := int64(0)
	for _, item := range msg.Items {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			continue
		}
		amount, err := strconv.Atoi(item.Amount)
		if err != nil || amount <= 0 {
			amount = 1
		}
		itemsCost += price.Mul(decimal.NewFromInt(int64(amount))).IntPart()
	}

	c.XML(http.StatusOK, marketplace.MultibonusDeliveryVariantsResult{
		XMLNS:      marketplace.MultibonusXMLNamespace,
		ResultCode: 0,
		Location: &marketplace.MultibonusResultLocation{
			LocationName: locationName,
			PostCode:     postCode,
		},
		Groups: []marketplace.MultibonusDeliveryGroup{
			{
				GroupName: "Courier",
				Variants: []marketplace.MultibonusDeliveryVariant{
					{
						Name:         "Courier delivery",
						ExternalID:   1,
						Description:  "Door-to-door courier delivery",
						ItemsCost:    itemsCost,
						DeliveryCost: h.deliveryCost,
						TotalCost:    itemsCost + h.deliveryCost,
					},
				},
			},
		},
	})
}
