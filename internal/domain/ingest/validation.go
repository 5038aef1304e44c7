package ingest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
)

// DefaultPriceDeviationThreshold is the percent deviation beyond which a
// declared price is rejected, for channels that check declared prices.
var DefaultPriceDeviationThreshold = decimal.NewFromFloat(30.0)

// ValidationPolicy is the per-channel tuning of the pipeline. Some channels
// declare authoritative prices and skip the deviation check entirely.
type ValidationPolicy struct {
	CheckPriceDeviation     bool
	PriceDeviationThreshold decimal.Decimal
}

// ValidationPipeline runs the sequential per-line-item checks of a draft.
// Checks run in strict order; the first failing check short-circuits the
// rest for that item. The result partitions the line items into confirmed
// and rejected sets with no overlap.
type ValidationPipeline struct {
	catalog  CatalogReader
	policies map[channel.Code]ValidationPolicy
	logger   *zap.Logger
}

// NewValidationPipeline creates a pipeline over the catalog with per-channel
// policies. Channels without a policy entry skip the deviation check.
func NewValidationPipeline(catalog CatalogReader, policies map[channel.Code]ValidationPolicy, logger *zap.Logger) *ValidationPipeline {
	if policies == nil {
		policies = make(map[channel.Code]ValidationPolicy)
	}
	return &ValidationPipeline{catalog: catalog, policies: policies, logger: logger}
}

// Validate checks every line item of the draft and returns the partition.
// Line items mutated with their resolved internal product ids are returned
// alongside; the caller builds the basket from the confirmed subset.
func (p *ValidationPipeline) Validate(ctx context.Context, draft *channel.OrderDraft) (*channel.ValidationReport, error) {
	report := &channel.ValidationReport{}
	policy := p.policies[draft.Channel]

	for i := range draft.LineItems {
		item := &draft.LineItems[i]
		p.validateItem(ctx, draft.Channel, policy, item, report)
	}

	p.logger.Debug("draft validated",
		zap.String("channel", draft.Channel.String()),
		zap.String("external_order_id", draft.ExternalOrderID),
		zap.Int("confirmed", len(report.ConfirmedRefs())),
		zap.Int("rejected", len(report.RejectedRefs())),
	)
	return report, nil
}

func (p *ValidationPipeline) validateItem(ctx context.Context, ch channel.Code, policy ValidationPolicy, item *channel.LineItem, report *channel.ValidationReport) {
	ref := item.Ref()

	// 1. Existence
	product, err := p.catalog.ProductByChannelSKU(ctx, ch, item.ChannelSKU)
	if err != nil {
		p.logger.Error("catalog lookup failed", zap.String("sku", item.ChannelSKU), zap.Error(err))
		product = nil
	}
	if product == nil {
		report.AddRejected(ref, 0, channel.RejectOutOfDatabase, 0,
			fmt.Sprintf("product %s not found in catalog.", item.ChannelSKU))
		return
	}
	item.InternalProductID = product.ID

	// 2. Active flag
	if !product.Active {
		report.AddRejected(ref, product.ID, channel.RejectInactive, product.AvailableQuantity,
			fmt.Sprintf("product %s is not active.", item.ChannelSKU))
		return
	}

	// 3. Resolvable price
	if !product.HasPrice {
		report.AddRejected(ref, product.ID, channel.RejectPriceMissing, product.AvailableQuantity,
			fmt.Sprintf("product %s has no current price.", item.ChannelSKU))
		return
	}

	// 4. Price deviation, for channels that do not trust declared prices
	if policy.CheckPriceDeviation {
		threshold := policy.PriceDeviationThreshold
		if threshold.IsZero() {
			threshold = DefaultPriceDeviationThreshold
		}
		if priceDeviationExceeded(item.UnitPrice, product.Price, threshold) {
			report.AddRejected(ref, product.ID, channel.RejectPriceDeviation, product.AvailableQuantity,
				fmt.Sprintf("product %s price %s deviates from catalog price %s beyond %s%%.",
					item.ChannelSKU, item.UnitPrice.String(), product.Price.String(), threshold.String()))
			return
		}
	}

	// 5. Stock. A non-positive quantity can never be satisfied; defective
	// wire values parse to zero and end up here.
	if item.Quantity <= 0 || !product.Available || product.AvailableQuantity <= 0 || item.Quantity > product.AvailableQuantity {
		report.AddRejected(ref, product.ID, channel.RejectInsufficientStock, product.AvailableQuantity,
			fmt.Sprintf("product %s requested %d, available %d.",
				item.ChannelSKU, item.Quantity, product.AvailableQuantity))
		return
	}

	report.AddConfirmed(ref, product.ID, product.AvailableQuantity)
}

// priceDeviationExceeded reports whether |given−catalog|/catalog·100 exceeds
// the threshold. A deviation exactly at the threshold is accepted.
func priceDeviationExceeded(given, catalog, threshold decimal.Decimal) bool {
	if catalog.IsZero() {
		return !given.IsZero()
	}
	deviation := given.Sub(catalog).Abs().Div(catalog).Mul(decimal.NewFromInt(100)).Round(2)
	return deviation.GreaterThan(threshold)
}
