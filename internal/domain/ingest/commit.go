package ingest

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
)

// CommitConfig carries the store-level constants of the commit sequence.
type CommitConfig struct {
	Currency string
	Site     string
	// DefaultBuyerIDs is the per-channel fallback buyer used when buyer
	// creation fails; a missing buyer is not fatal to a commit
	DefaultBuyerIDs map[channel.Code]int64
}

// CommitSequence builds and persists the canonical order as one linear
// sequence: buyer, basket, properties, location, delivery, payment,
// finalize. Promotional coupon consumption is suppressed for the whole
// sequence and re-enabled exactly once on every exit path.
type CommitSequence struct {
	store     OrderStore
	buyers    BuyerResolver
	coupons   CouponSuppressor
	locations LocationResolver
	notifier  Notifier
	cfg       CommitConfig
	logger    *zap.Logger
}

// NewCommitSequence creates a commit sequence. locations may be nil when no
// geographic normalization is configured.
func NewCommitSequence(
	store OrderStore,
	buyers BuyerResolver,
	coupons CouponSuppressor,
	locations LocationResolver,
	notifier Notifier,
	cfg CommitConfig,
	logger *zap.Logger,
) *CommitSequence {
	return &CommitSequence{
		store:     store,
		buyers:    buyers,
		coupons:   coupons,
		locations: locations,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
	}
}

// Commit persists the confirmed part of a validated draft. Any failure
// before finalize aborts the sequence with InternalOrderID zero; the coupon
// suppression release runs on every path.
func (s *CommitSequence) Commit(ctx context.Context, draft *channel.OrderDraft, report *channel.ValidationReport) channel.CommitResult {
	release, err := s.coupons.Acquire(ctx)
	if err != nil {
		return channel.CommitResult{ErrorMessage: "coupon suppression unavailable: " + err.Error()}
	}
	defer release()

	confirmed := s.confirmedItems(draft, report)
	if len(confirmed) == 0 {
		return channel.CommitResult{ErrorMessage: "no confirmed line items"}
	}

	buyerID := s.resolveBuyer(ctx, draft)

	handle, err := s.store.Create(ctx, buyerID, s.cfg.Currency, s.cfg.Site)
	if err != nil {
		s.notifier.Notify("order-create", SeverityError,
			draft.ExternalOrderID+": "+err.Error())
		return channel.CommitResult{ErrorMessage: err.Error()}
	}

	markingIDs, err := s.buildBasket(ctx, handle, draft, confirmed)
	if err != nil {
		s.notifier.Notify("basket-create", SeverityError,
			draft.ExternalOrderID+": "+err.Error())
		return channel.CommitResult{ErrorMessage: err.Error()}
	}

	s.setProperties(ctx, handle, draft, confirmed, markingIDs)
	s.resolveLocation(ctx, handle, draft)

	if err := s.attachDelivery(ctx, handle, draft, confirmed); err != nil {
		return channel.CommitResult{ErrorMessage: err.Error()}
	}
	if err := s.attachPayment(ctx, handle, draft, confirmed, buyerID); err != nil {
		return channel.CommitResult{ErrorMessage: err.Error()}
	}

	orderID, storeErrors, warnings, err := handle.Finalize(ctx)
	if err != nil {
		storeErrors = append(storeErrors, err.Error())
	}
	if orderID == 0 {
		return channel.CommitResult{
			ErrorMessage: strings.Join(dedupe(storeErrors), " "),
			Warnings:     dedupe(warnings),
		}
	}

	s.logger.Info("order committed",
		zap.String("channel", draft.Channel.String()),
		zap.String("external_order_id", draft.ExternalOrderID),
		zap.Int64("order_id", orderID),
	)
	return channel.CommitResult{InternalOrderID: orderID, Warnings: dedupe(warnings)}
}

// confirmedItems returns the draft line items that passed validation, in
// input order.
func (s *CommitSequence) confirmedItems(draft *channel.OrderDraft, report *channel.ValidationReport) []channel.LineItem {
	var items []channel.LineItem
	for _, li := range draft.LineItems {
		if outcome, ok := report.Outcome(li.Ref()); ok && outcome.Status == channel.ValidationConfirmed {
			li.InternalProductID = outcome.InternalProductID
			items = append(items, li)
		}
	}
	return items
}

// resolveBuyer resolves or creates the buyer record, falling back to the
// channel's default buyer id when creation fails.
func (s *CommitSequence) resolveBuyer(ctx context.Context, draft *channel.OrderDraft) int64 {
	login := SynthesizeLogin(draft)
	email := draft.Buyer.Email
	if email == "" {
		email = SynthesizeEmail(login, draft.Channel)
	}

	buyerID, err := s.buyers.ResolveOrCreate(ctx, login, email, draft.Buyer)
	if err != nil || buyerID == 0 {
		fallback := s.cfg.DefaultBuyerIDs[draft.Channel]
		detail := draft.ExternalOrderID + ": login " + login
		if err != nil {
			detail += ": " + err.Error()
		}
		s.notifier.Notify("user-create", SeverityError, detail)
		return fallback
	}
	return buyerID
}

// buildBasket attaches the confirmed line items and returns the internal ids
// of the ones requiring regulatory marking.
func (s *CommitSequence) buildBasket(ctx context.Context, handle OrderHandle, draft *channel.OrderDraft, confirmed []channel.LineItem) ([]int64, error) {
	var markingIDs []int64
	for _, li := range confirmed {
		requiresMarking := draft.RequiresMarking(li.ChannelSKU)
		if requiresMarking {
			markingIDs = append(markingIDs, li.InternalProductID)
		}
		line := BasketLine{
			ProductID:       li.InternalProductID,
			Quantity:        li.Quantity,
			UnitPrice:       li.UnitPrice,
			Currency:        s.cfg.Currency,
			RequiresMarking: requiresMarking,
		}
		if err := handle.AttachBasketLine(ctx, line); err != nil {
			return nil, err
		}
	}
	return markingIDs, nil
}

// setProperties attaches the best-effort order annotations. Empty values are
// skipped; individual write failures are logged only.
func (s *CommitSequence) setProperties(ctx context.Context, handle OrderHandle, draft *channel.OrderDraft, confirmed []channel.LineItem, markingIDs []int64) {
	identity, err := channel.IdentityOf(draft.Channel)
	if err != nil {
		return
	}

	props := map[string]string{
		identity.OrderIDProperty:        draft.ExternalOrderID,
		"BUYER_NAME":                    draft.Buyer.Name,
		"CITY":                          draft.ShippingAddress.City,
		"REGION":                        draft.ShippingAddress.Region,
		channel.PropertyMarkingProducts: joinIDs(markingIDs),
		channel.PropertyItemIndexes:     encodeItemIndexes(confirmed),
	}
	for key, value := range props {
		if value == "" {
			continue
		}
		if err := handle.SetProperty(ctx, key, value); err != nil {
			s.logger.Warn("order property write failed",
				zap.String("property", key),
				zap.String("external_order_id", draft.ExternalOrderID),
				zap.Error(err),
			)
		}
	}
}

// resolveLocation performs the optional geographic normalization. Failures
// are reported, never fatal.
func (s *CommitSequence) resolveLocation(ctx context.Context, handle OrderHandle, draft *channel.OrderDraft) {
	if s.locations == nil {
		return
	}
	code, err := s.locations.Resolve(ctx, draft.ShippingAddress)
	if err != nil {
		s.notifier.Notify("location-code", SeverityError,
			draft.ExternalOrderID+": "+draft.ShippingAddress.City+": "+err.Error())
		return
	}
	if code == "" {
		return
	}
	if err := handle.SetProperty(ctx, "LOCATION_CODE", code); err != nil {
		s.logger.Warn("location property write failed",
			zap.String("external_order_id", draft.ExternalOrderID), zap.Error(err))
	}
}

func (s *CommitSequence) attachDelivery(ctx context.Context, handle OrderHandle, draft *channel.OrderDraft, confirmed []channel.LineItem) error {
	identity, err := channel.IdentityOf(draft.Channel)
	if err != nil {
		return err
	}
	return handle.AttachDelivery(ctx, DeliveryLine{
		MethodID:      identity.DeliveryID,
		Cost:          draft.DeclaredDeliveryCost,
		AllowDelivery: true,
	})
}

func (s *CommitSequence) attachPayment(ctx context.Context, handle OrderHandle, draft *channel.OrderDraft, confirmed []channel.LineItem, buyerID int64) error {
	identity, err := channel.IdentityOf(draft.Channel)
	if err != nil {
		return err
	}
	sum := decimal.Zero
	for _, li := range confirmed {
		sum = sum.Add(li.LineTotal())
	}
	sum = sum.Add(draft.DeclaredDeliveryCost)
	return handle.AttachPayment(ctx, PaymentLine{
		MethodID: identity.PaymentID,
		Sum:      sum,
		Currency: s.cfg.Currency,
		Paid:     true,
		PayerID:  buyerID,
	})
}

func joinIDs(ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// encodeItemIndexes serializes the item index → internal product id map
// consumed by the packing request.
func encodeItemIndexes(confirmed []channel.LineItem) string {
	indexes := make(map[string]int64, len(confirmed))
	for _, li := range confirmed {
		indexes[strconv.Itoa(li.ItemIndex)] = li.InternalProductID
	}
	raw, err := json.Marshal(indexes)
	if err != nil {
		return ""
	}
	return string(raw)
}

// dedupe removes duplicate messages preserving first occurrence order.
func dedupe(messages []string) []string {
	seen := make(map[string]struct{}, len(messages))
	var out []string
	for _, m := range messages {
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
