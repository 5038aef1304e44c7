package ingest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
)

// lookupEpoch bounds the historical window of the duplicate lookup; orders
// older than this predate every channel integration.
var lookupEpoch = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)

// Errors for the idempotency guard
var (
	ErrDuplicateOrder = errors.New("ingest: external order id already committed")
)

// IdempotencyGuard checks whether an external order id has already been
// committed for a channel. Lookups go to the optional cache first, then to
// the store, bounded to the epoch→now window.
type IdempotencyGuard struct {
	store OrderStore
	cache IdempotencyCache
	// blockEmptyID, when set for a channel, treats an empty external id
	// as "already exists" and blocks the draft. The default is permissive:
	// the polling channel may legitimately omit the id on malformed
	// records, and losing those orders is worse than a rare duplicate.
	blockEmptyID map[channel.Code]bool
	logger       *zap.Logger
}

// NewIdempotencyGuard creates a guard over the store with an optional cache
// (nil disables the fast path).
func NewIdempotencyGuard(store OrderStore, cache IdempotencyCache, blockEmptyID map[channel.Code]bool, logger *zap.Logger) *IdempotencyGuard {
	if blockEmptyID == nil {
		blockEmptyID = make(map[channel.Code]bool)
	}
	return &IdempotencyGuard{
		store:        store,
		cache:        cache,
		blockEmptyID: blockEmptyID,
		logger:       logger,
	}
}

// Exists reports whether an order with the given external id was already
// committed for the channel, returning its internal id when found. On lookup
// infrastructure failure the guard fails open: losing an order is worse than
// a rare manual duplicate cleanup.
func (g *IdempotencyGuard) Exists(ctx context.Context, ch channel.Code, externalOrderID string) (bool, int64) {
	if externalOrderID == "" {
		return g.blockEmptyID[ch], 0
	}

	if g.cache != nil {
		seen, err := g.cache.Seen(ctx, ch, externalOrderID)
		if err == nil && seen {
			ids := g.lookupStore(ctx, ch, externalOrderID)
			if len(ids) > 0 {
				return true, ids[0]
			}
			// stale cache entry, fall through to the store verdict
		}
	}

	ids := g.lookupStore(ctx, ch, externalOrderID)
	if len(ids) == 0 {
		return false, 0
	}
	return true, ids[0]
}

// Remember records a committed external order id in the cache, when one is
// configured.
func (g *IdempotencyGuard) Remember(ctx context.Context, ch channel.Code, externalOrderID string) {
	if g.cache == nil || externalOrderID == "" {
		return
	}
	if err := g.cache.Remember(ctx, ch, externalOrderID); err != nil {
		g.logger.Warn("idempotency cache remember failed",
			zap.String("channel", ch.String()),
			zap.String("external_order_id", externalOrderID),
			zap.Error(err),
		)
	}
}

func (g *IdempotencyGuard) lookupStore(ctx context.Context, ch channel.Code, externalOrderID string) []int64 {
	identity, err := channel.IdentityOf(ch)
	if err != nil {
		g.logger.Error("idempotency lookup for unknown channel", zap.String("channel", ch.String()))
		return nil
	}

	ids, err := g.store.FindByProperty(ctx, identity.OrderIDProperty, externalOrderID, lookupEpoch, time.Now())
	if err != nil {
		// Fail open: treat as "does not exist" rather than drop the order.
		g.logger.Error("idempotency store lookup failed, failing open",
			zap.String("channel", ch.String()),
			zap.String("external_order_id", externalOrderID),
			zap.Error(err),
		)
		return nil
	}
	return ids
}
