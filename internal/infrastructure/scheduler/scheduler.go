// Package scheduler drives the background loops: the order poll of the
// polling channel and the periodic stock and price pushes.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	appsync "github.com/markethub/backend/internal/application/sync"
)

// OrderPoller runs one order poll cycle.
type OrderPoller interface {
	PollOnce(ctx context.Context) (int, error)
}

// Config holds the loop intervals
type Config struct {
	OrderPollInterval time.Duration
	StockSyncInterval time.Duration
	PriceSyncInterval time.Duration
}

// DefaultConfig returns default scheduling intervals
func DefaultConfig() Config {
	return Config{
		OrderPollInterval: 5 * time.Minute,
		StockSyncInterval: 30 * time.Minute,
		PriceSyncInterval: time.Hour,
	}
}

// Trigger owns the background loops. Loops with a nil dependency or a
// non-positive interval are not started.
type Trigger struct {
	config Config
	poller OrderPoller
	sync   *appsync.Service
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewTrigger creates a trigger over the poller and the sync service
func NewTrigger(config Config, poller OrderPoller, syncService *appsync.Service, logger *zap.Logger) *Trigger {
	return &Trigger{
		config: config,
		poller: poller,
		sync:   syncService,
		logger: logger,
	}
}

// Start starts the background loops
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	if t.poller != nil && t.config.OrderPollInterval > 0 {
		t.wg.Add(1)
		go t.runLoop(ctx, t.config.OrderPollInterval, t.pollOrders)
	}
	if t.sync != nil && t.config.StockSyncInterval > 0 {
		t.wg.Add(1)
		go t.runLoop(ctx, t.config.StockSyncInterval, t.sync.SyncStocks)
	}
	if t.sync != nil && t.config.PriceSyncInterval > 0 {
		t.wg.Add(1)
		go t.runLoop(ctx, t.config.PriceSyncInterval, t.sync.SyncPrices)
	}

	t.logger.Info("Background trigger started",
		zap.Duration("order_poll_interval", t.config.OrderPollInterval),
		zap.Duration("stock_sync_interval", t.config.StockSyncInterval),
		zap.Duration("price_sync_interval", t.config.PriceSyncInterval),
	)

	return nil
}

// Stop stops the background loops
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Background trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop runs one job on a fixed interval until the context ends
func (t *Trigger) runLoop(ctx context.Context, interval time.Duration, job func(ctx context.Context)) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job(ctx)
		}
	}
}

// pollOrders runs one order poll cycle
func (t *Trigger) pollOrders(ctx context.Context) {
	committed, err := t.poller.PollOnce(ctx)
	if err != nil {
		t.logger.Error("order poll failed", zap.Error(err))
		return
	}
	if committed > 0 {
		t.logger.Info("order poll complete", zap.Int("committed", committed))
	}
}
