package persistence

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/ingest"
)

// MutexCouponSuppressor implements ingest.CouponSuppressor as a process-wide
// suppression flag guarded by a mutex. Serializes concurrent commits, which
// matches the one-order-at-a-time ingestion model; the flag itself is what
// the basket pricing layer consults to skip promotional coupons.
type MutexCouponSuppressor struct {
	mu         sync.Mutex
	suppressed bool
	logger     *zap.Logger
}

// Interface assertion
var _ ingest.CouponSuppressor = (*MutexCouponSuppressor)(nil)

// NewMutexCouponSuppressor creates a new MutexCouponSuppressor
func NewMutexCouponSuppressor(logger *zap.Logger) *MutexCouponSuppressor {
	return &MutexCouponSuppressor{logger: logger}
}

// Acquire enables coupon suppression and returns its release. The release
// is idempotent: the commit sequence guarantees exactly one call, but a
// double call must not re-release another commit's hold.
func (s *MutexCouponSuppressor) Acquire(ctx context.Context) (func(), error) {
	s.mu.Lock()
	s.suppressed = true

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.suppressed = false
			s.mu.Unlock()
		})
	}
	return release, nil
}

// Suppressed reports whether coupon consumption is currently suppressed.
// The basket pricing layer consults this during commits.
func (s *MutexCouponSuppressor) Suppressed() bool {
	return s.suppressed
}
