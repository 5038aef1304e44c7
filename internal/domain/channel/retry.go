package channel

import "time"

// RetryPolicy bounds an outbound call: attempts and the randomized sleep
// range between them. Immutable, one instance per call site.
type RetryPolicy struct {
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// Predefined policies. Attempt counts and sleep ranges differ per call site:
// shipping is cheap to re-trigger from the next status event, catalog sync
// batches are not.
var (
	ShipRetryPolicy    = RetryPolicy{MaxAttempts: 3, BackoffMin: 1 * time.Second, BackoffMax: 4 * time.Second}
	ConfirmRetryPolicy = RetryPolicy{MaxAttempts: 5, BackoffMin: 1 * time.Second, BackoffMax: 4 * time.Second}
	RejectRetryPolicy  = RetryPolicy{MaxAttempts: 5, BackoffMin: 1 * time.Second, BackoffMax: 4 * time.Second}
	StockRetryPolicy   = RetryPolicy{MaxAttempts: 30, BackoffMin: 1 * time.Second, BackoffMax: 3 * time.Second}
	PriceRetryPolicy   = RetryPolicy{MaxAttempts: 20, BackoffMin: 1 * time.Second, BackoffMax: 3 * time.Second}
)

// Valid reports whether the policy can execute at least one attempt with a
// sane sleep range.
func (p RetryPolicy) Valid() bool {
	return p.MaxAttempts >= 1 && p.BackoffMin >= 0 && p.BackoffMax >= p.BackoffMin
}
