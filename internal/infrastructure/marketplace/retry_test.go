package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
)

type retryNotifier struct {
	events []string
}

func (n *retryNotifier) Notify(code string, severity ingest.Severity, detail string) {
	n.events = append(n.events, code)
}

func newTestRetryClient(t *testing.T, notifier ingest.Notifier) (*RetryClient, *int) {
	c := NewRetryClient(notifier, zaptest.NewLogger(t))
	slept := 0
	c.sleep = func(ctx context.Context, d time.Duration) { slept++ }
	return c, &slept
}

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	notifier := &retryNotifier{}
	c, slept := newTestRetryClient(t, notifier)

	resp, attempts, ok := Execute(context.Background(), c, channel.ShipRetryPolicy, "ozon-ship",
		func(ctx context.Context) (string, error) { return "done", nil },
		func(resp string, err error) Classification { return ClassSuccess },
	)

	assert.True(t, ok)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, "done", resp)
	assert.Zero(t, *slept)
	assert.Empty(t, notifier.events)
}

func TestExecute_SuccessOnSecondAttempt(t *testing.T) {
	notifier := &retryNotifier{}
	c, slept := newTestRetryClient(t, notifier)

	calls := 0
	_, attempts, ok := Execute(context.Background(), c, channel.ShipRetryPolicy, "ozon-ship",
		func(ctx context.Context) (string, error) {
			calls++
			if calls < 2 {
				return "", errors.New("503")
			}
			return "done", nil
		},
		func(resp string, err error) Classification {
			if err != nil {
				return ClassRetry
			}
			return ClassSuccess
		},
	)

	assert.True(t, ok)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, *slept)
	assert.Empty(t, notifier.events)
}

func TestExecute_ExhaustionNotifies(t *testing.T) {
	notifier := &retryNotifier{}
	c, slept := newTestRetryClient(t, notifier)

	calls := 0
	_, attempts, ok := Execute(context.Background(), c, channel.ShipRetryPolicy, "ozon-ship",
		func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("503")
		},
		func(resp string, err error) Classification { return ClassRetry },
	)

	assert.False(t, ok)
	assert.Equal(t, channel.ShipRetryPolicy.MaxAttempts, attempts)
	assert.Equal(t, channel.ShipRetryPolicy.MaxAttempts, calls)
	// no sleep after the last attempt
	assert.Equal(t, channel.ShipRetryPolicy.MaxAttempts-1, *slept)
	assert.Equal(t, []string{"ozon-ship"}, notifier.events)
}

func TestExecute_ExpectedFailureStopsQuietly(t *testing.T) {
	notifier := &retryNotifier{}
	c, _ := newTestRetryClient(t, notifier)

	_, attempts, ok := Execute(context.Background(), c, channel.ShipRetryPolicy, "ozon-ship",
		func(ctx context.Context) (string, error) { return "", errors.New("POSTING_ALREADY_SHIPPED") },
		func(resp string, err error) Classification { return ClassExpectedFailure },
	)

	assert.False(t, ok)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, notifier.events)
}

func TestExecute_ContextCancellationStopsRetrying(t *testing.T) {
	notifier := &retryNotifier{}
	c, _ := newTestRetryClient(t, notifier)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, _, ok := Execute(ctx, c, channel.StockRetryPolicy, "ozon-stock",
		func(ctx context.Context) (string, error) {
			calls++
			cancel()
			return "", errors.New("503")
		},
		func(resp string, err error) Classification { return ClassRetry },
	)

	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestRetryClient_Backoff(t *testing.T) {
	c := NewRetryClient(&retryNotifier{}, zaptest.NewLogger(t))

	policy := channel.RetryPolicy{MaxAttempts: 3, BackoffMin: time.Second, BackoffMax: 4 * time.Second}
	for i := 0; i < 100; i++ {
		d := c.backoff(policy)
		assert.GreaterOrEqual(t, d, policy.BackoffMin)
		assert.Less(t, d, policy.BackoffMax)
	}

	degenerate := channel.RetryPolicy{MaxAttempts: 3, BackoffMin: time.Second, BackoffMax: time.Second}
	assert.Equal(t, time.Second, c.backoff(degenerate))
}
