package marketplace

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/channel"
	"github.com/markethub/backend/internal/domain/ingest"
)

// Classification is the verdict on one attempt's response.
type Classification int

const (
	// ClassSuccess stops the retry loop with a successful result
	ClassSuccess Classification = iota
	// ClassRetry schedules another attempt, backoff permitting
	ClassRetry
	// ClassExpectedFailure stops the loop without a notification: the
	// remote rejected the call for a non-actionable reason (already
	// shipped, already cancelled)
	ClassExpectedFailure
)

// Attempt performs one outbound call and returns its decoded response.
type Attempt[T any] func(ctx context.Context) (T, error)

// Classifier judges a response. The channel-specific success predicate lives
// here ("result array non-empty", "success flag == 1").
type Classifier[T any] func(resp T, err error) Classification

// RetryClient executes outbound calls under a bounded retry policy with a
// uniformly random sleep between attempts. Exhaustion is never fatal to the
// caller: the last response is logged verbatim, a notification is emitted,
// and the call site continues.
type RetryClient struct {
	notifier ingest.Notifier
	logger   *zap.Logger
	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration)
	rand  *rand.Rand
}

// NewRetryClient creates a retry client
func NewRetryClient(notifier ingest.Notifier, logger *zap.Logger) *RetryClient {
	return &RetryClient{
		notifier: notifier,
		logger:   logger,
		sleep:    sleepContext,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Execute runs attempt under the policy and returns the last response and
// the number of attempts used. A nil error with a non-success classification
// on the final attempt yields ok == false, not an error: reconciliation
// failures are best-effort and re-triggered by the next observed transition.
func Execute[T any](ctx context.Context, c *RetryClient, policy channel.RetryPolicy, operation string, attempt Attempt[T], classify Classifier[T]) (resp T, attempts int, ok bool) {
	var lastErr error
	for attempts = 1; attempts <= policy.MaxAttempts; attempts++ {
		resp, lastErr = attempt(ctx)
		switch classify(resp, lastErr) {
		case ClassSuccess:
			return resp, attempts, true
		case ClassExpectedFailure:
			c.logger.Info("outbound call rejected with expected error",
				zap.String("operation", operation),
				zap.Int("attempt", attempts),
				zap.Error(lastErr),
			)
			return resp, attempts, false
		}

		if attempts < policy.MaxAttempts {
			c.sleep(ctx, c.backoff(policy))
		}
		if ctx.Err() != nil {
			break
		}
	}
	if attempts > policy.MaxAttempts {
		attempts = policy.MaxAttempts
	}

	// Log the last response verbatim for forensic replay.
	c.logger.Error("outbound call attempts exhausted",
		zap.String("operation", operation),
		zap.Int("attempts", attempts),
		zap.Any("last_response", resp),
		zap.Error(lastErr),
	)
	detail := fmt.Sprintf("%s: %d attempts exhausted", operation, attempts)
	if lastErr != nil {
		detail += ": " + lastErr.Error()
	}
	c.notifier.Notify(operation, ingest.SeverityError, detail)
	return resp, attempts, false
}

// backoff picks a uniformly random duration within the policy's range.
func (c *RetryClient) backoff(policy channel.RetryPolicy) time.Duration {
	if policy.BackoffMax <= policy.BackoffMin {
		return policy.BackoffMin
	}
	return policy.BackoffMin + time.Duration(c.rand.Int63n(int64(policy.BackoffMax-policy.BackoffMin)))
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
