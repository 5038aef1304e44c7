package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type countingPoller struct {
	calls atomic.Int32
}

func (p *countingPoller) PollOnce(ctx context.Context) (int, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestTrigger_StartStop(t *testing.T) {
	poller := &countingPoller{}
	trigger := NewTrigger(Config{
		OrderPollInterval: 10 * time.Millisecond,
	}, poller, nil, zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, trigger.Start(ctx))

	// Start is idempotent
	require.NoError(t, trigger.Start(ctx))

	assert.Eventually(t, func() bool {
		return poller.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, trigger.Stop(ctx))

	// Stop is idempotent
	require.NoError(t, trigger.Stop(ctx))

	// No further polls after stop
	settled := poller.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, poller.calls.Load())
}

func TestTrigger_NoLoopsWithoutDependencies(t *testing.T) {
	trigger := NewTrigger(DefaultConfig(), nil, nil, zaptest.NewLogger(t))

	ctx := context.Background()
	require.NoError(t, trigger.Start(ctx))
	require.NoError(t, trigger.Stop(ctx))
}

func TestTrigger_StopCancelledContext(t *testing.T) {
	poller := &countingPoller{}
	trigger := NewTrigger(Config{OrderPollInterval: time.Hour}, poller, nil, zaptest.NewLogger(t))

	require.NoError(t, trigger.Start(context.Background()))

	// The loop exits promptly, so even a short deadline suffices
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, trigger.Stop(ctx))
}
