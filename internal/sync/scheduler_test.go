package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingSyncer struct {
	mu     stdsync.Mutex
	calls  int
	opts   []Options
	result Result
}

func (c *countingSyncer) Sync(_ context.Context, opts Options) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.opts = append(c.opts, opts)
	return c.result
}

func (c *countingSyncer) snapshot() (int, []Options) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls, append([]Options(nil), c.opts...)
}

func TestSchedulerFiresWithLookbackWindow(t *testing.T) {
	syncer := &countingSyncer{result: Result{Status: StatusSuccess}}
	scheduler := NewScheduler(syncer, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go scheduler.Start(ctx)

	require.Eventually(t, func() bool {
		calls, _ := syncer.snapshot()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	scheduler.Wait()

	_, opts := syncer.snapshot()
	require.NotEmpty(t, opts)
	first := opts[0]
	require.Equal(t, scheduledBatchLimit, first.Limit)
	require.Nil(t, first.Newest)
	require.NotNil(t, first.Oldest)
	require.WithinDuration(t, time.Now().UTC().Add(-scheduledLookback), *first.Oldest, time.Minute)
}

func TestSchedulerKeepsFiringAfterFailedRuns(t *testing.T) {
	syncer := &countingSyncer{result: Result{Status: StatusError, Message: "upstream down"}}
	scheduler := NewScheduler(syncer, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go scheduler.Start(ctx)

	require.Eventually(t, func() bool {
		calls, _ := syncer.snapshot()
		return calls >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	scheduler.Wait()
}
