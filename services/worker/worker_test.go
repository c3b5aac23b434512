package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanWaves(t *testing.T) {
	assert.Equal(t, []int{4, 4, 2}, PlanWaves(10, 4))
	assert.Equal(t, []int{3}, PlanWaves(3, 8))
	assert.Equal(t, []int{1, 1}, PlanWaves(2, 0))
	assert.Nil(t, PlanWaves(0, 4))
}

func TestRunnerWavesSettleBeforeNext(t *testing.T) {
	var (
		mu       sync.Mutex
		waves    []int
		inFlight int32
		peak     int32
		sleeps   []time.Duration
		seen     = make([]int32, 10)
	)
	r := Runner{
		Size:   4,
		Pacing: time.Second,
		Sleep: func(_ context.Context, d time.Duration) error {
			mu.Lock()
			sleeps = append(sleeps, d)
			mu.Unlock()
			// the previous wave must be fully settled
			assert.Equal(t, int32(0), atomic.LoadInt32(&inFlight))
			return nil
		},
		OnWave: func(_, size int) {
			mu.Lock()
			waves = append(waves, size)
			mu.Unlock()
		},
	}

	err := r.Run(context.Background(), 10, func(_ context.Context, i int) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&seen[i], 1)
		atomic.AddInt32(&inFlight, -1)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{4, 4, 2}, waves)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, sleeps)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
	for i := range seen {
		assert.Equal(t, int32(1), seen[i], "index %d", i)
	}
}

func TestRunnerStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ran int32
	err := Runner{Size: 2, Pacing: time.Hour}.Run(ctx, 6, func(_ context.Context, _ int) {
		if atomic.AddInt32(&ran, 1) == 2 {
			cancel()
		}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(2), atomic.LoadInt32(&ran))
}
