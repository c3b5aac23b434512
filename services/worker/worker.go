// Package worker runs indexed jobs in bounded, paced waves.
package worker

import (
	"context"
	"sync"
	"time"
)

// PlanWaves splits n items into consecutive waves of at most size items
func PlanWaves(n, size int) []int {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = 1
	}
	waves := make([]int, 0, (n+size-1)/size)
	for remaining := n; remaining > 0; remaining -= size {
		waves = append(waves, min(size, remaining))
	}
	return waves
}

// Runner executes jobs wave by wave. Every job of a wave settles before the
// next wave starts, and Pacing is waited between waves.
type Runner struct {
	Size   int
	Pacing time.Duration
	// Sleep waits between waves; nil uses a context-aware timer
	Sleep func(ctx context.Context, d time.Duration) error
	// OnWave is called before each wave starts
	OnWave func(wave, size int)
}

// Run calls fn once for every index in [0, n). It stops launching waves when
// ctx is cancelled and returns the context error; jobs already launched run
// to completion.
func (r Runner) Run(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	start := 0
	for wave, size := range PlanWaves(n, r.Size) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if wave > 0 && r.Pacing > 0 {
			if err := sleep(ctx, r.Pacing); err != nil {
				return err
			}
		}
		if r.OnWave != nil {
			r.OnWave(wave, size)
		}

		var wg sync.WaitGroup
		for i := start; i < start+size; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				fn(ctx, i)
			}(i)
		}
		wg.Wait()
		start += size
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
