package extractor

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"sjsage522/metaworker/internal/adapter"
	"sjsage522/metaworker/internal/model"
	"sjsage522/metaworker/internal/normalize"
	"sjsage522/metaworker/services/worker"
)

// ExtractBatch runs ExtractSingle over items in waves of MaxConcurrency,
// pausing between waves. Results keep the input order. Items never started
// because ctx ended come back as error records.
func (e *Engine) ExtractBatch(ctx context.Context, items []model.Item, opts model.Options) []model.ExtractionRecord {
	results := make([]model.ExtractionRecord, len(items))
	if len(items) == 0 {
		return results
	}

	size := opts.MaxConcurrency
	if size <= 0 {
		size = e.defaults.MaxConcurrency
	}
	pacing := opts.Pacing
	if pacing == 0 {
		pacing = e.defaults.Pacing
	}
	if pacing < 0 {
		pacing = 0
	}

	batchID := uuid.NewString()
	log := e.log.WithField("batch", batchID)
	log.Info().Int("items", len(items)).Int("concurrency", size).Msg("Batch started")

	var (
		mu      sync.Mutex
		current int
		done    = make([]bool, len(items))
	)
	runner := worker.Runner{
		Size:   size,
		Pacing: pacing,
		Sleep:  e.sleep,
		OnWave: func(wave, n int) {
			log.Debug().Int("wave", wave).Int("size", n).Msg("Batch wave")
		},
	}
	err := runner.Run(ctx, len(items), func(ctx context.Context, i int) {
		rec := e.ExtractSingle(ctx, items[i], opts)

		mu.Lock()
		defer mu.Unlock()
		results[i] = rec
		done[i] = true
		current++
		if opts.OnProgress != nil {
			opts.OnProgress(model.Progress{
				Current: current,
				Total:   len(items),
				Status:  rec.ExtractionStatus,
				ItemID:  items[i].ID,
			})
		}
	})

	if err != nil {
		log.Warn().Err(err).Int("completed", current).Msg("Batch interrupted")
		for i, ok := range done {
			if !ok {
				results[i] = cancelled(items[i], err, e.now().UnixMilli())
			}
		}
	}
	log.Info().Int("completed", current).Msg("Batch finished")
	return results
}

func cancelled(item model.Item, err error, at int64) model.ExtractionRecord {
	rec := normalize.Empty()
	rec.ID = item.ID
	rec.Title = item.Title
	rec.OriginURL = item.URL
	rec.DetailURL = item.URL
	rec.SourceID = adapter.GenericSourceID
	rec.ExtractionStatus = model.StatusError
	rec.Error = "batch cancelled: " + err.Error()
	rec.ExtractedAtMs = at
	return rec
}
