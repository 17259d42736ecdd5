package worldstat

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/worldstat/internal/metrics"
	"github.com/agentstation/worldstat/pkg/constants"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/logging"
	"github.com/agentstation/worldstat/pkg/sources"
)

// fetch runs every source concurrently and buffers their batches. A source
// whose fetch returned an error contributes no batch and is reported in the
// failure map instead; partial failures stay inside the batch.
func fetch(ctx context.Context, srcs []sources.Source, req sources.Request, m *metrics.Metrics) (map[sources.ID]*sources.Batch, map[sources.ID]error) {
	logger := logging.FromContext(ctx)

	var mu sync.Mutex
	batches := make(map[sources.ID]*sources.Batch, len(srcs))
	failed := make(map[sources.ID]error)

	g := new(errgroup.Group)
	g.SetLimit(constants.MaxConcurrentSources)
	for _, src := range srcs {
		g.Go(func() error {
			id := src.ID()
			logger.Info().Str("source", string(id)).Msg("Fetching")

			start := time.Now()
			batch, err := src.Fetch(ctx, req)
			failures := 0
			if batch != nil {
				failures = len(batch.Failures)
			}
			m.ObserveFetch(string(id), time.Since(start), batch.Len(), failures, err)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn().Err(err).Str("source", string(id)).Msg("Source produced no batch, merging without it")
				failed[id] = errors.WrapResource("fetch", "source", string(id), err)
				return nil
			}
			if batch == nil {
				batch = sources.NewBatch(id)
			}
			logger.Debug().
				Str("source", string(id)).
				Int("observations", batch.Len()).
				Int("failures", failures).
				Int("malformed", batch.Malformed).
				Msg("Buffered source batch")
			batches[id] = batch
			return nil
		})
	}
	// goroutines never return errors; failures are collected per source
	_ = g.Wait()

	return batches, failed
}
