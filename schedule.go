package worldstat

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/logging"
)

// Scheduler repeats runs on a fixed interval.
type Scheduler interface {
	// Schedule runs immediately and then once per interval until ctx is done
	Schedule(ctx context.Context, interval time.Duration, opts ...RunOption) error
}

// Schedule runs immediately and then once per interval until ctx is done.
// A failed run is logged and the schedule continues; the next tick starts
// a fresh run with its own RunID.
func (c *client) Schedule(ctx context.Context, interval time.Duration, opts ...RunOption) error {
	if interval <= 0 {
		return &errors.ValidationError{
			Field:   "interval",
			Value:   interval,
			Message: "schedule interval must be positive",
		}
	}
	logger := logging.FromContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := c.Run(ctx, opts...); err != nil {
			if stderrors.Is(err, context.Canceled) || errors.IsCanceled(err) {
				return nil
			}
			logger.Error().Err(err).Msg("Scheduled run failed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}
