package worldstat

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/agentstation/worldstat/pkg/document"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/logging"
	"github.com/agentstation/worldstat/pkg/provenance"
	"github.com/agentstation/worldstat/pkg/reconciler"
)

// Run fetches every source, merges the batches and publishes the document.
// Sources that fail are left out of the merge. When no source produced a
// batch the run returns ErrNoData and the previous document is untouched.
func (c *client) Run(ctx context.Context, opts ...RunOption) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	options := NewRunOptions(opts...)

	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {}
	}
	defer cancel()

	start := c.options.now()
	result := &Result{RunID: newRunID(), Path: c.options.outputPath}
	ctx = logging.WithRunID(ctx, result.RunID)
	logger := logging.FromContext(ctx)

	// finish records run metrics whatever the outcome
	finish := func(published time.Time) {
		result.Duration = c.options.now().Sub(start)
		c.metrics.ObserveRun(result.Duration, published)
		if err := c.metrics.WriteTextfile(c.options.metricsPath); err != nil {
			logger.Warn().Err(err).Str("path", c.options.metricsPath).Msg("Could not write metrics")
		}
	}

	// Step 1: build the request for this run's reference year
	year := c.dataset.Year(start)
	req, err := c.dataset.Request(year)
	if err != nil {
		return nil, err
	}

	// Step 2: fetch all sources concurrently
	batches, failed := fetch(ctx, c.sources.List(), req, c.metrics)
	result.SourceErrors = failed
	for _, id := range result.FailedSources() {
		c.hooks.triggerSourceFailed(id, failed[id])
	}

	// Step 3: reconcile
	reconcilerOpts, err := c.dataset.ReconcilerOptions(year)
	if err != nil {
		return nil, err
	}
	reconcilerOpts = append(reconcilerOpts, reconciler.WithProvenance(c.options.provenancePath != ""))
	rec, err := reconciler.New(reconcilerOpts...)
	if err != nil {
		return nil, err
	}
	reconciled, err := rec.Reconcile(ctx, batches)
	if err != nil {
		finish(time.Time{})
		if stderrors.Is(err, errors.ErrNoData) {
			logger.Error().Int("failed_sources", len(failed)).Msg("No source produced data, keeping the previous document")
		}
		return result, err
	}
	result.Reconciled = reconciled
	c.metrics.ObserveResult(reconciled.Metadata.Stats)

	// Step 4: assemble
	result.Document = document.Assemble(reconciled, document.Meta{
		RunID:       result.RunID,
		Indicators:  c.dataset.Indicators,
		SourceNames: c.dataset.SourceNames(),
		Now:         start,
	})

	if options.DryRun {
		logger.Info().Bool("dry_run", true).Int("countries", result.Document.Metadata.CountryCount).Msg("Dry run completed, nothing published")
		finish(time.Time{})
		return result, nil
	}

	// Step 5: publish atomically
	fs := c.filesystem()
	if err := document.Publish(fs, c.options.outputPath, result.Document); err != nil {
		finish(time.Time{})
		return result, err
	}
	result.Published = true
	published := c.options.now()

	// Step 6: provenance report
	if path := c.options.provenancePath; path != "" {
		file := &provenance.File{RunID: result.RunID, Report: provenance.GenerateReport(reconciled.Provenance)}
		if err := provenance.Save(fs, path, file); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Could not write provenance report")
		} else {
			result.Provenance = path
		}
	}

	c.hooks.triggerPublished(result.Document, c.options.outputPath)
	finish(published)

	logger.Info().
		Str("path", c.options.outputPath).
		Int("countries", result.Document.Metadata.CountryCount).
		Int("failed_sources", len(failed)).
		Dur("duration", result.Duration).
		Msg("Published document")
	return result, nil
}
