// Package reconciler merges raw observations from several sources into one
// record per canonical country.
//
// Sources are folded in a fixed precedence order derived from the
// Strategy, never in fetch completion order, so the same batches always
// produce the same records regardless of which source finished first.
package reconciler

import (
	"context"
	stderrors "errors"
	"maps"
	"slices"

	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/logging"
	"github.com/agentstation/worldstat/pkg/provenance"
	"github.com/agentstation/worldstat/pkg/series"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Reconciler is the main interface for reconciling data from multiple sources.
type Reconciler interface {
	// Reconcile folds the batches, keyed by source, into country records.
	Reconcile(ctx context.Context, batches map[sources.ID]*sources.Batch) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	opts *options
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{opts: options}, nil
}

// Reconcile performs reconciliation with clean step-by-step flow. Each
// call builds fresh state; nothing carries over between calls.
func (r *reconciler) Reconcile(ctx context.Context, batches map[sources.ID]*sources.Batch) (*Result, error) {
	logger := logging.FromContext(ctx)
	result := NewResult()
	result.Metadata.Strategy = r.opts.strategy
	result.Metadata.Mode = r.opts.mode
	result.Metadata.ReferenceYear = r.opts.referenceYear
	result.Metadata.Horizon = r.opts.horizon

	if err := ctx.Err(); err != nil {
		return nil, stderrors.Join(errors.ErrCanceled, err)
	}

	// Step 1: Resolve and normalize every batch
	in := newCollector(r.opts).collect(batches)
	if len(in.ids) == 0 {
		return nil, errors.ErrNoData
	}
	result.Metadata.Stats = in.stats
	result.Absences = in.absences
	result.Metadata.Sources = r.opts.strategy.FoldOrder("", in.ids)

	logger.Debug().
		Int("sources", len(in.ids)).
		Int("observations", in.stats.Observations).
		Int("rejected", in.stats.Rejected).
		Msg("Collected observations")

	// Step 2: Fold sources in precedence order
	tracker := provenance.NewTracker(r.opts.tracking)
	m := newMerger(r.opts.strategy, tracker)
	points, err := m.fold(ctx, r.opts.indicators.Names(), in, &result.Metadata.Stats)
	if err != nil {
		return nil, stderrors.Join(errors.ErrCanceled, err)
	}

	// Step 3: Build records
	names := m.displayNames(in)
	for _, code := range r.recordCodes(in, points) {
		record := r.build(code, points[code], &result.Metadata.Stats)
		record.Name = r.opts.names.Name(code, names[code])
		result.Records[code] = record
	}

	// Step 4: Completeness filter
	if r.opts.requireComplete {
		result.Excluded = newFilter(r.opts.indicators.Names()).apply(result.Records)
		result.Metadata.Stats.Incomplete = len(result.Excluded)
		for _, code := range result.Excluded {
			logger.Debug().Str("country", string(code)).Msg("Excluded incomplete country")
		}
	}

	if r.opts.tracking {
		result.Provenance = tracker.Map()
	}
	result.Finalize()

	if err := r.opts.strategy.ValidateResult(result); err != nil {
		return nil, err
	}

	logger.Info().
		Int("countries", result.Metadata.Stats.Countries).
		Int("points", result.Metadata.Stats.Points).
		Int("conflicts", result.Metadata.Stats.ConflictsResolved).
		Int("absences", len(result.Absences)).
		Int("excluded", result.Metadata.Stats.Incomplete).
		Str("mode", string(r.opts.mode)).
		Msg("Reconciled")
	return result, nil
}

// recordCodes returns every country that gets a record: those seen in any
// source plus in-scope countries with a fallback.
func (r *reconciler) recordCodes(in *collected, points folded) []countries.Code {
	codes := maps.Clone(in.seen)
	for code := range points {
		codes[code] = struct{}{}
	}
	for code := range r.opts.fallbacks {
		if len(r.opts.countries) == 0 {
			codes[code] = struct{}{}
			continue
		}
		if _, ok := r.opts.countries[code]; ok {
			codes[code] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(codes))
}

// build turns the folded cells of one country into a record.
func (r *reconciler) build(code countries.Code, cells map[indicators.Name]map[int]cell, stats *ResultStatistics) *CountryRecord {
	record := newRecord(code, r.opts.mode)

	for _, name := range r.opts.indicators.Names() {
		years := make(map[int]float64, len(cells[name]))
		for year, c := range cells[name] {
			years[year] = c.value
		}
		s := series.FromYears(years)
		fallback, hasFallback := r.opts.fallbacks.Lookup(code, name)

		if r.opts.mode == ModeSnapshot {
			switch p, ok := s.Crawl(r.opts.referenceYear, r.opts.horizon); {
			case ok:
				record.Latest[name] = series.Measured(p)
			case hasFallback:
				record.Latest[name] = series.Estimated(fallback)
				stats.Estimated++
			default:
				record.Latest[name] = series.NoData()
				stats.NoData++
			}
			continue
		}

		switch {
		case len(s) > 0:
			record.Series[name] = s
		case hasFallback:
			if record.Estimates == nil {
				record.Estimates = make(map[indicators.Name]series.Snapshot)
			}
			record.Estimates[name] = series.Estimated(fallback)
			stats.Estimated++
		}
	}
	return record
}
