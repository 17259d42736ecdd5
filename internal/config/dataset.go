// Package config loads dataset definitions: which countries and indicators
// a run tracks, where each indicator comes from, and how sources rank.
package config

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"

	"github.com/agentstation/worldstat/internal/embedded"
	"github.com/agentstation/worldstat/pkg/constants"
	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/reconciler"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Dataset is a static dataset definition.
type Dataset struct {
	Name      string            `yaml:"name"`
	Mode      reconciler.Mode   `yaml:"mode"`
	Retrieval sources.Retrieval `yaml:"retrieval"`

	// ReferenceYear pins the newest year; zero means the current year.
	ReferenceYear int `yaml:"reference_year,omitempty"`

	// Horizon is the snapshot look-back in years; zero is unlimited.
	Horizon *int `yaml:"horizon,omitempty"`

	WindowYears     int  `yaml:"window_years,omitempty"`
	RequireComplete bool `yaml:"require_complete,omitempty"`

	// Countries is the allow-list; empty keeps every resolved country.
	Countries []string                  `yaml:"countries,omitempty"`
	Names     map[countries.Code]string `yaml:"names,omitempty"`

	// Aliases and Aggregates extend the built-in tables.
	Aliases    map[string]countries.Code `yaml:"aliases,omitempty"`
	Aggregates []string                  `yaml:"aggregates,omitempty"`

	Indicators []indicators.Indicator `yaml:"indicators"`

	// Priority ranks sources, highest authority first.
	Priority          []sources.ID                     `yaml:"priority,omitempty"`
	IndicatorPriority map[indicators.Name][]sources.ID `yaml:"indicator_priority,omitempty"`

	Fallbacks reconciler.Fallbacks `yaml:"fallbacks,omitempty"`

	Sources []sources.Config `yaml:"sources"`
}

// Default returns the built-in dataset.
func Default() (*Dataset, error) {
	data, err := embedded.FS.ReadFile(embedded.DefaultDataset)
	if err != nil {
		return nil, errors.WrapResource("load", "dataset", "default", err)
	}
	return Parse(data, embedded.DefaultDataset)
}

// Load reads a dataset file from fs. An empty path loads the built-in
// dataset.
func Load(fs afero.Fs, path string) (*Dataset, error) {
	if path == "" {
		return Default()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data, path)
}

// Parse decodes and validates a dataset. Unknown fields are rejected.
func Parse(data []byte, file string) (*Dataset, error) {
	var ds Dataset
	if err := yaml.UnmarshalWithOptions(data, &ds, yaml.DisallowUnknownField()); err != nil {
		return nil, errors.WrapParse("yaml", file, err)
	}
	ds.setDefaults()
	if err := ds.Validate(); err != nil {
		return nil, errors.NewConfigError("dataset "+file, "invalid definition", err)
	}
	return &ds, nil
}

func (d *Dataset) setDefaults() {
	if d.Mode == "" {
		d.Mode = reconciler.ModeHistory
	}
	if d.Retrieval == "" {
		d.Retrieval = sources.RetrievalWindow
	}
	if d.WindowYears == 0 {
		d.WindowYears = constants.DefaultWindowYears
	}
	if d.Horizon == nil {
		h := constants.DefaultLookbackYears
		d.Horizon = &h
	}
}

// Validate checks the definition for internal consistency.
func (d *Dataset) Validate() error {
	switch d.Mode {
	case reconciler.ModeHistory, reconciler.ModeSnapshot:
	default:
		return errors.NewValidationError("mode", d.Mode, "must be history or snapshot")
	}
	switch d.Retrieval {
	case sources.RetrievalWindow, sources.RetrievalMostRecent:
	default:
		return errors.NewValidationError("retrieval", d.Retrieval, "must be window or most_recent")
	}
	if d.WindowYears < 0 {
		return errors.NewValidationError("window_years", d.WindowYears, "cannot be negative")
	}
	if d.Horizon != nil && *d.Horizon < 0 {
		return errors.NewValidationError("horizon", *d.Horizon, "cannot be negative")
	}
	if d.ReferenceYear < 0 {
		return errors.NewValidationError("reference_year", d.ReferenceYear, "cannot be negative")
	}

	set, err := d.IndicatorSet()
	if err != nil {
		return err
	}
	if set.Len() == 0 {
		return errors.NewValidationError("indicators", nil, "at least one indicator is required")
	}

	if _, err := d.CountryCodes(); err != nil {
		return err
	}

	if len(d.Sources) == 0 {
		return errors.NewValidationError("sources", nil, "at least one source is required")
	}
	ids := make(map[sources.ID]struct{}, len(d.Sources))
	for _, src := range d.Sources {
		if err := src.Validate(); err != nil {
			return err
		}
		if _, dup := ids[src.ID]; dup {
			return errors.NewValidationError("sources", src.ID, fmt.Sprintf("duplicate source %q", src.ID))
		}
		ids[src.ID] = struct{}{}
		for name := range src.Indicators {
			if _, ok := set.Get(name); !ok {
				return errors.NewValidationError("sources", name, fmt.Sprintf("source %s binds undeclared indicator %q", src.ID, name))
			}
		}
	}

	checkRanked := func(field string, list []sources.ID) error {
		for _, id := range list {
			if _, ok := ids[id]; !ok {
				return errors.NewValidationError(field, id, fmt.Sprintf("unknown source %q", id))
			}
		}
		return nil
	}
	if err := checkRanked("priority", d.Priority); err != nil {
		return err
	}
	for name, list := range d.IndicatorPriority {
		if _, ok := set.Get(name); !ok {
			return errors.NewValidationError("indicator_priority", name, fmt.Sprintf("undeclared indicator %q", name))
		}
		if err := checkRanked("indicator_priority", list); err != nil {
			return err
		}
	}

	resolver := d.Resolver()
	for code, values := range d.Fallbacks {
		canonical, err := resolver.Resolve(string(code))
		if err != nil {
			return errors.NewValidationError("fallbacks", code, err.Error())
		}
		if canonical != code {
			return errors.NewValidationError("fallbacks", code, fmt.Sprintf("use the canonical code %s", canonical))
		}
		for name, v := range values {
			if _, ok := set.Get(name); !ok {
				return errors.NewValidationError("fallbacks", name, fmt.Sprintf("undeclared indicator %q", name))
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValidationError("fallbacks", v, fmt.Sprintf("%s.%s must be finite", code, name))
			}
		}
	}
	return nil
}

// IndicatorSet builds the ordered indicator set.
func (d *Dataset) IndicatorSet() (*indicators.Set, error) {
	return indicators.NewSet(d.Indicators...)
}

// Resolver builds a resolver from the built-in tables extended by the
// dataset's aliases and aggregates.
func (d *Dataset) Resolver() *countries.Resolver {
	aliases := maps.Clone(countries.DefaultAliases)
	maps.Copy(aliases, d.Aliases)
	aggregates := slices.Concat(countries.DefaultAggregates, d.Aggregates)
	return countries.NewResolver(aliases, aggregates)
}

// NameTable builds the display name lookup.
func (d *Dataset) NameTable() *countries.Names {
	return countries.NewNames(d.Names)
}

// CountryCodes resolves the allow-list to canonical codes, sorted and
// without duplicates.
func (d *Dataset) CountryCodes() ([]countries.Code, error) {
	resolver := d.Resolver()
	codes := make([]countries.Code, 0, len(d.Countries))
	for _, raw := range d.Countries {
		code, err := resolver.Resolve(raw)
		if err != nil {
			return nil, errors.NewValidationError("countries", raw, err.Error())
		}
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return slices.Compact(codes), nil
}

// Strategy builds the source order strategy from the priority lists.
func (d *Dataset) Strategy() *reconciler.SourceOrderStrategy {
	strategy := reconciler.NewSourceOrderStrategy(d.Priority)
	for _, name := range slices.Sorted(maps.Keys(d.IndicatorPriority)) {
		strategy.WithIndicatorPriority(name, d.IndicatorPriority[name]...)
	}
	return strategy
}

// Year returns the reference year for a run starting at now.
func (d *Dataset) Year(now time.Time) int {
	if d.ReferenceYear > 0 {
		return d.ReferenceYear
	}
	return now.UTC().Year()
}

// HorizonYears returns the snapshot look-back.
func (d *Dataset) HorizonYears() int {
	if d.Horizon == nil {
		return constants.DefaultLookbackYears
	}
	return *d.Horizon
}

// Request builds the source request for a run with the given reference year.
func (d *Dataset) Request(year int) (sources.Request, error) {
	codes, err := d.CountryCodes()
	if err != nil {
		return sources.Request{}, err
	}
	names := make([]indicators.Name, 0, len(d.Indicators))
	for _, ind := range d.Indicators {
		names = append(names, ind.Name)
	}
	return sources.Request{
		Countries:     codes,
		Indicators:    names,
		Retrieval:     d.Retrieval,
		WindowYears:   d.WindowYears,
		ReferenceYear: year,
	}, nil
}

// ReconcilerOptions translates the dataset into reconciler options.
func (d *Dataset) ReconcilerOptions(year int) ([]reconciler.Option, error) {
	set, err := d.IndicatorSet()
	if err != nil {
		return nil, err
	}
	codes, err := d.CountryCodes()
	if err != nil {
		return nil, err
	}
	return []reconciler.Option{
		reconciler.WithIndicators(set),
		reconciler.WithStrategy(d.Strategy()),
		reconciler.WithResolver(d.Resolver()),
		reconciler.WithNames(d.NameTable()),
		reconciler.WithMode(d.Mode),
		reconciler.WithReferenceYear(year),
		reconciler.WithHorizon(d.HorizonYears()),
		reconciler.WithRequireComplete(d.RequireComplete),
		reconciler.WithFallbacks(d.Fallbacks),
		reconciler.WithCountries(codes...),
	}, nil
}

// SourceNames maps source IDs to their display names.
func (d *Dataset) SourceNames() map[sources.ID]string {
	names := make(map[sources.ID]string, len(d.Sources))
	for _, src := range d.Sources {
		names[src.ID] = src.DisplayName()
	}
	return names
}
