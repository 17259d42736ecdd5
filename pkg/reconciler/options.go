package reconciler

import (
	"fmt"
	"math"
	"time"

	"github.com/agentstation/worldstat/pkg/constants"
	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Mode selects the shape of the merged records.
type Mode string

// String returns the string representation of a mode.
func (m Mode) String() string {
	return string(m)
}

const (
	// ModeHistory keeps the full series per indicator.
	ModeHistory Mode = "history"
	// ModeSnapshot keeps one latest value per indicator.
	ModeSnapshot Mode = "snapshot"
)

// Fallbacks are hand-maintained estimates used only when no valid data
// was found for a (country, indicator).
type Fallbacks map[countries.Code]map[indicators.Name]float64

// Lookup returns the fallback for a pair.
func (f Fallbacks) Lookup(code countries.Code, name indicators.Name) (float64, bool) {
	v, ok := f[code][name]
	return v, ok
}

// options configures a reconciler.
type options struct {
	strategy        Strategy
	indicators      *indicators.Set
	resolver        *countries.Resolver
	names           *countries.Names
	mode            Mode
	referenceYear   int
	horizon         int
	requireComplete bool
	fallbacks       Fallbacks
	countries       map[countries.Code]struct{}
	tracking        bool
}

func defaultOptions() *options {
	return &options{
		strategy:      NewSourceOrderStrategy(nil),
		resolver:      countries.NewResolver(nil, nil),
		names:         countries.NewNames(nil),
		mode:          ModeHistory,
		referenceYear: time.Now().UTC().Year(),
		horizon:       constants.DefaultLookbackYears,
		fallbacks:     Fallbacks{},
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	if options.indicators == nil || options.indicators.Len() == 0 {
		return nil, &errors.ValidationError{
			Field:   "indicators",
			Message: "at least one indicator is required",
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithIndicators sets the configured indicators. Required.
func WithIndicators(set *indicators.Set) Option {
	return func(o *options) error {
		if set == nil {
			return &errors.ValidationError{Field: "indicators", Message: "cannot be nil"}
		}
		o.indicators = set
		return nil
	}
}

// WithStrategy sets the merge strategy.
func WithStrategy(strategy Strategy) Option {
	return func(o *options) error {
		if strategy == nil {
			return &errors.ValidationError{
				Field:   "strategy",
				Message: "cannot be nil",
			}
		}
		o.strategy = strategy
		return nil
	}
}

// WithPriority sets a source order strategy with the given priority list,
// highest authority first.
func WithPriority(priority ...sources.ID) Option {
	return WithStrategy(NewSourceOrderStrategy(priority))
}

// WithResolver sets the country resolver.
func WithResolver(resolver *countries.Resolver) Option {
	return func(o *options) error {
		if resolver == nil {
			return &errors.ValidationError{Field: "resolver", Message: "cannot be nil"}
		}
		o.resolver = resolver
		return nil
	}
}

// WithNames sets the display name lookup.
func WithNames(names *countries.Names) Option {
	return func(o *options) error {
		if names == nil {
			return &errors.ValidationError{Field: "names", Message: "cannot be nil"}
		}
		o.names = names
		return nil
	}
}

// WithMode selects history or snapshot records.
func WithMode(mode Mode) Option {
	return func(o *options) error {
		switch mode {
		case ModeHistory, ModeSnapshot:
			o.mode = mode
			return nil
		}
		return &errors.ValidationError{Field: "mode", Value: mode, Message: "must be history or snapshot"}
	}
}

// WithReferenceYear sets the year snapshot crawls start from.
func WithReferenceYear(year int) Option {
	return func(o *options) error {
		if year <= 0 {
			return &errors.ValidationError{Field: "reference_year", Value: year, Message: "must be positive"}
		}
		o.referenceYear = year
		return nil
	}
}

// WithHorizon sets how many years a snapshot crawl looks back, including
// the reference year. Zero searches the whole history.
func WithHorizon(years int) Option {
	return func(o *options) error {
		if years < 0 {
			return &errors.ValidationError{Field: "horizon", Value: years, Message: "cannot be negative"}
		}
		o.horizon = years
		return nil
	}
}

// WithRequireComplete drops countries missing any configured indicator.
func WithRequireComplete(enabled bool) Option {
	return func(o *options) error {
		o.requireComplete = enabled
		return nil
	}
}

// WithFallbacks sets estimates used when no valid data was found.
func WithFallbacks(fallbacks Fallbacks) Option {
	return func(o *options) error {
		if fallbacks == nil {
			fallbacks = Fallbacks{}
		}
		for code, values := range fallbacks {
			for name, v := range values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return &errors.ValidationError{
						Field:   "fallbacks",
						Value:   v,
						Message: fmt.Sprintf("%s.%s must be finite", code, name),
					}
				}
			}
		}
		o.fallbacks = fallbacks
		return nil
	}
}

// WithCountries restricts output to the given canonical codes. An empty
// list keeps every resolved country.
func WithCountries(codes ...countries.Code) Option {
	return func(o *options) error {
		if len(codes) == 0 {
			o.countries = nil
			return nil
		}
		o.countries = make(map[countries.Code]struct{}, len(codes))
		for _, code := range codes {
			o.countries[code] = struct{}{}
		}
		return nil
	}
}

// WithProvenance enables point-level tracking.
func WithProvenance(enabled bool) Option {
	return func(o *options) error {
		o.tracking = enabled
		return nil
	}
}
