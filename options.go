package worldstat

import (
	"time"

	"github.com/spf13/afero"

	"github.com/agentstation/worldstat/internal/config"
	"github.com/agentstation/worldstat/internal/metrics"
	"github.com/agentstation/worldstat/internal/transport"
	"github.com/agentstation/worldstat/pkg/constants"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/reconciler"
	"github.com/agentstation/worldstat/pkg/sources"
)

// options configures a Worldstat instance.
type options struct {
	dataset        *config.Dataset
	mode           reconciler.Mode
	fs             afero.Fs
	outputPath     string
	provenancePath string
	metricsPath    string
	transport      []transport.Option
	sources        *sources.Sources
	metrics        *metrics.Metrics
	now            func() time.Time
}

func defaultOptions() *options {
	return &options{
		outputPath: constants.DefaultDocumentPath,
		now:        time.Now,
	}
}

// Option is a function that configures a Worldstat instance.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithDataset sets the dataset definition.
func WithDataset(dataset *config.Dataset) Option {
	return func(o *options) error {
		if dataset == nil {
			return &errors.ValidationError{Field: "dataset", Message: "cannot be nil"}
		}
		o.dataset = dataset
		return nil
	}
}

// WithMode overrides the dataset's record mode.
func WithMode(mode reconciler.Mode) Option {
	return func(o *options) error {
		switch mode {
		case "", reconciler.ModeHistory, reconciler.ModeSnapshot:
			o.mode = mode
			return nil
		}
		return &errors.ValidationError{Field: "mode", Value: mode, Message: "must be history or snapshot"}
	}
}

// WithFs sets the filesystem for local tables and published files.
func WithFs(fs afero.Fs) Option {
	return func(o *options) error {
		o.fs = fs
		return nil
	}
}

// WithOutputPath sets where the document is published.
func WithOutputPath(path string) Option {
	return func(o *options) error {
		if path == "" {
			return &errors.ValidationError{Field: "output", Message: "cannot be empty"}
		}
		o.outputPath = path
		return nil
	}
}

// WithProvenancePath enables provenance tracking and writes the report
// to path after every publish.
func WithProvenancePath(path string) Option {
	return func(o *options) error {
		o.provenancePath = path
		return nil
	}
}

// WithMetricsPath writes run metrics in text exposition format to path.
func WithMetricsPath(path string) Option {
	return func(o *options) error {
		o.metricsPath = path
		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithTransport sets options for every HTTP client the adapters create.
func WithTransport(opts ...transport.Option) Option {
	return func(o *options) error {
		o.transport = append(o.transport, opts...)
		return nil
	}
}

// WithSources replaces the adapters built from the dataset.
func WithSources(srcs *sources.Sources) Option {
	return func(o *options) error {
		if srcs == nil || srcs.Len() == 0 {
			return &errors.ValidationError{Field: "sources", Message: "at least one source is required"}
		}
		o.sources = srcs
		return nil
	}
}

// WithClock sets the time source; used to pin the reference year.
func WithClock(now func() time.Time) Option {
	return func(o *options) error {
		if now == nil {
			return &errors.ValidationError{Field: "clock", Message: "cannot be nil"}
		}
		o.now = now
		return nil
	}
}

// RunOptions controls a single run.
type RunOptions struct {
	// DryRun merges without publishing anything.
	DryRun bool

	// Timeout bounds the whole run; zero disables it.
	Timeout time.Duration
}

// RunOption configures a single run.
type RunOption func(*RunOptions)

// NewRunOptions returns run options with defaults applied.
func NewRunOptions(opts ...RunOption) *RunOptions {
	o := &RunOptions{Timeout: constants.RunTimeout}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithDryRun merges without publishing.
func WithDryRun(enabled bool) RunOption {
	return func(o *RunOptions) {
		o.DryRun = enabled
	}
}

// WithTimeout bounds the run.
func WithTimeout(d time.Duration) RunOption {
	return func(o *RunOptions) {
		o.Timeout = d
	}
}
