// Package worldstat runs the indicator reconciliation pipeline: fetch every
// configured source, merge the observations per country and publish one
// JSON document.
package worldstat

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/agentstation/worldstat/internal/config"
	"github.com/agentstation/worldstat/internal/metrics"
	"github.com/agentstation/worldstat/internal/sources/registry"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Compile-time interface check to ensure proper implementation.
var _ Worldstat = (*client)(nil)

// Worldstat runs reconciliation for one dataset.
type Worldstat interface {
	// Run fetches, merges and publishes once
	Run(ctx context.Context, opts ...RunOption) (*Result, error)

	// Dataset returns the dataset definition in use
	Dataset() *config.Dataset

	// Sources returns the configured source adapters
	Sources() *sources.Sources

	// OnPublished registers a callback for every published document
	OnPublished(PublishedHook)

	// OnSourceFailed registers a callback for sources that produced nothing
	OnSourceFailed(SourceFailedHook)

	Scheduler
}

// client is the default implementation of Worldstat.
type client struct {
	options *options
	dataset *config.Dataset
	sources *sources.Sources
	metrics *metrics.Metrics
	hooks   *hooks
}

// New creates a Worldstat instance. Without WithDataset the built-in
// dataset is used.
func New(opts ...Option) (Worldstat, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	dataset := options.dataset
	if dataset == nil {
		if dataset, err = config.Default(); err != nil {
			return nil, err
		}
	}
	if options.mode != "" {
		copied := *dataset
		copied.Mode = options.mode
		dataset = &copied
	}
	if err := dataset.Validate(); err != nil {
		return nil, errors.NewConfigError("dataset", "invalid definition", err)
	}

	srcs := options.sources
	if srcs == nil {
		srcs, err = registry.Build(dataset.Sources, registry.Env{
			Fs:        options.fs,
			Transport: options.transport,
		})
		if err != nil {
			return nil, errors.NewConfigError("sources", "building adapters", err)
		}
	}

	m := options.metrics
	if m == nil && options.metricsPath != "" {
		m = metrics.New()
	}

	return &client{
		options: options,
		dataset: dataset,
		sources: srcs,
		metrics: m,
		hooks:   newHooks(),
	}, nil
}

// Dataset returns the dataset definition in use.
func (c *client) Dataset() *config.Dataset {
	return c.dataset
}

// Sources returns the configured source adapters.
func (c *client) Sources() *sources.Sources {
	return c.sources
}

// OnPublished registers a callback for every published document.
func (c *client) OnPublished(fn PublishedHook) {
	c.hooks.OnPublished(fn)
}

// OnSourceFailed registers a callback for sources that produced nothing.
func (c *client) OnSourceFailed(fn SourceFailedHook) {
	c.hooks.OnSourceFailed(fn)
}

func newRunID() string {
	return uuid.NewString()
}

// filesystem returns the filesystem documents are written to.
func (c *client) filesystem() afero.Fs {
	if c.options.fs == nil {
		return afero.NewOsFs()
	}
	return c.options.fs
}
