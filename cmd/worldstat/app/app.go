// Package app provides the application context and dependency management
// for the worldstat CLI.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/agentstation/worldstat"
	"github.com/agentstation/worldstat/internal/config"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/reconciler"
)

// App represents the worldstat application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	fs     afero.Fs

	// extra options appended to every Worldstat instance
	extra []worldstat.Option

	// Worldstat instance (lazy-initialized, singleton)
	mu        sync.RWMutex
	worldstat worldstat.Worldstat
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		fs:      afero.NewOsFs(),
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Dataset loads the configured dataset, or the built-in one.
func (a *App) Dataset() (*config.Dataset, error) {
	return config.Load(a.fs, a.config.Dataset)
}

// Worldstat returns the worldstat instance, creating it lazily if needed.
func (a *App) Worldstat() (worldstat.Worldstat, error) {
	a.mu.RLock()
	if a.worldstat != nil {
		ws := a.worldstat
		a.mu.RUnlock()
		return ws, nil
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()

	// Double-check after acquiring write lock
	if a.worldstat != nil {
		return a.worldstat, nil
	}

	opts, err := a.buildOptions()
	if err != nil {
		return nil, err
	}
	ws, err := worldstat.New(opts...)
	if err != nil {
		return nil, errors.WrapResource("create", "worldstat", "", err)
	}

	a.worldstat = ws
	return ws, nil
}

// Shutdown performs graceful shutdown of the application. Scheduled runs
// stop with the command context, so there is nothing left to release.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Debug().Msg("Shutting down")
	return nil
}

// buildOptions constructs worldstat options from the app configuration.
func (a *App) buildOptions() ([]worldstat.Option, error) {
	dataset, err := a.Dataset()
	if err != nil {
		return nil, err
	}

	opts := []worldstat.Option{
		worldstat.WithDataset(dataset),
		worldstat.WithFs(a.fs),
		worldstat.WithMode(reconciler.Mode(a.config.Mode)),
	}
	if a.config.Output != "" {
		opts = append(opts, worldstat.WithOutputPath(a.config.Output))
	}
	if a.config.Provenance != "" {
		opts = append(opts, worldstat.WithProvenancePath(a.config.Provenance))
	}
	if a.config.Metrics != "" {
		opts = append(opts, worldstat.WithMetricsPath(a.config.Metrics))
	}
	return append(opts, a.extra...), nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithFs sets the filesystem datasets are read from and documents written to.
func WithFs(fs afero.Fs) Option {
	return func(a *App) error {
		a.fs = fs
		return nil
	}
}

// WithWorldstatOptions appends options to every Worldstat instance.
func WithWorldstatOptions(opts ...worldstat.Option) Option {
	return func(a *App) error {
		a.extra = append(a.extra, opts...)
		return nil
	}
}

// WithWorldstat sets a custom worldstat instance (useful for testing).
func WithWorldstat(ws worldstat.Worldstat) Option {
	return func(a *App) error {
		a.worldstat = ws
		return nil
	}
}
