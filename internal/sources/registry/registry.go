// Package registry constructs sources from their declarations.
// This package is separate from the adapters to avoid circular dependencies.
package registry

import (
	"fmt"
	"slices"

	"github.com/spf13/afero"

	"github.com/agentstation/worldstat/internal/sources/owid"
	"github.com/agentstation/worldstat/internal/sources/worldbank"
	"github.com/agentstation/worldstat/internal/transport"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Env carries the shared dependencies handed to every factory.
type Env struct {
	// Fs is used for local table paths.
	Fs afero.Fs

	// Transport options applied to every HTTP client.
	Transport []transport.Option
}

// Factory creates a source from its declaration.
type Factory func(cfg sources.Config, env Env) sources.Source

// registry maps adapter kinds to their creation functions
var registry = map[sources.Kind]Factory{
	sources.KindWorldBank: func(cfg sources.Config, env Env) sources.Source {
		return worldbank.New(cfg, env.Transport...)
	},
	sources.KindOWID: func(cfg sources.Config, env Env) sources.Source {
		return owid.New(cfg, owid.WithFs(env.Fs), owid.WithTransport(env.Transport...))
	},
}

// New creates a NEW source instance for the declaration.
// Each call returns a fresh source with its own HTTP client.
func New(cfg sources.Config, env Env) (sources.Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	newSource, ok := registry[cfg.Kind]
	if !ok {
		return nil, &errors.ValidationError{
			Field:   "kind",
			Value:   cfg.Kind,
			Message: fmt.Sprintf("unsupported source kind: %s", cfg.Kind),
		}
	}
	if env.Fs == nil {
		env.Fs = afero.NewOsFs()
	}
	return newSource(cfg, env), nil
}

// Build creates every declared source, rejecting duplicate IDs.
func Build(cfgs []sources.Config, env Env) (*sources.Sources, error) {
	set := sources.NewSources()
	for _, cfg := range cfgs {
		if _, dup := set.Get(cfg.ID); dup {
			return nil, errors.NewValidationError("id", cfg.ID, fmt.Sprintf("duplicate source %s", cfg.ID))
		}
		src, err := New(cfg, env)
		if err != nil {
			return nil, err
		}
		set.Set(src)
	}
	return set, nil
}

// Has checks if an adapter kind is implemented.
func Has(kind sources.Kind) bool {
	_, ok := registry[kind]
	return ok
}

// Kinds returns all implemented adapter kinds in sorted order.
func Kinds() []sources.Kind {
	kinds := make([]sources.Kind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}
