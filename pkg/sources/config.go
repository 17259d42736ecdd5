package sources

import (
	"fmt"
	"time"

	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
)

// Config declares one source in a dataset definition.
type Config struct {
	ID   ID   `yaml:"id"`
	Kind Kind `yaml:"kind"`

	// Name is a human readable label used in metadata.
	Name string `yaml:"name,omitempty"`

	// URL is the API base URL or the table URL.
	URL string `yaml:"url,omitempty"`

	// Path is a local table file, used instead of URL when set.
	Path string `yaml:"path,omitempty"`

	// Indicators binds indicator names to the provider's own series
	// identifier (an API indicator code or a table column).
	Indicators map[indicators.Name]string `yaml:"indicators"`

	PageSize    int           `yaml:"page_size,omitempty"`
	MaxPages    int           `yaml:"max_pages,omitempty"`
	Concurrency int           `yaml:"concurrency,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// Validate checks the source declaration.
func (c Config) Validate() error {
	if c.ID == "" {
		return errors.NewValidationError("id", c.ID, "source id cannot be empty")
	}
	if c.Kind == "" {
		return errors.NewValidationError("kind", c.Kind, fmt.Sprintf("source %s has no kind", c.ID))
	}
	if c.URL == "" && c.Path == "" {
		return errors.NewValidationError("url", c.URL, fmt.Sprintf("source %s needs a url or a path", c.ID))
	}
	if len(c.Indicators) == 0 {
		return errors.NewValidationError("indicators", nil, fmt.Sprintf("source %s binds no indicators", c.ID))
	}
	for name, remote := range c.Indicators {
		if remote == "" {
			return errors.NewValidationError("indicators", name, fmt.Sprintf("source %s binds %s to an empty identifier", c.ID, name))
		}
	}
	if c.PageSize < 0 || c.MaxPages < 0 || c.Concurrency < 0 || c.Timeout < 0 {
		return errors.NewValidationError("limits", nil, fmt.Sprintf("source %s has a negative limit", c.ID))
	}
	return nil
}

// DisplayName returns Name, falling back to the ID.
func (c Config) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return string(c.ID)
}
