package sources

import (
	"fmt"
	"slices"

	"github.com/agentstation/worldstat/pkg/constants"
	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
)

// Retrieval selects how much history a paginated source asks for.
type Retrieval string

// Retrieval policies.
const (
	// RetrievalWindow asks for a fixed window of years ending at the
	// reference year.
	RetrievalWindow Retrieval = "window"

	// RetrievalMostRecent asks the provider for its latest non-empty point.
	RetrievalMostRecent Retrieval = "most_recent"
)

// Request describes what a run needs from a source.
type Request struct {
	// Countries restricts the fetch; empty means every country the source has.
	Countries []countries.Code

	// Indicators to fetch. Sources skip indicators they are not bound to.
	Indicators []indicators.Name

	Retrieval Retrieval

	// WindowYears is the length of the window for RetrievalWindow.
	WindowYears int

	// ReferenceYear is the newest year of the window.
	ReferenceYear int
}

// Validate checks the request.
func (r Request) Validate() error {
	switch r.Retrieval {
	case RetrievalWindow:
		if r.WindowYears <= 0 {
			return errors.NewValidationError("window_years", r.WindowYears, "must be positive")
		}
		if r.ReferenceYear <= 0 {
			return errors.NewValidationError("reference_year", r.ReferenceYear, "must be set for window retrieval")
		}
	case RetrievalMostRecent:
	default:
		return errors.NewValidationError("retrieval", r.Retrieval, fmt.Sprintf("unknown retrieval policy %q", r.Retrieval))
	}
	if len(r.Indicators) == 0 {
		return errors.NewValidationError("indicators", nil, "at least one indicator is required")
	}
	return nil
}

// Window returns the inclusive year range for RetrievalWindow.
func (r Request) Window() (from, to int) {
	years := r.WindowYears
	if years <= 0 {
		years = constants.DefaultWindowYears
	}
	return r.ReferenceYear - years + 1, r.ReferenceYear
}

// WantsIndicator reports whether the request includes name.
func (r Request) WantsIndicator(name indicators.Name) bool {
	return slices.Contains(r.Indicators, name)
}

// WantsCountry reports whether code is in scope. An empty country list
// puts every country in scope.
func (r Request) WantsCountry(code countries.Code) bool {
	return len(r.Countries) == 0 || slices.Contains(r.Countries, code)
}
