package sources

import (
	"fmt"
	"iter"

	"github.com/agentstation/worldstat/pkg/indicators"
)

// Observation is one raw reading as delivered by a provider. Country is
// the provider's own code, not yet resolved. An empty Value means null.
type Observation struct {
	Source      ID
	Country     string
	CountryName string
	Indicator   indicators.Name
	Year        int
	Value       string
}

// Failure records a (country, indicator) pair the source could not fetch.
type Failure struct {
	Country   string
	Indicator indicators.Name
	Err       error
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("%s/%s: %v", f.Country, f.Indicator, f.Err)
}

// Unwrap implements errors.Unwrap.
func (f Failure) Unwrap() error {
	return f.Err
}

// Batch is the buffered output of one Fetch.
type Batch struct {
	Source       ID
	Observations []Observation
	Failures     []Failure
	// Malformed counts rows or records the source could not interpret.
	Malformed int
}

// NewBatch creates an empty batch for a source.
func NewBatch(id ID) *Batch {
	return &Batch{Source: id}
}

// Add appends an observation, stamping the batch source on it.
func (b *Batch) Add(obs Observation) {
	obs.Source = b.Source
	b.Observations = append(b.Observations, obs)
}

// Fail records a failed pair.
func (b *Batch) Fail(country string, indicator indicators.Name, err error) {
	b.Failures = append(b.Failures, Failure{Country: country, Indicator: indicator, Err: err})
}

// Append merges other into b, keeping b's source ID.
func (b *Batch) Append(other *Batch) {
	if other == nil {
		return
	}
	for _, obs := range other.Observations {
		b.Add(obs)
	}
	b.Failures = append(b.Failures, other.Failures...)
	b.Malformed += other.Malformed
}

// All iterates over the observations in emission order.
func (b *Batch) All() iter.Seq[Observation] {
	return func(yield func(Observation) bool) {
		if b == nil {
			return
		}
		for _, obs := range b.Observations {
			if !yield(obs) {
				return
			}
		}
	}
}

// Len returns the number of observations.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Observations)
}
