package reconciler

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/provenance"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Result represents the outcome of a reconciliation operation.
type Result struct {
	// Records keyed by canonical country code
	Records map[countries.Code]*CountryRecord

	// Absences are the (country, indicator) pairs sources failed to fetch
	Absences []Absence

	// Excluded lists countries dropped by the completeness filter
	Excluded []countries.Code

	// Metadata
	Metadata ResultMetadata

	// Provenance tracking
	Provenance provenance.Map
}

// Absence is a pair a source could not deliver.
type Absence struct {
	Source    sources.ID
	Country   string
	Indicator indicators.Name
	Err       error
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	// StartTime when reconciliation started
	StartTime time.Time

	// EndTime when reconciliation completed
	EndTime time.Time

	// Duration of the reconciliation
	Duration time.Duration

	// Sources that were reconciled, in default fold order
	Sources []sources.ID

	// Strategy used for reconciliation
	Strategy Strategy

	Mode          Mode
	ReferenceYear int
	Horizon       int

	// Statistics about the reconciliation
	Stats ResultStatistics
}

// ResultStatistics contains statistics about the reconciliation.
type ResultStatistics struct {
	// Observations is the number of raw observations read
	Observations int
	// Points is the number of normalized values folded
	Points int
	// Null counts observations with no value
	Null int
	// Malformed counts source-side malformed rows plus unknown indicators
	// and unparsable values
	Malformed int
	// Rejected counts observations whose country code did not resolve
	Rejected int
	// OutOfScope counts observations for countries outside the allow-list
	OutOfScope int
	// ConflictsResolved counts points overridden by a later source
	ConflictsResolved int
	// Duplicates counts repeated years within one source
	Duplicates int
	// Estimated counts fallback values applied
	Estimated int
	// NoData counts snapshot indicators given the no-data sentinel
	NoData int
	// Incomplete counts countries dropped by the completeness filter
	Incomplete int
	// Countries is the number of records produced
	Countries   int
	TotalTimeMs int64
}

// Codes returns the record codes sorted.
func (r *Result) Codes() []countries.Code {
	return slices.Sorted(maps.Keys(r.Records))
}

// Sorted returns the records ordered by country code.
func (r *Result) Sorted() []*CountryRecord {
	codes := r.Codes()
	out := make([]*CountryRecord, 0, len(codes))
	for _, code := range codes {
		out = append(out, r.Records[code])
	}
	return out
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	s := r.Metadata.Stats
	return fmt.Sprintf("Reconciled %d countries from %d sources (%d points, %d conflicts, %d absences, %d excluded)",
		s.Countries, len(r.Metadata.Sources), s.Points, s.ConflictsResolved, len(r.Absences), s.Incomplete)
}

// NewResult creates a new result with defaults.
func NewResult() *Result {
	return &Result{
		Records:    make(map[countries.Code]*CountryRecord),
		Provenance: make(provenance.Map),
		Metadata: ResultMetadata{
			StartTime: time.Now(),
			Sources:   []sources.ID{},
		},
	}
}

// Finalize calculates duration and marks completion.
func (r *Result) Finalize() {
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
	r.Metadata.Stats.TotalTimeMs = r.Metadata.Duration.Milliseconds()
	r.Metadata.Stats.Countries = len(r.Records)
}
