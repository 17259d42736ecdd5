package worldstat

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/agentstation/worldstat/pkg/document"
	"github.com/agentstation/worldstat/pkg/reconciler"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Result reports what a run did.
type Result struct {
	RunID string

	// Published is true when the document replaced the file at Path.
	Published bool
	Path      string

	// Provenance is the report path, when one was written.
	Provenance string

	Document   *document.Document
	Reconciled *reconciler.Result

	// SourceErrors holds the sources that produced no batch.
	SourceErrors map[sources.ID]error

	Duration time.Duration
}

// FailedSources returns the IDs of sources that produced no batch, sorted.
func (r *Result) FailedSources() []sources.ID {
	return slices.Sorted(maps.Keys(r.SourceErrors))
}

// Summary returns a one-line description of the run.
func (r *Result) Summary() string {
	countries := 0
	if r.Document != nil {
		countries = r.Document.Metadata.CountryCount
	}
	state := "not published"
	if r.Published {
		state = "published to " + r.Path
	}
	return fmt.Sprintf("run %s: %d countries, %d failed sources, %s in %v",
		r.RunID, countries, len(r.SourceErrors), state, r.Duration.Round(time.Millisecond))
}
