// Package document assembles the aggregate document and publishes it.
//
// A published document is written to a temporary file next to the
// destination and renamed over it, so readers see either the previous
// document or the new one, never a partial write.
package document

import (
	"time"

	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/reconciler"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Document is the persisted output of a run. It is not modified after
// Assemble returns.
type Document struct {
	Metadata Metadata                    `json:"metadata"`
	Records  []*reconciler.CountryRecord `json:"records"`
}

// Metadata describes a document.
type Metadata struct {
	GeneratedAt  time.Time              `json:"generated_at"`
	CountryCount int                    `json:"country_count"`
	RunID        string                 `json:"run_id,omitempty"`
	Mode         reconciler.Mode        `json:"mode"`
	Indicators   []indicators.Indicator `json:"indicators,omitempty"`
	Sources      []SourceInfo           `json:"sources,omitempty"`
}

// SourceInfo names a source that contributed to the document.
type SourceInfo struct {
	ID   sources.ID `json:"id"`
	Name string     `json:"name,omitempty"`
}

// Meta carries the run details Assemble stamps on the document.
type Meta struct {
	RunID      string
	Indicators []indicators.Indicator
	// SourceNames maps source IDs to display names.
	SourceNames map[sources.ID]string
	// Now overrides the generation timestamp; zero uses the current time.
	Now time.Time
}

// Assemble builds a document from a reconciliation result. Records are
// deep copied and ordered by country code.
func Assemble(result *reconciler.Result, meta Meta) *Document {
	generated := meta.Now
	if generated.IsZero() {
		generated = time.Now()
	}

	doc := &Document{
		Metadata: Metadata{
			GeneratedAt: generated.UTC(),
			RunID:       meta.RunID,
			Indicators:  append([]indicators.Indicator(nil), meta.Indicators...),
		},
		Records: []*reconciler.CountryRecord{},
	}
	if result == nil {
		return doc
	}

	doc.Metadata.Mode = result.Metadata.Mode
	for _, id := range result.Metadata.Sources {
		doc.Metadata.Sources = append(doc.Metadata.Sources, SourceInfo{ID: id, Name: meta.SourceNames[id]})
	}
	for _, record := range result.Sorted() {
		doc.Records = append(doc.Records, record.Clone())
	}
	doc.Metadata.CountryCount = len(doc.Records)
	return doc
}

// Find returns the record for a country code.
func (d *Document) Find(code string) (*reconciler.CountryRecord, bool) {
	for _, record := range d.Records {
		if string(record.Code) == code {
			return record, true
		}
	}
	return nil, false
}
