package reconciler

import (
	"slices"

	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/indicators"
)

// filter applies the completeness requirement to built records.
type filter struct {
	required []indicators.Name
}

func newFilter(required []indicators.Name) *filter {
	return &filter{required: required}
}

// complete reports whether a record has every required indicator.
func (f *filter) complete(record *CountryRecord) bool {
	for _, name := range f.required {
		if !record.Has(name) {
			return false
		}
	}
	return true
}

// apply removes incomplete records and returns their codes sorted.
func (f *filter) apply(records map[countries.Code]*CountryRecord) []countries.Code {
	var excluded []countries.Code
	for code, record := range records {
		if !f.complete(record) {
			excluded = append(excluded, code)
		}
	}
	slices.Sort(excluded)
	for _, code := range excluded {
		delete(records, code)
	}
	return excluded
}
