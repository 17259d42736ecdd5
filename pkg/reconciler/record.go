package reconciler

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"

	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/series"
)

// CountryRecord is the merged data for one canonical country. History
// records fill Series and, for backfilled indicators, Estimates. Snapshot
// records fill Latest with a value for every configured indicator.
type CountryRecord struct {
	Code      countries.Code
	Name      string
	Series    map[indicators.Name]series.Series
	Latest    map[indicators.Name]series.Snapshot
	Estimates map[indicators.Name]series.Snapshot
}

func newRecord(code countries.Code, mode Mode) *CountryRecord {
	r := &CountryRecord{Code: code}
	if mode == ModeSnapshot {
		r.Latest = make(map[indicators.Name]series.Snapshot)
	} else {
		r.Series = make(map[indicators.Name]series.Series)
	}
	return r
}

// IsSnapshot reports whether the record holds snapshot values.
func (r *CountryRecord) IsSnapshot() bool {
	return r.Latest != nil
}

// Has reports whether the indicator carries measured data or an estimate.
// The no-data sentinel does not count.
func (r *CountryRecord) Has(name indicators.Name) bool {
	if r.IsSnapshot() {
		snap, ok := r.Latest[name]
		return ok && !snap.IsNoData()
	}
	if len(r.Series[name]) > 0 {
		return true
	}
	_, ok := r.Estimates[name]
	return ok
}

// Clone returns a deep copy of the record.
func (r *CountryRecord) Clone() *CountryRecord {
	out := &CountryRecord{
		Code:      r.Code,
		Name:      r.Name,
		Latest:    cloneSnapshots(r.Latest),
		Estimates: cloneSnapshots(r.Estimates),
	}
	if r.Series != nil {
		out.Series = make(map[indicators.Name]series.Series, len(r.Series))
		for name, s := range r.Series {
			out.Series[name] = slices.Clone(s)
		}
	}
	return out
}

func cloneSnapshots(in map[indicators.Name]series.Snapshot) map[indicators.Name]series.Snapshot {
	if in == nil {
		return nil
	}
	out := make(map[indicators.Name]series.Snapshot, len(in))
	for name, snap := range in {
		if snap.Value != nil {
			v := *snap.Value
			snap.Value = &v
		}
		out[name] = snap
	}
	return out
}

// Indicators returns the names with a key in the record, sorted.
func (r *CountryRecord) Indicators() []indicators.Name {
	if r.IsSnapshot() {
		return slices.Sorted(maps.Keys(r.Latest))
	}
	names := make(map[indicators.Name]struct{}, len(r.Series)+len(r.Estimates))
	for name := range r.Series {
		names[name] = struct{}{}
	}
	for name := range r.Estimates {
		names[name] = struct{}{}
	}
	return slices.Sorted(maps.Keys(names))
}

type recordJSON struct {
	Code       countries.Code                      `json:"code"`
	Name       string                              `json:"name"`
	Indicators any                                 `json:"indicators"`
	Estimates  map[indicators.Name]series.Snapshot `json:"estimates,omitempty"`
}

// MarshalJSON writes the indicators as {name: [{year, value}]} for
// history records and {name: {value, year}} for snapshot records.
func (r *CountryRecord) MarshalJSON() ([]byte, error) {
	out := recordJSON{Code: r.Code, Name: r.Name, Estimates: r.Estimates}
	if r.IsSnapshot() {
		out.Indicators = r.Latest
	} else {
		s := r.Series
		if s == nil {
			s = map[indicators.Name]series.Series{}
		}
		out.Indicators = s
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads either record shape.
func (r *CountryRecord) UnmarshalJSON(data []byte) error {
	var in struct {
		Code       countries.Code                      `json:"code"`
		Name       string                              `json:"name"`
		Indicators map[indicators.Name]json.RawMessage `json:"indicators"`
		Estimates  map[indicators.Name]series.Snapshot `json:"estimates"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*r = CountryRecord{Code: in.Code, Name: in.Name, Estimates: in.Estimates}
	for name, raw := range in.Indicators {
		if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
			var s series.Series
			if err := json.Unmarshal(raw, &s); err != nil {
				return err
			}
			if r.Series == nil {
				r.Series = make(map[indicators.Name]series.Series)
			}
			r.Series[name] = s
			continue
		}
		var snap series.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return err
		}
		if r.Latest == nil {
			r.Latest = make(map[indicators.Name]series.Snapshot)
		}
		r.Latest[name] = snap
	}
	if r.Latest == nil && r.Series == nil {
		r.Series = make(map[indicators.Name]series.Series)
	}
	return nil
}
