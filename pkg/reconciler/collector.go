package reconciler

import (
	"maps"
	"slices"
	"strings"

	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/series"
	"github.com/agentstation/worldstat/pkg/sources"
)

// contribution is one normalized value from one source.
type contribution struct {
	country countries.Code
	point   series.Point
}

// collected holds every batch resolved and normalized but not yet folded.
type collected struct {
	ids         []sources.ID
	byIndicator map[indicators.Name]map[sources.ID][]contribution
	names       map[sources.ID]map[countries.Code]string
	seen        map[countries.Code]struct{}
	absences    []Absence
	stats       ResultStatistics
}

// collector resolves and normalizes batches.
type collector struct {
	opts *options
}

func newCollector(opts *options) *collector {
	return &collector{opts: opts}
}

// collect walks the batches in ID order. Nil batches are skipped.
func (c *collector) collect(batches map[sources.ID]*sources.Batch) *collected {
	out := &collected{
		byIndicator: make(map[indicators.Name]map[sources.ID][]contribution),
		names:       make(map[sources.ID]map[countries.Code]string),
		seen:        make(map[countries.Code]struct{}),
	}

	for _, id := range slices.Sorted(maps.Keys(batches)) {
		batch := batches[id]
		if batch == nil {
			continue
		}
		out.ids = append(out.ids, id)
		out.stats.Malformed += batch.Malformed
		for _, f := range batch.Failures {
			out.absences = append(out.absences, Absence{
				Source:    id,
				Country:   f.Country,
				Indicator: f.Indicator,
				Err:       f.Err,
			})
		}
		for obs := range batch.All() {
			c.add(out, id, obs)
		}
	}
	return out
}

func (c *collector) add(out *collected, id sources.ID, obs sources.Observation) {
	out.stats.Observations++

	code, err := c.opts.resolver.Resolve(obs.Country)
	if err != nil {
		out.stats.Rejected++
		return
	}
	if !c.inScope(code) {
		out.stats.OutOfScope++
		return
	}
	ind, ok := c.opts.indicators.Get(obs.Indicator)
	if !ok {
		out.stats.Malformed++
		return
	}

	out.seen[code] = struct{}{}
	if obs.CountryName != "" {
		if out.names[id] == nil {
			out.names[id] = make(map[countries.Code]string)
		}
		out.names[id][code] = obs.CountryName
	}

	point, ok := ind.Normalize(obs.Year, obs.Value)
	if !ok {
		if v := strings.TrimSpace(obs.Value); v == "" || strings.EqualFold(v, "null") {
			out.stats.Null++
		} else {
			out.stats.Malformed++
		}
		return
	}

	bySource := out.byIndicator[ind.Name]
	if bySource == nil {
		bySource = make(map[sources.ID][]contribution)
		out.byIndicator[ind.Name] = bySource
	}
	bySource[id] = append(bySource[id], contribution{country: code, point: point})
}

// inScope applies the country allow-list.
func (c *collector) inScope(code countries.Code) bool {
	if len(c.opts.countries) == 0 {
		return true
	}
	_, ok := c.opts.countries[code]
	return ok
}
