package reconciler

import (
	"context"

	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/provenance"
	"github.com/agentstation/worldstat/pkg/sources"
)

// cell is the current winner for a (country, indicator, year).
type cell struct {
	value  float64
	source sources.ID
}

// folded maps country, indicator and year to the winning value.
type folded map[countries.Code]map[indicators.Name]map[int]cell

// merger folds contributions in strategy order.
type merger struct {
	strategy Strategy
	tracker  provenance.Tracker
}

func newMerger(strategy Strategy, tracker provenance.Tracker) *merger {
	return &merger{strategy: strategy, tracker: tracker}
}

// fold applies every source for every configured indicator. Within an
// indicator sources are folded lowest precedence first, so a later
// source overwrites an earlier one on the same year. Within one source
// the last emitted value for a year wins.
func (m *merger) fold(ctx context.Context, names []indicators.Name, in *collected, stats *ResultStatistics) (folded, error) {
	out := make(folded)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bySource := in.byIndicator[name]
		if len(bySource) == 0 {
			continue
		}
		for _, id := range m.strategy.FoldOrder(name, in.ids) {
			for _, c := range bySource[id] {
				m.put(out, name, id, c, stats)
			}
		}
	}
	return out, nil
}

func (m *merger) put(out folded, name indicators.Name, id sources.ID, c contribution, stats *ResultStatistics) {
	byIndicator := out[c.country]
	if byIndicator == nil {
		byIndicator = make(map[indicators.Name]map[int]cell)
		out[c.country] = byIndicator
	}
	years := byIndicator[name]
	if years == nil {
		years = make(map[int]cell)
		byIndicator[name] = years
	}

	reason := ""
	if prev, exists := years[c.point.Year]; exists {
		if prev.source == id {
			stats.Duplicates++
			reason = "repeated year, last value kept"
		} else {
			stats.ConflictsResolved++
			reason = "overrides " + string(prev.source) + " by source priority order"
		}
	}
	years[c.point.Year] = cell{value: c.point.Value, source: id}
	stats.Points++

	m.tracker.Track(c.country, name, c.point.Year, provenance.Provenance{
		Source: id,
		Value:  c.point.Value,
		Reason: reason,
	})
}

// displayNames picks one source-supplied name per country, letting the
// source folded last in the default order win.
func (m *merger) displayNames(in *collected) map[countries.Code]string {
	out := make(map[countries.Code]string)
	for _, id := range m.strategy.FoldOrder("", in.ids) {
		for code, name := range in.names[id] {
			out[code] = name
		}
	}
	return out
}
