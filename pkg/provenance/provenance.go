// Package provenance records which source supplied each data point of a
// merge and which sources it overrode.
package provenance

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/sources"
)

// Provenance is one contribution to a (country, indicator, year) point.
type Provenance struct {
	Source sources.ID `yaml:"source"`
	Value  float64    `yaml:"value"`
	Reason string     `yaml:"reason,omitempty"`
}

// Map tracks contributions in fold order; the last entry is the winner.
type Map map[string][]Provenance // key is "country:indicator:year"

// Tracker manages provenance tracking during reconciliation.
type Tracker interface {
	// Track records a contribution for a point
	Track(country countries.Code, indicator indicators.Name, year int, p Provenance)

	// Find retrieves the contributions for a point
	Find(country countries.Code, indicator indicators.Name, year int) []Provenance

	// FindByCountry retrieves all contributions for a country keyed by "indicator:year"
	FindByCountry(country countries.Code) map[string][]Provenance

	// Map returns the complete provenance map
	Map() Map

	// Clear removes all provenance data
	Clear()
}

// tracker is the default implementation.
type tracker struct {
	provenance Map
	enabled    bool
}

// NewTracker creates a new provenance tracker. A disabled tracker records
// nothing.
func NewTracker(enabled bool) Tracker {
	return &tracker{
		provenance: make(Map),
		enabled:    enabled,
	}
}

// Track records a contribution for a point.
func (p *tracker) Track(country countries.Code, indicator indicators.Name, year int, history Provenance) {
	if !p.enabled {
		return
	}
	key := makeKey(country, indicator, year)
	p.provenance[key] = append(p.provenance[key], history)
}

// Find retrieves the contributions for a point.
func (p *tracker) Find(country countries.Code, indicator indicators.Name, year int) []Provenance {
	if !p.enabled {
		return nil
	}
	return p.provenance[makeKey(country, indicator, year)]
}

// FindByCountry retrieves all contributions for a country.
func (p *tracker) FindByCountry(country countries.Code) map[string][]Provenance {
	if !p.enabled {
		return nil
	}

	result := make(map[string][]Provenance)
	prefix := string(country) + ":"
	for key, info := range p.provenance {
		if rest, found := strings.CutPrefix(key, prefix); found {
			result[rest] = info
		}
	}
	return result
}

// Map returns the complete provenance map.
func (p *tracker) Map() Map {
	if !p.enabled {
		return nil
	}

	// Return a copy to prevent external modification
	result := make(Map, len(p.provenance))
	for k, v := range p.provenance {
		result[k] = append([]Provenance{}, v...)
	}
	return result
}

// Clear removes all provenance data.
func (p *tracker) Clear() {
	p.provenance = make(Map)
}

// makeKey creates a unique key for provenance tracking.
func makeKey(country countries.Code, indicator indicators.Name, year int) string {
	return fmt.Sprintf("%s:%s:%d", country, indicator, year)
}

// splitKey reverses makeKey.
func splitKey(key string) (countries.Code, indicators.Name, int, bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return "", "", 0, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", "", 0, false
	}
	return countries.Code(parts[0]), indicators.Name(parts[1]), year, true
}

// Report is the ordered, human-readable view of a Map.
type Report struct {
	Countries []CountryReport `yaml:"countries"`
	Points    int             `yaml:"points"`
	Conflicts int             `yaml:"conflicts"`
}

// CountryReport holds the provenance for one country.
type CountryReport struct {
	Code       countries.Code    `yaml:"code"`
	Indicators []IndicatorReport `yaml:"indicators"`
}

// IndicatorReport holds the provenance for one indicator of a country.
type IndicatorReport struct {
	Name   indicators.Name `yaml:"name"`
	Points []PointReport   `yaml:"points"`
}

// PointReport is the winning contribution for a year and what it overrode.
type PointReport struct {
	Year       int          `yaml:"year"`
	Current    Provenance   `yaml:"current"`
	Overridden []Provenance `yaml:"overridden,omitempty"`
}

// GenerateReport creates a provenance report from a Map, sorted by
// country, indicator and year.
func GenerateReport(provenance Map) *Report {
	type point struct {
		country   countries.Code
		indicator indicators.Name
		year      int
		infos     []Provenance
	}
	points := make([]point, 0, len(provenance))
	for key, infos := range provenance {
		country, indicator, year, ok := splitKey(key)
		if !ok || len(infos) == 0 {
			continue
		}
		points = append(points, point{country, indicator, year, infos})
	}
	slices.SortFunc(points, func(a, b point) int {
		return cmp.Or(
			cmp.Compare(a.country, b.country),
			cmp.Compare(a.indicator, b.indicator),
			cmp.Compare(a.year, b.year),
		)
	})

	report := &Report{}
	for _, pt := range points {
		n := len(report.Countries)
		if n == 0 || report.Countries[n-1].Code != pt.country {
			report.Countries = append(report.Countries, CountryReport{Code: pt.country})
			n++
		}
		country := &report.Countries[n-1]

		m := len(country.Indicators)
		if m == 0 || country.Indicators[m-1].Name != pt.indicator {
			country.Indicators = append(country.Indicators, IndicatorReport{Name: pt.indicator})
			m++
		}
		indicator := &country.Indicators[m-1]

		last := len(pt.infos) - 1
		entry := PointReport{Year: pt.year, Current: pt.infos[last]}
		if last > 0 {
			entry.Overridden = append([]Provenance{}, pt.infos[:last]...)
			report.Conflicts++
		}
		indicator.Points = append(indicator.Points, entry)
		report.Points++
	}
	return report
}

// String generates a string representation of the provenance report.
func (r *Report) String() string {
	var sb strings.Builder

	sb.WriteString("Provenance Report\n")
	sb.WriteString("=================\n\n")
	fmt.Fprintf(&sb, "%d points, %d conflicts\n\n", r.Points, r.Conflicts)

	for _, country := range r.Countries {
		sb.WriteString(string(country.Code))
		sb.WriteString("\n")
		sb.WriteString(strings.Repeat("-", 40))
		sb.WriteString("\n")
		for _, indicator := range country.Indicators {
			fmt.Fprintf(&sb, "  %s:\n", indicator.Name)
			for _, pt := range indicator.Points {
				fmt.Fprintf(&sb, "    %d: %v (from %s)\n", pt.Year, pt.Current.Value, pt.Current.Source)
				for _, o := range pt.Overridden {
					fmt.Fprintf(&sb, "      overrides %v from %s\n", o.Value, o.Source)
				}
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
