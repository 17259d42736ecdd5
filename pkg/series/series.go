// Package series defines the finalized value types of the merge: points,
// ordered series and single-value snapshots.
package series

import (
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/agentstation/worldstat/pkg/constants"
)

// Point is a single finalized observation. Value is always finite.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Series is a list of points strictly increasing by year.
type Series []Point

// FromYears builds a series from a year-keyed map, ascending by year.
func FromYears(points map[int]float64) Series {
	years := make([]int, 0, len(points))
	for year := range points {
		years = append(years, year)
	}
	slices.Sort(years)

	s := make(Series, 0, len(years))
	for _, year := range years {
		s = append(s, Point{Year: year, Value: points[year]})
	}
	return s
}

// Validate reports the first point that breaks ordering or finiteness.
func (s Series) Validate() error {
	for i, p := range s {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("point %d (year %d) is not finite", i, p.Year)
		}
		if i > 0 && p.Year <= s[i-1].Year {
			return fmt.Errorf("point %d (year %d) does not follow year %d", i, p.Year, s[i-1].Year)
		}
	}
	return nil
}

// Crawl walks back from year `from` and returns the first point found,
// looking at no more than `horizon` years. A horizon of zero or less
// searches the whole series.
func (s Series) Crawl(from, horizon int) (Point, bool) {
	oldest := math.MinInt
	if horizon > 0 {
		oldest = from - horizon + 1
	}
	for i := len(s) - 1; i >= 0; i-- {
		p := s[i]
		if p.Year > from {
			continue
		}
		if p.Year < oldest {
			break
		}
		return p, true
	}
	return Point{}, false
}

// Snapshot is the single value kept per indicator in snapshot mode.
// Value is nil only together with the no-data year token.
type Snapshot struct {
	Value *float64 `json:"value"`
	Year  string   `json:"year"`
}

// Measured wraps a point as a snapshot.
func Measured(p Point) Snapshot {
	v := p.Value
	return Snapshot{Value: &v, Year: strconv.Itoa(p.Year)}
}

// Estimated wraps a configured fallback constant as a snapshot.
func Estimated(value float64) Snapshot {
	return Snapshot{Value: &value, Year: constants.EstimatedYear}
}

// NoData returns the explicit "no data" sentinel.
func NoData() Snapshot {
	return Snapshot{Year: constants.NoDataYear}
}

// IsNoData reports whether the snapshot is the no-data sentinel.
func (s Snapshot) IsNoData() bool {
	return s.Value == nil
}

// IsEstimated reports whether the snapshot came from a fallback constant.
func (s Snapshot) IsEstimated() bool {
	return s.Value != nil && s.Year == constants.EstimatedYear
}
