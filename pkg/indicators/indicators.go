// Package indicators declares the statistical series worldstat tracks and
// the numeric policy applied to every observation of them.
//
// Precision belongs to the indicator, not to the source: the same
// indicator reported by two providers normalizes identically.
package indicators

import (
	"math"
	"strconv"
	"strings"

	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/series"
)

// Name identifies an indicator, e.g. "energy" or "co2".
type Name string

// String returns the string representation of an indicator name.
func (n Name) String() string {
	return string(n)
}

// MaxPrecision is the largest supported number of decimals.
const MaxPrecision = 6

// Indicator is a named series with its numeric policy.
type Indicator struct {
	Name        Name   `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Unit        string `yaml:"unit,omitempty" json:"unit,omitempty"`
	// Precision is the number of decimals kept; 0 rounds to integers.
	Precision int `yaml:"precision" json:"precision"`
}

// Validate checks the indicator declaration.
func (i Indicator) Validate() error {
	if strings.TrimSpace(string(i.Name)) == "" {
		return errors.NewValidationError("name", i.Name, "indicator name cannot be empty")
	}
	if i.Precision < 0 || i.Precision > MaxPrecision {
		return errors.NewValidationError("precision", i.Precision, "must be between 0 and 6")
	}
	return nil
}

// Normalize turns a raw provider value into a point. Null, blank,
// non-numeric and non-finite values are absent, as are values too large to
// round at the indicator's precision. Zero is a valid reading.
func (i Indicator) Normalize(year int, raw string) (series.Point, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "null") {
		return series.Point{}, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return series.Point{}, false
	}
	v = i.round(v)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return series.Point{}, false
	}
	return series.Point{Year: year, Value: v}, true
}

func (i Indicator) round(v float64) float64 {
	if i.Precision <= 0 {
		return normalizeZero(math.Round(v))
	}
	scale := math.Pow10(i.Precision)
	return normalizeZero(math.Round(v*scale) / scale)
}

// normalizeZero folds negative zero so rounding tiny negatives yields 0.
func normalizeZero(v float64) float64 {
	if v == 0 {
		return 0
	}
	return v
}
