package indicators_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/series"
)

var (
	energy = indicators.Indicator{Name: "energy", Precision: 0}
	co2    = indicators.Indicator{Name: "co2", Precision: 2}
)

func TestNormalizeAbsent(t *testing.T) {
	for _, ind := range []indicators.Indicator{energy, co2} {
		for _, raw := range []string{"", "   ", "null", "NULL", "n/a", "abc", "NaN", "Inf", "-Inf"} {
			_, ok := ind.Normalize(2020, raw)
			assert.False(t, ok, "%s: %q should be absent", ind.Name, raw)
		}
	}
}

func TestNormalizePrecision(t *testing.T) {
	tests := []struct {
		ind  indicators.Indicator
		raw  string
		want float64
	}{
		{energy, "6803.7", 6804},
		{energy, "6803.4", 6803},
		{co2, "14.9451", 14.95},
		{co2, " 4.1 ", 4.1},
		{co2, "1e1", 10},
		{energy, "-0.2", 0},
	}
	for _, tt := range tests {
		p, ok := tt.ind.Normalize(2019, tt.raw)
		require.True(t, ok, tt.raw)
		assert.Equal(t, series.Point{Year: 2019, Value: tt.want}, p, tt.raw)
	}
}

func TestNormalizeOverflowIsAbsent(t *testing.T) {
	_, ok := co2.Normalize(2020, "1e307")
	assert.False(t, ok)
	_, ok = co2.Normalize(2020, "-1e307")
	assert.False(t, ok)

	// no scaling at precision 0
	p, ok := energy.Normalize(2020, "1e307")
	require.True(t, ok)
	assert.Equal(t, 1e307, p.Value)
}

func TestNormalizeZeroIsData(t *testing.T) {
	p, ok := energy.Normalize(2021, "0")
	require.True(t, ok)
	assert.Equal(t, 0.0, p.Value)
}

func TestSameIndicatorSameResultAcrossSources(t *testing.T) {
	a, okA := co2.Normalize(2020, "4.567")
	b, okB := co2.Normalize(2020, "4.56700")
	assert.True(t, okA && okB)
	assert.Equal(t, a, b)
}

func TestNewSet(t *testing.T) {
	set, err := indicators.NewSet(energy, co2)
	require.NoError(t, err)
	assert.Equal(t, []indicators.Name{"energy", "co2"}, set.Names())
	assert.Equal(t, 2, set.Len())

	got, ok := set.Get("co2")
	require.True(t, ok)
	assert.Equal(t, 2, got.Precision)

	_, ok = set.Get("gdp")
	assert.False(t, ok)

	_, err = indicators.NewSet(energy, energy)
	assert.Error(t, err)

	_, err = indicators.NewSet(indicators.Indicator{Name: "x", Precision: -1})
	assert.Error(t, err)
}
