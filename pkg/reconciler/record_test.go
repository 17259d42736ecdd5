package reconciler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/series"
	"github.com/agentstation/worldstat/pkg/sources"
)

func TestRecordJSONHistory(t *testing.T) {
	record := newRecord("USA", ModeHistory)
	record.Name = "United States"
	record.Series["gdp"] = series.Series{{Year: 2019, Value: 65120}, {Year: 2020, Value: 63531}}
	record.Estimates = map[indicators.Name]series.Snapshot{"co2": series.Estimated(14.5)}

	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"code": "USA",
		"name": "United States",
		"indicators": {"gdp": [{"year": 2019, "value": 65120}, {"year": 2020, "value": 63531}]},
		"estimates": {"co2": {"value": 14.5, "year": "estimated"}}
	}`, string(data))

	var back CountryRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *record, back)
}

func TestRecordJSONSnapshot(t *testing.T) {
	record := newRecord("JPN", ModeSnapshot)
	record.Name = "Japan"
	record.Latest["gdp"] = series.Measured(series.Point{Year: 2022, Value: 33815})
	record.Latest["co2"] = series.NoData()

	data, err := json.Marshal(record)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"code": "JPN",
		"name": "Japan",
		"indicators": {
			"co2": {"value": null, "year": "N/A"},
			"gdp": {"value": 33815, "year": "2022"}
		}
	}`, string(data))

	var back CountryRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.IsSnapshot())
	assert.Equal(t, *record, back)
}

func TestRecordJSONEmptyHistory(t *testing.T) {
	data, err := json.Marshal(&CountryRecord{Code: "CHN", Name: "China"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"code": "CHN", "name": "China", "indicators": {}}`, string(data))
}

func TestRecordClone(t *testing.T) {
	history := newRecord("USA", ModeHistory)
	history.Series["gdp"] = series.Series{{Year: 2020, Value: 1}}
	history.Estimates = map[indicators.Name]series.Snapshot{"co2": series.Estimated(2)}

	clone := history.Clone()
	history.Series["gdp"][0].Value = 9
	*history.Estimates["co2"].Value = 9
	assert.Equal(t, float64(1), clone.Series["gdp"][0].Value)
	assert.Equal(t, float64(2), *clone.Estimates["co2"].Value)
	assert.False(t, clone.IsSnapshot())

	snapshot := newRecord("USA", ModeSnapshot)
	snapshot.Latest["gdp"] = series.Measured(series.Point{Year: 2020, Value: 3})
	snapshot.Latest["co2"] = series.NoData()

	copied := snapshot.Clone()
	*snapshot.Latest["gdp"].Value = 9
	require.True(t, copied.IsSnapshot())
	assert.Nil(t, copied.Series)
	assert.Equal(t, float64(3), *copied.Latest["gdp"].Value)
	assert.True(t, copied.Latest["co2"].IsNoData())
}

func TestFoldOrder(t *testing.T) {
	s := NewSourceOrderStrategy([]sources.ID{"owid", "worldbank", "owid"})
	assert.Equal(t, []sources.ID{"owid", "worldbank"}, s.Priority(""))

	available := []sources.ID{"worldbank", "zeta", "owid", "alpha"}
	assert.Equal(t, []sources.ID{"alpha", "zeta", "worldbank", "owid"}, s.FoldOrder("gdp", available))
	assert.Equal(t, []sources.ID{"owid"}, s.FoldOrder("gdp", []sources.ID{"owid"}))

	s.WithIndicatorPriority("co2", "worldbank")
	assert.Equal(t, []sources.ID{"owid", "worldbank"}, s.FoldOrder("co2", []sources.ID{"owid", "worldbank"}))
	assert.Equal(t, []indicators.Name{"co2"}, s.Overrides())

	assert.Equal(t, StrategyTypeSourceOrder, s.Type())
	assert.Equal(t, "Source Order", s.Type().Name())
	assert.Contains(t, s.Description(), "owid")
}

func TestValidateResult(t *testing.T) {
	s := NewSourceOrderStrategy(nil)
	assert.Error(t, s.ValidateResult(nil))

	result := NewResult()
	result.Records["USA"] = &CountryRecord{Code: "USA", Series: map[indicators.Name]series.Series{
		"gdp": {{Year: 2020, Value: 1}, {Year: 2019, Value: 2}},
	}}
	assert.Error(t, s.ValidateResult(result))

	result.Records["USA"] = &CountryRecord{Code: "JPN"}
	assert.Error(t, s.ValidateResult(result))
}
