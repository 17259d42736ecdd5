package provenance

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tr := NewTracker(true)
	tr.Track("USA", "co2", 2020, Provenance{Source: "worldbank", Value: 14.1})
	tr.Track("USA", "co2", 2020, Provenance{Source: "owid", Value: 14.24, Reason: "higher priority"})
	tr.Track("USA", "gdp", 2019, Provenance{Source: "worldbank", Value: 65120})
	tr.Track("JPN", "gdp", 2019, Provenance{Source: "worldbank", Value: 40000})

	got := tr.Find("USA", "co2", 2020)
	require.Len(t, got, 2)
	assert.Equal(t, "owid", string(got[1].Source))

	usa := tr.FindByCountry("USA")
	assert.Len(t, usa, 2)
	assert.Contains(t, usa, "gdp:2019")

	m := tr.Map()
	m["USA:co2:2020"][0].Value = -1
	assert.Equal(t, 14.1, tr.Find("USA", "co2", 2020)[0].Value, "Map returns a copy")

	tr.Clear()
	assert.Empty(t, tr.Map())
}

func TestDisabledTracker(t *testing.T) {
	tr := NewTracker(false)
	tr.Track("USA", "co2", 2020, Provenance{Source: "owid", Value: 1})
	assert.Nil(t, tr.Find("USA", "co2", 2020))
	assert.Nil(t, tr.FindByCountry("USA"))
	assert.Nil(t, tr.Map())
}

func TestGenerateReport(t *testing.T) {
	m := Map{
		"USA:gdp:2019": {{Source: "worldbank", Value: 65120}},
		"USA:co2:2020": {{Source: "worldbank", Value: 14.1}, {Source: "owid", Value: 14.24}},
		"USA:co2:2019": {{Source: "owid", Value: 15.94}},
		"JPN:gdp:2019": {{Source: "worldbank", Value: 40000}},
		"broken":       {{Source: "x"}},
		"USA:gdp:x":    {{Source: "x"}},
	}
	report := GenerateReport(m)

	assert.Equal(t, 4, report.Points)
	assert.Equal(t, 1, report.Conflicts)
	require.Len(t, report.Countries, 2)
	assert.Equal(t, "JPN", string(report.Countries[0].Code))

	usa := report.Countries[1]
	require.Len(t, usa.Indicators, 2)
	assert.Equal(t, "co2", string(usa.Indicators[0].Name))

	co2 := usa.Indicators[0].Points
	require.Len(t, co2, 2)
	assert.Equal(t, 2019, co2[0].Year)
	assert.Equal(t, 2020, co2[1].Year)
	assert.Equal(t, "owid", string(co2[1].Current.Source))
	require.Len(t, co2[1].Overridden, 1)
	assert.Equal(t, "worldbank", string(co2[1].Overridden[0].Source))

	text := report.String()
	assert.Contains(t, text, "overrides 14.1 from worldbank")
}

func TestSaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()

	missing, err := Load(fs, "/out/provenance.yaml")
	require.NoError(t, err)
	assert.Nil(t, missing)

	report := GenerateReport(Map{
		"USA:co2:2020": {{Source: "worldbank", Value: 14.1}, {Source: "owid", Value: 14.24}},
	})
	require.NoError(t, Save(fs, "/out/provenance.yaml", &File{RunID: "run-1", Report: report}))

	data, err := afero.ReadFile(fs, "/out/provenance.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: run-1")

	loaded, err := Load(fs, "/out/provenance.yaml")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, report, loaded.Report)
}

func TestLoadInvalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("provenance: [unclosed"), 0o644))
	_, err := Load(fs, "/bad.yaml")
	assert.Error(t, err)
}
