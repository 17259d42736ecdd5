package registry

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/worldstat/internal/sources/owid"
	"github.com/agentstation/worldstat/internal/sources/worldbank"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/sources"
)

func declarations() []sources.Config {
	return []sources.Config{
		{
			ID:         "worldbank",
			Kind:       sources.KindWorldBank,
			URL:        worldbank.DefaultBaseURL,
			Indicators: map[indicators.Name]string{"gdp": "NY.GDP.PCAP.CD"},
		},
		{
			ID:         "owid",
			Kind:       sources.KindOWID,
			URL:        owid.DefaultCO2URL,
			Indicators: map[indicators.Name]string{"co2": "co2_per_capita"},
		},
	}
}

func TestBuild(t *testing.T) {
	set, err := Build(declarations(), Env{Fs: afero.NewMemMapFs()})
	require.NoError(t, err)
	assert.Equal(t, []sources.ID{"owid", "worldbank"}, set.IDs())

	wb, ok := set.Get("worldbank")
	require.True(t, ok)
	assert.IsType(t, &worldbank.Source{}, wb)

	ow, ok := set.Get("owid")
	require.True(t, ok)
	assert.IsType(t, &owid.Source{}, ow)
}

func TestBuildRejects(t *testing.T) {
	t.Run("duplicate id", func(t *testing.T) {
		cfgs := declarations()
		cfgs[1].ID = "worldbank"
		_, err := Build(cfgs, Env{})
		assert.True(t, errors.IsValidationError(err))
	})

	t.Run("unknown kind", func(t *testing.T) {
		cfgs := declarations()
		cfgs[0].Kind = "eurostat"
		_, err := Build(cfgs, Env{})
		var vErr *errors.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "kind", vErr.Field)
	})

	t.Run("invalid declaration", func(t *testing.T) {
		cfgs := declarations()
		cfgs[0].Indicators = nil
		_, err := Build(cfgs, Env{})
		assert.Error(t, err)
	})
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []sources.Kind{sources.KindOWID, sources.KindWorldBank}, Kinds())
	assert.True(t, Has(sources.KindWorldBank))
	assert.False(t, Has("eurostat"))
}
