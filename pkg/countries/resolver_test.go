package countries_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/worldstat/pkg/countries"
)

func TestResolveCanonical(t *testing.T) {
	r := countries.NewResolver(nil, nil)
	for _, raw := range []string{"USA", "CHN", "IND", "BRA", "NGA", "JPN", "DEU", "GBR", "RUS"} {
		code, err := r.Resolve(raw)
		require.NoError(t, err)
		assert.Equal(t, countries.Code(raw), code)
	}

	code, err := r.Resolve(" usa ")
	require.NoError(t, err)
	assert.Equal(t, countries.Code("USA"), code)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := countries.NewResolver(nil, nil)
	for _, raw := range []string{"USA", "OWID_EU27", "WLD", "US", "", "EUU", "ABCD"} {
		first, err1 := r.Resolve(raw)
		second, err2 := r.Resolve(raw)
		assert.Equal(t, first, second, raw)
		assert.Equal(t, err1, err2, raw)
		if err1 == nil {
			again, err := r.Resolve(string(first))
			require.NoError(t, err, "canonical output must resolve to itself")
			assert.Equal(t, first, again)
		}
	}
}

func TestResolveUnionAlias(t *testing.T) {
	r := countries.NewResolver(nil, nil)

	for _, raw := range []string{"OWID_EU27", "EU27", "EUU", "euu"} {
		code, err := r.Resolve(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, countries.EuropeanUnion, code, raw)
	}

	code, err := r.Resolve("DEU")
	require.NoError(t, err)
	assert.NotEqual(t, countries.EuropeanUnion, code)
}

func TestResolveRejects(t *testing.T) {
	r := countries.NewResolver(nil, nil)
	tests := []struct {
		raw    string
		reason string
	}{
		{"", countries.ReasonBlank},
		{"   ", countries.ReasonBlank},
		{"US", countries.ReasonLength},
		{"ABCD", countries.ReasonLength},
		{"OWID_WRL", countries.ReasonLength},
		{"12A", countries.ReasonLength},
		{"WLD", countries.ReasonAggregate},
		{"HIC", countries.ReasonAggregate},
		{"SSF", countries.ReasonAggregate},
		{"lmc", countries.ReasonAggregate},
	}
	for _, tt := range tests {
		_, err := r.Resolve(tt.raw)
		require.Error(t, err, tt.raw)
		assert.True(t, errors.Is(err, countries.ErrRejected), tt.raw)

		var rejected *countries.RejectedError
		require.ErrorAs(t, err, &rejected)
		assert.Equal(t, tt.reason, rejected.Reason, tt.raw)
	}
}

func TestResolveCustomTables(t *testing.T) {
	r := countries.NewResolver(map[string]countries.Code{"XKX": "KOS", "UNION": "EUU"}, []string{"KOS", "EUU", "FRA"})

	code, err := r.Resolve("XKX")
	require.NoError(t, err, "alias targets are never treated as aggregates")
	assert.Equal(t, countries.Code("KOS"), code)

	_, err = r.Resolve("FRA")
	assert.ErrorIs(t, err, countries.ErrRejected)
}

func TestResolveConcurrent(t *testing.T) {
	r := countries.NewResolver(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			code, err := r.Resolve("OWID_EU27")
			assert.NoError(t, err)
			assert.Equal(t, countries.EuropeanUnion, code)
		}()
	}
	wg.Wait()
}

func TestNames(t *testing.T) {
	n := countries.NewNames(map[countries.Code]string{"GBR": "UK"})

	assert.Equal(t, "UK", n.Name("GBR", "United Kingdom"))
	assert.Equal(t, "European Union", n.Name(countries.EuropeanUnion, ""))
	assert.Equal(t, "Japan", n.Name("JPN", ""))
	assert.Equal(t, "Kosovo Region", n.Name("ZZQ", "Kosovo Region"))
	assert.Equal(t, "ZZQ", n.Name("ZZQ", ""))
}
