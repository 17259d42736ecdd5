package worldbank

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/worldstat/pkg/countries"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/sources"
)

func newTestSource(url string) *Source {
	return New(sources.Config{
		ID:   "worldbank",
		Kind: sources.KindWorldBank,
		URL:  url,
		Indicators: map[indicators.Name]string{
			"energy": "EG.USE.PCAP.KG.OE",
			"gdp":    "NY.GDP.PCAP.CD",
		},
		PageSize:    2,
		Concurrency: 3,
	})
}

func windowRequest(codes ...countries.Code) sources.Request {
	return sources.Request{
		Countries:     codes,
		Indicators:    []indicators.Name{"energy", "gdp", "co2"},
		Retrieval:     sources.RetrievalWindow,
		WindowYears:   3,
		ReferenceYear: 2020,
	}
}

const usaGDPPage1 = `[{"page":1,"pages":2,"per_page":"2","total":3},[
 {"indicator":{"id":"NY.GDP.PCAP.CD","value":"GDP"},"country":{"id":"US","value":"United States"},"countryiso3code":"USA","date":"2020","value":null},
 {"indicator":{"id":"NY.GDP.PCAP.CD","value":"GDP"},"country":{"id":"US","value":"United States"},"countryiso3code":"USA","date":"2019","value":65120.4}]]`

const usaGDPPage2 = `[{"page":2,"pages":2,"per_page":"2","total":3},[
 {"indicator":{"id":"NY.GDP.PCAP.CD","value":"GDP"},"country":{"id":"US","value":"United States"},"countryiso3code":"USA","date":"2018","value":62996}]]`

func TestFetchWindowPaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "2018:2020", q.Get("date"))
		assert.Equal(t, "2", q.Get("per_page"))
		assert.Empty(t, q.Get("mrnev"))

		switch {
		case r.URL.Path == "/country/USA/indicator/NY.GDP.PCAP.CD" && q.Get("page") == "1":
			fmt.Fprint(w, usaGDPPage1)
		case r.URL.Path == "/country/USA/indicator/NY.GDP.PCAP.CD" && q.Get("page") == "2":
			fmt.Fprint(w, usaGDPPage2)
		case r.URL.Path == "/country/USA/indicator/EG.USE.PCAP.KG.OE":
			fmt.Fprint(w, `[{"page":1,"pages":1,"per_page":"2","total":1},[
			 {"country":{"id":"US","value":"United States"},"countryiso3code":"USA","date":"2015","value":0}]]`)
		default:
			t.Errorf("unexpected request %s", r.URL)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	batch, err := newTestSource(srv.URL).Fetch(context.Background(), windowRequest("USA"))
	require.NoError(t, err)
	assert.Empty(t, batch.Failures)
	require.Equal(t, 4, batch.Len())

	energy := batch.Observations[0]
	assert.Equal(t, sources.ID("worldbank"), energy.Source)
	assert.Equal(t, indicators.Name("energy"), energy.Indicator)
	assert.Equal(t, "0", energy.Value, "zero is data, not null")

	var years []int
	for _, obs := range batch.Observations[1:] {
		assert.Equal(t, "USA", obs.Country)
		assert.Equal(t, "United States", obs.CountryName)
		years = append(years, obs.Year)
	}
	assert.Equal(t, []int{2018, 2019, 2020}, years, "re-sorted oldest to newest")
	assert.Equal(t, "62996", batch.Observations[1].Value)
	assert.Equal(t, "", batch.Observations[3].Value, "null carried as empty")
}

func TestFetchMostRecent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("mrnev"))
		assert.Empty(t, r.URL.Query().Get("date"))
		fmt.Fprint(w, `[{"page":1,"pages":1,"per_page":"2","total":1},[
		 {"country":{"id":"JP","value":"Japan"},"countryiso3code":"JPN","date":"2022","value":"33815.3"}]]`)
	}))
	defer srv.Close()

	req := sources.Request{
		Countries:  []countries.Code{"JPN"},
		Indicators: []indicators.Name{"gdp"},
		Retrieval:  sources.RetrievalMostRecent,
	}
	batch, err := newTestSource(srv.URL).Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, "33815.3", batch.Observations[0].Value)
	assert.Equal(t, 2022, batch.Observations[0].Year)
}

func TestFetchIsolatesPairFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/country/BRA/"):
			w.WriteHeader(http.StatusServiceUnavailable)
		case strings.HasPrefix(r.URL.Path, "/country/XXX/"):
			fmt.Fprint(w, `[{"message":[{"id":"120","key":"Invalid value","value":"The provided parameter value is not valid"}]}]`)
		default:
			fmt.Fprint(w, `[{"page":1,"pages":1},[{"country":{"id":"IN","value":"India"},"countryiso3code":"IND","date":"2020","value":1.5},{"countryiso3code":"IND","date":"20x0","value":2}]]`)
		}
	}))
	defer srv.Close()

	batch, err := newTestSource(srv.URL).Fetch(context.Background(), windowRequest("BRA", "IND", "XXX"))
	require.NoError(t, err, "partial failure is not a source failure")

	require.Len(t, batch.Failures, 4)
	assert.Equal(t, "BRA", batch.Failures[0].Country)
	assert.True(t, errors.IsSourceUnavailable(batch.Failures[0].Err))

	var apiErr *errors.APIError
	require.ErrorAs(t, batch.Failures[2].Err, &apiErr)
	assert.Equal(t, "XXX", batch.Failures[2].Country)
	assert.Contains(t, apiErr.Message, "Invalid value")

	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, 2, batch.Malformed)
	for _, obs := range batch.Observations {
		assert.Equal(t, "IND", obs.Country)
	}
}

func TestFetchTotalFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	batch, err := newTestSource(srv.URL).Fetch(context.Background(), windowRequest("USA"))
	require.Error(t, err)
	var syncErr *errors.SyncError
	require.ErrorAs(t, err, &syncErr)
	assert.Equal(t, "worldbank", syncErr.Source)
	require.NotNil(t, batch)
	assert.Len(t, batch.Failures, 2)
}

func TestFetchAllCountriesAndPageLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/country/all/"))
		fmt.Fprintf(w, `[{"page":%s,"pages":"99"},[{"country":{"id":"1W","value":"World"},"countryiso3code":"WLD","date":"2020","value":1}]]`, r.URL.Query().Get("page"))
	}))
	defer srv.Close()

	src := New(sources.Config{
		ID:         "worldbank",
		URL:        srv.URL,
		Indicators: map[indicators.Name]string{"gdp": "NY.GDP.PCAP.CD"},
		MaxPages:   3,
	})
	req := windowRequest()
	req.Indicators = []indicators.Name{"gdp"}

	batch, err := src.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3, batch.Len())
}

func TestFetchDeterministicOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := strings.Split(r.URL.Path, "/")[2]
		fmt.Fprintf(w, `[{"page":1,"pages":1},[{"countryiso3code":"%s","date":"2020","value":1}]]`, code)
	}))
	defer srv.Close()

	req := windowRequest("USA", "CHN", "IND", "BRA", "NGA", "JPN")
	want := []string{"USA", "USA", "CHN", "CHN", "IND", "IND", "BRA", "BRA", "NGA", "NGA", "JPN", "JPN"}
	for i := 0; i < 5; i++ {
		batch, err := newTestSource(srv.URL).Fetch(context.Background(), req)
		require.NoError(t, err)
		var got []string
		for obs := range batch.All() {
			got = append(got, obs.Country)
		}
		assert.Equal(t, want, got)
	}
}

func TestFetchNoBoundIndicators(t *testing.T) {
	req := windowRequest("USA")
	req.Indicators = []indicators.Name{"co2"}
	batch, err := newTestSource("http://127.0.0.1:0").Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())
}

func TestDecodePageEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"page":0,"pages":0,"per_page":"50","total":0},null]`)
	}))
	defer srv.Close()

	batch, err := newTestSource(srv.URL).Fetch(context.Background(), windowRequest("EUU"))
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())
	assert.Empty(t, batch.Failures)
}

func TestFetchDropsMistypedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/NY.GDP.PCAP.CD") {
			fmt.Fprint(w, `[{"page":1,"pages":1,"per_page":"2","total":0},[]]`)
			return
		}
		fmt.Fprint(w, `[{"page":1,"pages":1,"per_page":"2","total":3},[
		 {"countryiso3code":"USA","date":"2020","value":1.5},
		 {"countryiso3code":"USA","date":2019,"value":2.5},
		 {"countryiso3code":"USA","country":"US","date":"2018","value":3.5}]]`)
	}))
	defer srv.Close()

	batch, err := newTestSource(srv.URL).Fetch(context.Background(), windowRequest("USA"))
	require.NoError(t, err)
	assert.Empty(t, batch.Failures)
	assert.Equal(t, 2, batch.Malformed)
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, 2020, batch.Observations[0].Year)
	assert.Equal(t, "1.5", batch.Observations[0].Value)
}

func TestFailureCause(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{errors.NewTimeoutError("GET /x", "1s", "deadline"), "timeout"},
		{errors.NewAPIError("worldbank", http.StatusTooManyRequests, "slow down"), "rate_limited"},
		{errors.NewAPIError("worldbank", http.StatusBadGateway, "bad gateway"), "unavailable"},
		{errors.NewAPIError("worldbank", http.StatusBadRequest, "invalid value"), "rejected"},
		{errors.NewParseError("json", "/x", "invalid records", nil), "rejected"},
		{errors.ErrCanceled, "canceled"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, failureCause(tt.err), tt.err.Error())
	}
}
