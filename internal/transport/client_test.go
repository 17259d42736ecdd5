package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/worldstat/pkg/errors"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, UserAgent, r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `{"answer": 42}`)
	}))
	defer srv.Close()

	var out struct {
		Answer int `json:"answer"`
	}
	c := New("test")
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, 42, out.Answer)
}

func TestStatusErrors(t *testing.T) {
	status := http.StatusInternalServerError
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, "nope")
	}))
	defer srv.Close()

	c := New("test")
	err := c.GetJSON(context.Background(), srv.URL, &struct{}{})
	require.Error(t, err)
	assert.True(t, errors.IsSourceUnavailable(err))

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "test", apiErr.Source)
	assert.Equal(t, "nope", apiErr.Message)

	status = http.StatusTooManyRequests
	_, err = c.Open(context.Background(), srv.URL)
	assert.True(t, errors.IsRateLimited(err))
}

func TestMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{not json`)
	}))
	defer srv.Close()

	err := New("test").GetJSON(context.Background(), srv.URL, &struct{}{})
	var parseErr *errors.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "json", parseErr.Format)
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New("test", WithTimeout(50*time.Millisecond))
	_, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err))
}

func TestCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("test").Get(ctx, srv.URL)
	assert.True(t, errors.IsCanceled(err))
}

func TestOpenStreamsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/csv", r.Header.Get("Accept"))
		_, _ = io.WriteString(w, "a,b\n1,2\n")
	}))
	defer srv.Close()

	body, err := New("test", WithAccept("text/csv")).Open(context.Background(), srv.URL)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestURL(t *testing.T) {
	got, err := URL("https://api.worldbank.org/v2", url.Values{"format": {"json"}}, "country", "USA", "indicator", "NY.GDP.PCAP.CD")
	require.NoError(t, err)
	assert.Equal(t, "https://api.worldbank.org/v2/country/USA/indicator/NY.GDP.PCAP.CD?format=json", got)

	_, err = URL("://bad", nil)
	assert.Error(t, err)
}
