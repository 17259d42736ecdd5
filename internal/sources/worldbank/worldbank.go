// Package worldbank reads indicator series from the World Bank v2 API.
//
// One request sequence runs per (country, indicator) pair. Each pair
// follows the pagination metadata until the last page and is isolated
// from every other pair: a failure is recorded in the batch, logged and
// the pair is left absent.
package worldbank

import (
	"cmp"
	"context"
	"encoding/json"
	"net/url"
	"slices"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/worldstat/internal/transport"
	"github.com/agentstation/worldstat/pkg/constants"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/logging"
	"github.com/agentstation/worldstat/pkg/sources"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.worldbank.org/v2"

// allCountries is the API's wildcard country code.
const allCountries = "all"

// Source fetches observations from the World Bank API.
type Source struct {
	cfg    sources.Config
	client *transport.Client
}

// New creates a World Bank source from a declaration.
func New(cfg sources.Config, opts ...transport.Option) *Source {
	if cfg.URL == "" {
		cfg.URL = DefaultBaseURL
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = constants.DefaultPageSize
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = constants.MaxPages
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = constants.MaxConcurrentRequests
	}
	opts = append([]transport.Option{transport.WithTimeout(cfg.Timeout)}, opts...)
	return &Source{
		cfg:    cfg,
		client: transport.New(string(cfg.ID), opts...),
	}
}

// ID returns the source identifier.
func (s *Source) ID() sources.ID {
	return s.cfg.ID
}

type pair struct {
	country   string
	indicator indicators.Name
	code      string
}

// Fetch retrieves every bound (country, indicator) pair of the request.
// Emission order follows the request, not completion order.
func (s *Source) Fetch(ctx context.Context, req sources.Request) (*sources.Batch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).With().Str("source", string(s.cfg.ID)).Logger()

	pairs := s.pairs(req)
	if len(pairs) == 0 {
		logger.Debug().Msg("No indicators bound for this request")
		return sources.NewBatch(s.cfg.ID), nil
	}

	slots := make([]*sources.Batch, len(pairs))
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, p := range pairs {
		g.Go(func() error {
			slot := sources.NewBatch(s.cfg.ID)
			if err := s.fetchPair(ctx, req, p, slot); err != nil {
				logger.Warn().
					Err(err).
					Str("country", p.country).
					Str("indicator", string(p.indicator)).
					Str("cause", failureCause(err)).
					Msg("Fetch failed, marking pair absent")
				slot.Observations = nil
				slot.Malformed = 0
				slot.Fail(p.country, p.indicator, err)
			}
			slots[i] = slot
			return nil
		})
	}
	_ = g.Wait()

	batch := sources.NewBatch(s.cfg.ID)
	for _, slot := range slots {
		batch.Append(slot)
	}

	logger.Info().
		Int("pairs", len(pairs)).
		Int("observations", batch.Len()).
		Int("failures", len(batch.Failures)).
		Int("malformed", batch.Malformed).
		Msg("Fetched")

	if len(batch.Failures) == len(pairs) {
		cause := batch.Failures[0].Err
		if ctx.Err() != nil {
			cause = ctx.Err()
		}
		return batch, errors.NewSyncError(string(s.cfg.ID), cause)
	}
	return batch, nil
}

// failureCause classifies a pair failure for logging.
func failureCause(err error) string {
	switch {
	case errors.IsCanceled(err):
		return "canceled"
	case errors.IsTimeout(err):
		return "timeout"
	case errors.IsRateLimited(err):
		return "rate_limited"
	case errors.IsSourceUnavailable(err):
		return "unavailable"
	}
	return "rejected"
}

// pairs expands the request, country-major, in request order.
func (s *Source) pairs(req sources.Request) []pair {
	codes := make([]string, 0, len(req.Countries))
	for _, c := range req.Countries {
		codes = append(codes, string(c))
	}
	if len(codes) == 0 {
		codes = []string{allCountries}
	}

	var out []pair
	for _, country := range codes {
		for _, name := range req.Indicators {
			code, ok := s.cfg.Indicators[name]
			if !ok {
				continue
			}
			out = append(out, pair{country: country, indicator: name, code: code})
		}
	}
	return out
}

func (s *Source) fetchPair(ctx context.Context, req sources.Request, p pair, slot *sources.Batch) error {
	var records []record
	pages := 1
	for n := 1; n <= pages; n++ {
		if n > s.cfg.MaxPages {
			logging.FromContext(ctx).Warn().
				Str("source", string(s.cfg.ID)).
				Str("country", p.country).
				Str("indicator", string(p.indicator)).
				Int("pages", pages).
				Msg("Stopping at page limit")
			break
		}
		pg, err := s.fetchPage(ctx, req, p, n)
		if err != nil {
			return err
		}
		records = append(records, pg.records...)
		slot.Malformed += pg.malformed
		pages = int(pg.meta.Pages)
	}

	type dated struct {
		year int
		rec  record
	}
	rows := make([]dated, 0, len(records))
	for _, rec := range records {
		year, err := strconv.Atoi(rec.Date)
		if err != nil {
			slot.Malformed++
			continue
		}
		rows = append(rows, dated{year: year, rec: rec})
	}
	// the API returns newest first
	slices.SortStableFunc(rows, func(a, b dated) int { return cmp.Compare(a.year, b.year) })

	for _, row := range rows {
		slot.Add(sources.Observation{
			Country:     row.rec.code(),
			CountryName: row.rec.Country.Value,
			Indicator:   p.indicator,
			Year:        row.year,
			Value:       row.rec.rawValue(),
		})
	}
	return nil
}

func (s *Source) fetchPage(ctx context.Context, req sources.Request, p pair, n int) (*page, error) {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("per_page", strconv.Itoa(s.cfg.PageSize))
	query.Set("page", strconv.Itoa(n))
	switch req.Retrieval {
	case sources.RetrievalMostRecent:
		query.Set("mrnev", "1")
	default:
		from, to := req.Window()
		query.Set("date", strconv.Itoa(from)+":"+strconv.Itoa(to))
	}

	endpoint, err := transport.URL(s.cfg.URL, query, "country", p.country, "indicator", p.code)
	if err != nil {
		return nil, err
	}

	var body []json.RawMessage
	if err := s.client.GetJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}
	return decodePage(string(s.cfg.ID), endpoint, body)
}
