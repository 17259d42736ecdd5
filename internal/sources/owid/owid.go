// Package owid streams indicator values out of the Our World in Data bulk
// CSV tables.
//
// The table covers every country and year in one file. Columns are located
// by header name, so their order is free; indicator columns missing from
// the header simply produce no observations.
package owid

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/agentstation/worldstat/internal/transport"
	"github.com/agentstation/worldstat/pkg/constants"
	"github.com/agentstation/worldstat/pkg/errors"
	"github.com/agentstation/worldstat/pkg/indicators"
	"github.com/agentstation/worldstat/pkg/logging"
	"github.com/agentstation/worldstat/pkg/sources"
)

// DefaultCO2URL is the published CO2 and greenhouse gas table.
const DefaultCO2URL = "https://raw.githubusercontent.com/owid/co2-data/master/owid-co2-data.csv"

// Key columns of every OWID table.
const (
	CodeColumn = "iso_code"
	NameColumn = "country"
	YearColumn = "year"
)

// regionCodes maps region names to the OWID code used when a row leaves
// iso_code blank. Only regions the resolver folds into a country entity
// are listed; other aggregates stay blank and are rejected downstream.
var regionCodes = map[string]string{
	"European Union (27)": "OWID_EU27",
}

// rowCode returns the row's country code, falling back to the region
// name table when the code is blank.
func rowCode(code, name string) string {
	if code = strings.TrimSpace(code); code != "" {
		return code
	}
	return regionCodes[strings.TrimSpace(name)]
}

// Source reads a bulk table from a URL or a local file.
type Source struct {
	cfg    sources.Config
	fs     afero.Fs
	client *transport.Client
}

// Option configures a Source.
type Option func(*Source)

// WithFs sets the filesystem local table paths are read from.
func WithFs(fs afero.Fs) Option {
	return func(s *Source) {
		s.fs = fs
	}
}

// WithTransport sets transport options for URL tables.
func WithTransport(opts ...transport.Option) Option {
	return func(s *Source) {
		s.client = transport.New(string(s.cfg.ID), append([]transport.Option{
			transport.WithTimeout(s.timeout()),
			transport.WithAccept("text/csv"),
		}, opts...)...)
	}
}

// New creates an OWID source from a declaration.
func New(cfg sources.Config, opts ...Option) *Source {
	s := &Source{cfg: cfg, fs: afero.NewOsFs()}
	WithTransport()(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) timeout() time.Duration {
	if s.cfg.Timeout > 0 {
		return s.cfg.Timeout
	}
	return constants.BulkDownloadTimeout
}

// ID returns the source identifier.
func (s *Source) ID() sources.ID {
	return s.cfg.ID
}

// Fetch streams the table and emits one observation per row and bound
// indicator cell. Window retrieval keeps only rows inside the window.
func (s *Source) Fetch(ctx context.Context, req sources.Request) (*sources.Batch, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logger := logging.FromContext(ctx).With().Str("source", string(s.cfg.ID)).Logger()

	bound := make([]indicators.Name, 0, len(req.Indicators))
	for _, name := range req.Indicators {
		if _, ok := s.cfg.Indicators[name]; ok {
			bound = append(bound, name)
		}
	}
	if len(bound) == 0 {
		logger.Debug().Msg("No indicators bound for this request")
		return sources.NewBatch(s.cfg.ID), nil
	}

	body, location, err := s.open(ctx)
	if err != nil {
		return nil, errors.NewSyncError(string(s.cfg.ID), err)
	}
	defer func() { _ = body.Close() }()

	batch, err := s.scan(ctx, body, location, req, bound)
	if err != nil {
		return batch, errors.NewSyncError(string(s.cfg.ID), err)
	}

	logger.Info().
		Str("table", location).
		Int("observations", batch.Len()).
		Int("malformed", batch.Malformed).
		Msg("Fetched")
	return batch, nil
}

func (s *Source) open(ctx context.Context) (io.ReadCloser, string, error) {
	if s.cfg.Path != "" {
		f, err := s.fs.Open(s.cfg.Path)
		if err != nil {
			return nil, s.cfg.Path, errors.WrapIO("open", s.cfg.Path, err)
		}
		return f, s.cfg.Path, nil
	}
	url := s.cfg.URL
	if url == "" {
		url = DefaultCO2URL
	}
	body, err := s.client.Open(ctx, url)
	return body, url, err
}

type columns struct {
	code, name, year int
	values           map[indicators.Name]int
	width            int
}

func (s *Source) header(record []string, location string, bound []indicators.Name) (*columns, error) {
	index := make(map[string]int, len(record))
	for i, h := range record {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}

	cols := &columns{name: -1, values: make(map[indicators.Name]int), width: len(record)}
	var ok bool
	if cols.code, ok = index[CodeColumn]; !ok {
		return nil, &errors.ParseError{Format: "csv", File: location, Line: 1, Message: "missing column " + CodeColumn}
	}
	if cols.year, ok = index[YearColumn]; !ok {
		return nil, &errors.ParseError{Format: "csv", File: location, Line: 1, Message: "missing column " + YearColumn}
	}
	if i, ok := index[NameColumn]; ok {
		cols.name = i
	}
	for _, name := range bound {
		if i, ok := index[s.cfg.Indicators[name]]; ok {
			cols.values[name] = i
		}
	}
	return cols, nil
}

func (s *Source) scan(ctx context.Context, r io.Reader, location string, req sources.Request, bound []indicators.Name) (*sources.Batch, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	head, err := reader.Read()
	if err != nil {
		return nil, errors.WrapParse("csv", location, err)
	}
	cols, err := s.header(head, location, bound)
	if err != nil {
		return nil, err
	}

	batch := sources.NewBatch(s.cfg.ID)
	if len(cols.values) == 0 {
		logging.FromContext(ctx).Warn().
			Str("source", string(s.cfg.ID)).
			Str("table", location).
			Msg("None of the bound indicator columns are present")
		return batch, nil
	}

	from, to := 0, 0
	if req.Retrieval == sources.RetrievalWindow {
		from, to = req.Window()
	}

	for line := 2; ; line++ {
		if line%4096 == 0 && ctx.Err() != nil {
			return batch, ctx.Err()
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if stderrors.As(err, &parseErr) {
			batch.Malformed++
			continue
		}
		if err != nil {
			return batch, errors.WrapIO("read", location, err)
		}
		if len(record) != cols.width {
			batch.Malformed++
			continue
		}

		year, err := strconv.Atoi(strings.TrimSpace(record[cols.year]))
		if err != nil {
			batch.Malformed++
			continue
		}
		if to != 0 && (year < from || year > to) {
			continue
		}

		name := ""
		if cols.name >= 0 {
			name = record[cols.name]
		}
		code := rowCode(record[cols.code], name)
		for _, ind := range bound {
			i, ok := cols.values[ind]
			if !ok {
				continue
			}
			value := strings.TrimSpace(record[i])
			if value == "" {
				continue
			}
			batch.Add(sources.Observation{
				Country:     code,
				CountryName: name,
				Indicator:   ind,
				Year:        year,
				Value:       value,
			})
		}
	}
	return batch, nil
}
