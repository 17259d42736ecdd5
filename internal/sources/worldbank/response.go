package worldbank

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/agentstation/worldstat/pkg/errors"
)

// pageMeta is element 0 of a successful response. The API is inconsistent
// about quoting numbers, so counters decode through flexInt.
type pageMeta struct {
	Page    flexInt `json:"page"`
	Pages   flexInt `json:"pages"`
	PerPage flexInt `json:"per_page"`
	Total   flexInt `json:"total"`
}

// apiMessage is the one-element envelope the API returns on errors.
type apiMessage struct {
	Message []struct {
		ID    string `json:"id"`
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"message"`
}

type record struct {
	Indicator struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"indicator"`
	Country struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"country"`
	ISO3  string          `json:"countryiso3code"`
	Date  string          `json:"date"`
	Value json.RawMessage `json:"value"`
}

// code prefers the ISO3 code and falls back to the 2-letter id, which the
// resolver rejects.
func (r record) code() string {
	if r.ISO3 != "" {
		return r.ISO3
	}
	return r.Country.ID
}

// rawValue returns the textual value; null becomes the empty string.
func (r record) rawValue() string {
	v := bytes.TrimSpace(r.Value)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	return strings.Trim(string(v), `"`)
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid integer %q: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

// page is one decoded response. Records that fail to decode are counted
// in malformed and dropped.
type page struct {
	meta      pageMeta
	records   []record
	malformed int
}

// decodePage splits the [metadata, records] envelope.
func decodePage(source, endpoint string, body []json.RawMessage) (*page, error) {
	if len(body) == 0 {
		return nil, errors.NewParseError("json", endpoint, "empty response envelope", nil)
	}

	var msg apiMessage
	if err := json.Unmarshal(body[0], &msg); err == nil && len(msg.Message) > 0 {
		m := msg.Message[0]
		return nil, &errors.APIError{
			Source:     source,
			Endpoint:   endpoint,
			StatusCode: http.StatusBadRequest,
			Message:    strings.TrimSpace(m.Key + ": " + m.Value),
		}
	}

	p := &page{}
	if err := json.Unmarshal(body[0], &p.meta); err != nil {
		return nil, errors.NewParseError("json", endpoint, "invalid page metadata", err)
	}
	if len(body) < 2 || bytes.Equal(bytes.TrimSpace(body[1]), []byte("null")) {
		return p, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(body[1], &raw); err != nil {
		return nil, errors.NewParseError("json", endpoint, "invalid records", err)
	}
	p.records = make([]record, 0, len(raw))
	for _, r := range raw {
		var rec record
		if err := json.Unmarshal(r, &rec); err != nil {
			p.malformed++
			continue
		}
		p.records = append(p.records, rec)
	}
	return p, nil
}
