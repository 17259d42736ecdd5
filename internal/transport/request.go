package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/agentstation/worldstat/pkg/errors"
)

// URL joins a base URL, path segments and query parameters.
func URL(base string, query url.Values, segments ...string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.WrapValidation("url", err)
	}
	u = u.JoinPath(segments...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}

// GetJSON performs a GET and decodes the JSON response into target.
func (c *Client) GetJSON(ctx context.Context, url string, target any) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	return c.DecodeResponse(resp, url, target)
}

// DecodeResponse decodes a JSON response into the target structure and
// closes the body. Non-200 responses become an APIError.
func (c *Client) DecodeResponse(resp *http.Response, url string, target any) error {
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &errors.ParseError{
			Format:  "json",
			File:    url,
			Message: err.Error(),
			Err:     err,
		}
	}
	return nil
}
