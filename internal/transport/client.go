// Package transport provides the HTTP plumbing shared by the source adapters.
package transport

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/agentstation/worldstat/pkg/constants"
	"github.com/agentstation/worldstat/pkg/errors"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
var DefaultHTTPTimeout = constants.DefaultHTTPTimeout

// UserAgent is sent with every request.
const UserAgent = "worldstat/1"

// Client provides HTTP client functionality for one source.
type Client struct {
	http   *http.Client
	source string
	accept string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithAccept sets the Accept header.
func WithAccept(accept string) Option {
	return func(c *Client) {
		c.accept = accept
	}
}

// New creates a new transport client. The source name labels errors.
func New(source string, opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{Timeout: DefaultHTTPTimeout},
		source: source,
		accept: "application/json",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the label used in errors.
func (c *Client) Source() string {
	return c.source
}

// Do performs an HTTP request with the common headers applied.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req.Header.Set("Accept", c.accept)
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		return nil, c.transportError(ctx, req.URL.String(), err)
	}
	return resp, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WrapResource("create", "request", "GET "+url, err)
	}
	return c.Do(ctx, req)
}

// Open performs a GET and returns the body of a successful response for
// streaming. The caller closes the body.
func (c *Client) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer drain(resp)
		return nil, c.statusError(resp, url)
	}
	return resp.Body, nil
}

func (c *Client) transportError(ctx context.Context, url string, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return stderrors.Join(errors.ErrCanceled, err)
	}
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.NewTimeoutError("GET "+url, c.http.Timeout.String(), err.Error())
	}
	return &errors.APIError{
		Source:   c.source,
		Endpoint: url,
		Message:  "request failed",
		Err:      err,
	}
}

func (c *Client) statusError(resp *http.Response, url string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	message := resp.Status
	if len(body) > 0 {
		message = string(body)
	}
	apiErr := errors.NewAPIError(c.source, resp.StatusCode, message)
	apiErr.Endpoint = url
	return apiErr
}

// drain reads the remaining body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
