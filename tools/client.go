package tools

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent", "tools")

const maxResponseSize = 4 << 20

// Client performs the upstream requests of the tools.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient returns a client over the HTTP client,
// http.DefaultClient is used if nil.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		userAgent:  "funtools/1.0",
	}
}

// GetJSON sends a GET request bounded by the timeout,
// and returns the parsed JSON body.
// The query values are added to the query of rawURL.
func (c *Client) GetJSON(ctx context.Context, rawURL string, query url.Values, timeout time.Duration) (gjson.Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return gjson.Result{}, errors.Wrapf(err, "invalid URL: %s", rawURL)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vals := range query {
			for _, v := range vals {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return gjson.Result{}, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, "failed to read response")
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"host", u.Host,
		"path", u.Path,
		"status", resp.StatusCode,
		"size", len(body),
		"elapsed", time.Since(started).String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return gjson.Result{}, errors.Newf("%s: unexpected status %d", u.Host, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.Newf("%s: invalid JSON response", u.Host)
	}
	return gjson.ParseBytes(body), nil
}

// ErrorJSON returns the {"error": msg} payload.
func ErrorJSON(msg string) string {
	js, err := sjson.Set("", "error", msg)
	if err != nil {
		return `{"error":"unknown error"}`
	}
	return js
}
