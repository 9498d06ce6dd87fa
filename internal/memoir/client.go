// Package memoir is a client for the Memoir snapshot API: semantic search and
// time-range queries over captured screen memories.
package memoir

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "http://localhost:8000"
	httpTimeout    = 15 * time.Second

	// dateLayout is the zone-less ISO format the API expects for date filters.
	dateLayout = "2006-01-02T15:04:05"
)

// Client talks to a Memoir server.
type Client struct {
	http    *http.Client
	baseURL string
}

// NewClient creates a client for baseURL. An empty baseURL falls back to
// MEMOIR_API_URL, then http://localhost:8000.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("MEMOIR_API_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    &http.Client{Timeout: httpTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the server the client points at.
func (c *Client) BaseURL() string { return c.baseURL }

// APIError is a non-2xx answer from the server.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("memoir %s: status %d: %s", e.Path, e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type validationError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

type errorBody struct {
	Detail []validationError `json:"detail"`
}

// Search runs a semantic similarity search.
func (c *Client) Search(ctx context.Context, p SearchParams) (*Response, error) {
	var resp Response
	if err := c.get(ctx, "/snapshots/search", p.values(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Range lists snapshots inside a time window.
func (c *Client) Range(ctx context.Context, p RangeParams) (*Response, error) {
	var resp Response
	if err := c.get(ctx, "/snapshots/range", p.values(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns account level info, including the oldest snapshot timestamp.
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := c.get(ctx, "/me", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Health checks the server status endpoint.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Healthy reports whether the server answers its health check.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.Health(ctx)
	return err == nil
}

// ImageURL is the address of a snapshot image by filename.
func (c *Client) ImageURL(filename string) string {
	return c.baseURL + "/images/" + url.PathEscape(filename)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(path, resp, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func newAPIError(path string, resp *http.Response, data []byte) *APIError {
	msg := http.StatusText(resp.StatusCode)
	var body errorBody
	if json.Unmarshal(data, &body) == nil && len(body.Detail) > 0 && body.Detail[0].Msg != "" {
		msg = body.Detail[0].Msg
	}
	return &APIError{Path: path, Status: resp.StatusCode, Message: msg}
}

// SearchParams are the /snapshots/search query parameters. Zero values are
// omitted and left to the server defaults.
type SearchParams struct {
	Query        string
	K            int
	Threshold    *float64
	Start        time.Time
	End          time.Time
	IncludeStats bool
	IncludeImage bool
}

func (p SearchParams) values() url.Values {
	q := url.Values{}
	q.Set("query", p.Query)
	if p.K > 0 {
		q.Set("k", strconv.Itoa(p.K))
	}
	if p.Threshold != nil {
		q.Set("threshold", strconv.FormatFloat(*p.Threshold, 'f', -1, 64))
	}
	if !p.Start.IsZero() {
		q.Set("start_date", FormatDate(p.Start))
	}
	if !p.End.IsZero() {
		q.Set("end_date", FormatDate(p.End))
	}
	setFlags(q, p.IncludeStats, p.IncludeImage)
	return q
}

// RangeParams are the /snapshots/range query parameters.
type RangeParams struct {
	Start        time.Time
	End          time.Time
	K            int
	IncludeStats bool
	IncludeImage bool
}

func (p RangeParams) values() url.Values {
	q := url.Values{}
	q.Set("start_date", FormatDate(p.Start))
	q.Set("end_date", FormatDate(p.End))
	if p.K > 0 {
		q.Set("k", strconv.Itoa(p.K))
	}
	setFlags(q, p.IncludeStats, p.IncludeImage)
	return q
}

func setFlags(q url.Values, stats, image bool) {
	if stats {
		q.Set("include_stats", "true")
	}
	if image {
		q.Set("include_image", "true")
	}
}

// FormatDate renders t in the API's date filter format, in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
