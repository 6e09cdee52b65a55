// Package votehub is the client for the VoteHub-shaped polls provider.
package votehub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"pollscope/internal/types/poll"
)

const DefaultBaseURL = "https://api.votehub.com"

// maxErrorBody caps how much of an error response is kept on APIError.
const maxErrorBody = 4 << 10

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
	CatalogTTL     time.Duration

	// CatalogRetryAfter is how long a failed catalog fetch is remembered
	// before the provider is asked again.
	CatalogRetryAfter time.Duration
	Logger            *zap.Logger
}

type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxAttempts    int
	baseDelay      time.Duration
	attemptTimeout time.Duration
	catalog        *expirable.LRU[string, Catalog]
	catalogErr     *expirable.LRU[string, error]
	log            *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 250 * time.Millisecond
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	if opts.CatalogTTL <= 0 {
		opts.CatalogTTL = time.Hour
	}
	if opts.CatalogRetryAfter <= 0 {
		opts.CatalogRetryAfter = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     opts.HTTPClient,
		maxAttempts:    opts.MaxAttempts,
		baseDelay:      opts.BaseDelay,
		attemptTimeout: opts.AttemptTimeout,
		catalog:        expirable.NewLRU[string, Catalog](1, nil, opts.CatalogTTL),
		catalogErr:     expirable.NewLRU[string, error](1, nil, opts.CatalogRetryAfter),
		log:            opts.Logger,
	}
}

// FetchPolls issues the filter to GET /polls. No matches is an empty slice,
// not an error. A filter built from bare keywords is narrowed client side to
// records whose subject mentions one of them, when any does.
func (c *Client) FetchPolls(ctx context.Context, f poll.Filter) ([]poll.Record, error) {
	var out []poll.Record
	found, err := c.get(ctx, "/polls", Params(f), &out, c.maxAttempts)
	if err != nil {
		return nil, err
	}
	if !found || out == nil {
		return []poll.Record{}, nil
	}
	if len(f.Keywords) > 0 {
		out = narrowByKeywords(out, f.Keywords)
	}
	c.log.Debug("polls fetched", zap.Int("count", len(out)))
	return out, nil
}

// Params translates a filter into provider query parameters.
func Params(f poll.Filter) url.Values {
	v := url.Values{}
	set := func(k, s string) {
		if s = strings.TrimSpace(s); s != "" {
			v.Set(k, s)
		}
	}
	set("subject", f.Subject)
	set("poll_type", f.PollType)
	set("pollster", f.Pollster)
	set("population", f.Population)
	if !f.From.IsZero() {
		v.Set("from_date", f.From.Format(poll.DateLayout))
	}
	if !f.To.IsZero() {
		v.Set("to_date", f.To.Format(poll.DateLayout))
	}
	if f.MinSampleSize > 0 {
		v.Set("min_sample_size", strconv.Itoa(f.MinSampleSize))
	}
	for _, c := range f.Candidates {
		if c = strings.TrimSpace(c); c != "" {
			v.Add("candidate", c)
		}
	}
	return v
}

func narrowByKeywords(recs []poll.Record, keywords []string) []poll.Record {
	var kept []poll.Record
	for _, r := range recs {
		subj := strings.ToLower(r.Subject)
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if len(kw) >= 3 && strings.Contains(subj, kw) {
				kept = append(kept, r)
				break
			}
		}
	}
	if len(kept) == 0 {
		return recs
	}
	return kept
}

// get performs a GET with up to attempts tries and decodes a 200 body into
// out. It returns found=false on 404.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any, attempts int) (bool, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var last error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(c.baseDelay * time.Duration(1<<(attempt-1)))
			select {
			case <-ctx.Done():
				t.Stop()
				return false, ctx.Err()
			case <-t.C:
			}
		}

		found, err := c.once(ctx, u, out)
		if err == nil {
			return found, nil
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		last = err
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			break
		}
		var decErr *decodeError
		if errors.As(err, &decErr) {
			break
		}
		c.log.Warn("votehub request failed",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return false, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, last)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "failed to decode response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func (c *Client) once(ctx context.Context, u string, out any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to fetch %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, handleAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, &decodeError{err: err}
	}
	return true, nil
}

func handleAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    http.StatusText(resp.StatusCode),
		Body:       string(body),
	}
}
