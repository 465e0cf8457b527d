package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/closestfriend/replicate-predictions-downloader/pkg/logger"
)

const (
	DefaultBaseURL   = "https://api.replicate.com/v1"
	DefaultUserAgent = "ReplicateDownloader/2.0"

	predictionsPath       = "/predictions"
	defaultRequestTimeout = 60 * time.Second
	maxErrorBodyBytes     = 4 << 10
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type client struct {
	token     string
	baseURL   string
	userAgent string
	hc        HTTPClient

	// downloadHC has no overall deadline; large artifacts may stream for
	// longer than an API call is allowed to take. Cancellation is via ctx.
	downloadHC HTTPClient
}

type Option func(*client)

func WithBaseURL(baseURL string) Option {
	return func(c *client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithHTTPClient replaces the client used for both API calls and downloads.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *client) {
		if hc != nil {
			c.hc = hc
			c.downloadHC = hc
		}
	}
}

func WithDownloadHTTPClient(hc HTTPClient) Option {
	return func(c *client) {
		if hc != nil {
			c.downloadHC = hc
		}
	}
}

func NewClient(token string, opts ...Option) (*client, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}
	c := &client{
		token:     token,
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
		hc:        &http.Client{Timeout: defaultRequestTimeout},
	}
	c.downloadHC = newDownloadHTTPClient()
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// newDownloadHTTPClient bounds the wait for response headers only.
func newDownloadHTTPClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = defaultRequestTimeout
	return &http.Client{Transport: transport}
}

// PredictionsURL is the first page of the listing, with params attached.
func (c *client) PredictionsURL(params url.Values) string {
	u := c.baseURL + predictionsPath
	if enc := params.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// ListPredictions fetches one page of the predictions listing.
func (c *client) ListPredictions(ctx context.Context, pageURL string) (*PredictionsPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	respBody, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	return decodePage(ctx, respBody)
}

// decodePage skips records that cannot be decoded so that one malformed
// prediction does not cost the rest of the listing.
func decodePage(ctx context.Context, data []byte) (*PredictionsPage, error) {
	var raw struct {
		Previous string            `json:"previous"`
		Next     string            `json:"next"`
		Results  []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse predictions page: %w", err)
	}

	page := &PredictionsPage{Previous: raw.Previous, Next: raw.Next}
	page.Results = make([]domain.Prediction, 0, len(raw.Results))
	for i, rec := range raw.Results {
		var p domain.Prediction
		if err := json.Unmarshal(rec, &p); err != nil {
			slog.WarnContext(ctx, "skipping malformed prediction", "index", i, logger.Err(err))
			continue
		}
		page.Results = append(page.Results, p)
	}
	return page, nil
}

func (c *client) doRequest(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, string(respBody))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return respBody, nil
}

// Download streams an artifact into dst and returns the size announced by
// Content-Length (0 when absent). Artifact URLs are pre-signed, so no
// credentials are sent.
func (c *client) Download(ctx context.Context, fileURL string, dst io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.downloadHC.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if _, err := io.Copy(dst, resp.Body); err != nil {
		return 0, fmt.Errorf("failed to read file data: %w", err)
	}

	if resp.ContentLength < 0 {
		return 0, nil
	}
	return resp.ContentLength, nil
}
