// Package pagespeed adapts the Google PageSpeed Insights API, which scores
// performance, accessibility, best practices and SEO for a URL.
package pagespeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/seo-optimizer/monitor/logging"
	"github.com/seo-optimizer/monitor/metrics"
)

const (
	DefaultEndpoint = "https://www.googleapis.com/pagespeedonline/v5/runPagespeed"
	DefaultStrategy = "mobile"
)

// Lighthouse category identifiers requested from the API.
const (
	CategoryPerformance   = "performance"
	CategoryAccessibility = "accessibility"
	CategoryBestPractices = "best-practices"
	CategorySEO           = "seo"
)

var categories = []string{
	CategoryPerformance,
	CategoryAccessibility,
	CategoryBestPractices,
	CategorySEO,
}

// Client calls the PageSpeed API. The API key is supplied at construction;
// the client never reads the environment.
type Client struct {
	apiKey   string
	endpoint string
	strategy string
	client   *http.Client
	metrics  metrics.OracleRecorder
	log      logging.Logger
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

func WithStrategy(strategy string) Option {
	return func(c *Client) {
		c.strategy = strategy
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func WithMetrics(m metrics.OracleRecorder) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithLogger(log logging.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a client for apiKey. An empty key is accepted; every
// Analyze call then fails with ErrNotConfigured.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		strategy: DefaultStrategy,
		client:   &http.Client{},
		metrics:  metrics.NewNoop(),
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.strategy == "" {
		c.strategy = DefaultStrategy
	}
	return c
}

// Analyze runs PageSpeed for target. Category scores arrive as fractions in
// [0,1] and are returned rescaled to 0-100; missing categories stay nil.
func (c *Client) Analyze(ctx context.Context, target string) (result Result, err error) {
	if c.apiKey == "" {
		return Result{}, &OracleError{Reason: "not configured", Err: ErrNotConfigured}
	}

	start := time.Now()
	defer func() {
		c.metrics.RecordOracleRequest(err == nil, time.Since(start).Seconds())
	}()

	reqURL, err := c.requestURL(target)
	if err != nil {
		return Result{}, &OracleError{Reason: "build request", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, &OracleError{Reason: "build request", Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, &OracleError{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, &OracleError{Reason: "unexpected response", StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &OracleError{Reason: "read response", Err: err}
	}

	var decoded apiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Result{}, &OracleError{Reason: "decode response", Err: err}
	}

	lh := decoded.LighthouseResult
	result = Result{
		Scores: Scores{
			Performance:   rescale(lh.Categories[CategoryPerformance]),
			Accessibility: rescale(lh.Categories[CategoryAccessibility]),
			BestPractices: rescale(lh.Categories[CategoryBestPractices]),
			SEO:           rescale(lh.Categories[CategorySEO]),
		},
		Diagnostics: Diagnostics{
			LighthouseVersion: lh.LighthouseVersion,
			FinalURL:          lh.FinalURL,
			FetchTime:         lh.FetchTime,
			Payload:           json.RawMessage(body),
		},
	}

	c.log.Debug("PageSpeed analysis finished",
		logging.String("url", target),
		logging.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (c *Client) requestURL(target string) (string, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", c.endpoint, err)
	}
	q := u.Query()
	q.Set("url", target)
	q.Set("key", c.apiKey)
	q.Set("strategy", c.strategy)
	for _, category := range categories {
		q.Add("category", category)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func rescale(c apiCategory) *int {
	if c.Score == nil {
		return nil
	}
	v := int(math.Round(*c.Score * 100))
	return &v
}
