package analyzer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/seo-optimizer/monitor/metrics"
)

const defaultUserAgent = "SEOAnalyzer/1.0"

// Resource labels used for fetch metrics.
const (
	ResourcePage    = "page"
	ResourceRobots  = "robots"
	ResourceSitemap = "sitemap"
)

// Optional is the outcome of fetching an optional signal. A failed fetch is
// not an error: it is reported as Available == false.
type Optional struct {
	Content   string
	Available bool
}

// Fetcher retrieves documents over plain HTTP(S) GET. There are no retries
// and no timeout beyond what the transport and the caller's context impose.
type Fetcher struct {
	client    *http.Client
	userAgent string
	metrics   metrics.FetchRecorder
}

// NewFetcher creates a fetcher around client. A nil client gets the pooled
// transport from NewTransport and no client timeout.
func NewFetcher(client *http.Client, userAgent string, m metrics.FetchRecorder) *Fetcher {
	if client == nil {
		client = &http.Client{Transport: NewTransport()}
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &Fetcher{client: client, userAgent: userAgent, metrics: m}
}

// NewTransport returns a clone of the default transport with a larger idle
// connection pool. It sets no timeouts of its own.
func NewTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 10
	return t
}

// Fetch retrieves a mandatory document. Network failures and non-2xx
// statuses are returned as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, status, err := f.get(ctx, ResourcePage, url)
	if err != nil {
		return "", &FetchError{URL: url, Err: err}
	}
	if status < 200 || status > 299 {
		return "", &FetchError{URL: url, StatusCode: status}
	}
	return body, nil
}

// FetchOptional retrieves an optional signal such as robots.txt. It never
// fails; anything other than a 2xx response yields an unavailable result.
func (f *Fetcher) FetchOptional(ctx context.Context, resource, url string) Optional {
	body, status, err := f.get(ctx, resource, url)
	if err != nil || status < 200 || status > 299 {
		return Optional{}
	}
	return Optional{Content: body, Available: true}
}

func (f *Fetcher) get(ctx context.Context, resource, url string) (body string, status int, err error) {
	start := time.Now()
	defer func() {
		ok := err == nil && status >= 200 && status <= 299
		f.metrics.RecordFetch(resource, ok, time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resp.StatusCode, nil
	}

	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		// Unknown declared encoding; read the bytes as they are.
		r = resp.Body
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return string(data), resp.StatusCode, nil
}
