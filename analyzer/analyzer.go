package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/seo-optimizer/monitor/logging"
	"github.com/seo-optimizer/monitor/metrics"
)

// Analyzer performs SEO analysis on a given URL
type Analyzer struct {
	client    *http.Client
	userAgent string
	metrics   metrics.FetchRecorder
	log       logging.Logger
	fetcher   *Fetcher
}

// Option configures the Analyzer
type Option func(*Analyzer)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(a *Analyzer) {
		a.client = client
	}
}

// WithUserAgent overrides the User-Agent sent with every fetch
func WithUserAgent(ua string) Option {
	return func(a *Analyzer) {
		a.userAgent = ua
	}
}

// WithMetrics sets the fetch metrics recorder
func WithMetrics(m metrics.FetchRecorder) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(log logging.Logger) Option {
	return func(a *Analyzer) {
		a.log = log
	}
}

// New creates a new Analyzer instance
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		log: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.fetcher = NewFetcher(a.client, a.userAgent, a.metrics)
	return a
}

// Analyze fetches pageURL together with robots.txt and sitemap.xml from the
// page's origin and returns the scored SEO facts. Only a failure to fetch the
// page itself is returned as an error; the two optional signals degrade to
// negative facts.
func (a *Analyzer) Analyze(ctx context.Context, pageURL string) (Result, error) {
	origin, err := originOf(pageURL)
	if err != nil {
		return Empty(), &FetchError{URL: pageURL, Err: err}
	}

	var (
		wg      sync.WaitGroup
		page    string
		pageErr error
		robots  Optional
		sitemap Optional
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		page, pageErr = a.fetcher.Fetch(ctx, pageURL)
	}()
	go func() {
		defer wg.Done()
		robots = a.fetcher.FetchOptional(ctx, ResourceRobots, origin+"/robots.txt")
	}()
	go func() {
		defer wg.Done()
		sitemap = a.fetcher.FetchOptional(ctx, ResourceSitemap, origin+"/sitemap.xml")
	}()
	wg.Wait()

	if pageErr != nil {
		return Empty(), pageErr
	}

	result := ExtractFacts(page, pageURL)
	result.Robots = robotsFact(robots)
	result.Sitemap = sitemapFact(sitemap, origin+"/sitemap.xml")
	result.Score = Score(result)

	a.log.Debug("SEO analysis finished",
		logging.String("url", pageURL),
		logging.Int("score", result.Score),
		logging.Bool("robots", result.Robots.Exists),
		logging.Bool("sitemap", result.Sitemap.Exists),
	)
	return result, nil
}

// originOf returns scheme://host for an absolute URL.
func originOf(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid url %q: scheme and host are required", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// ExtractFacts derives the markup facts (title, meta description, canonical
// link, headings) from raw HTML. It never fails: a malformed or empty
// document yields absent facts. Robots, sitemap and score are left zero.
func ExtractFacts(html, pageURL string) Result {
	result := Empty()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return result
	}

	result.Title = analyzeTitleTag(doc)
	result.MetaDescription = analyzeMetaDescription(doc)
	result.Canonical = analyzeCanonical(doc, pageURL)
	result.Headings = analyzeHeadings(doc)
	return result
}

func analyzeTitleTag(doc *goquery.Document) TitleFact {
	sel := doc.Find("title").First()
	if sel.Length() == 0 {
		return TitleFact{}
	}
	title := sel.Text()
	return lengthFact(true, &title, titleMinLength, titleMaxLength)
}

func analyzeMetaDescription(doc *goquery.Document) LengthFact {
	sel := doc.Find(`meta[name="description"]`).First()
	if sel.Length() == 0 {
		return LengthFact{}
	}
	var value *string
	if content := sel.AttrOr("content", ""); content != "" {
		value = &content
	}
	return lengthFact(true, value, descriptionMinLength, descriptionMaxLength)
}

func lengthFact(exists bool, value *string, lo, hi int) LengthFact {
	length := 0
	if value != nil {
		length = utf8.RuneCountInString(*value)
	}
	return LengthFact{
		Exists:          exists,
		Value:           value,
		Length:          length,
		IsOptimalLength: length >= lo && length <= hi,
	}
}

// analyzeCanonical compares the canonical href with the requested URL
// verbatim; no trailing slash, scheme or query normalization is applied.
func analyzeCanonical(doc *goquery.Document, pageURL string) CanonicalFact {
	sel := doc.Find(`link[rel="canonical"]`).First()
	if sel.Length() == 0 {
		return CanonicalFact{}
	}
	fact := CanonicalFact{Exists: true}
	if href := sel.AttrOr("href", ""); href != "" {
		fact.Value = &href
		fact.Matches = href == pageURL
	}
	return fact
}

func analyzeHeadings(doc *goquery.Document) HeadingsFact {
	h1 := headingGroup(doc.Find("h1"))
	h2 := headingGroup(doc.Find("h2"))
	return HeadingsFact{
		H1:                 h1,
		H2:                 h2,
		HasProperStructure: h1.Count == 1 && h2.Count > 0,
	}
}

func headingGroup(sel *goquery.Selection) HeadingGroup {
	group := HeadingGroup{Count: sel.Length(), Values: []string{}}
	sel.Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); text != "" {
			group.Values = append(group.Values, text)
		}
	})
	return group
}

func robotsFact(o Optional) RobotsFact {
	if !o.Available {
		return RobotsFact{}
	}
	content := o.Content
	return RobotsFact{Exists: true, Content: &content}
}

func sitemapFact(o Optional, sitemapURL string) SitemapFact {
	if !o.Available {
		return SitemapFact{}
	}
	return SitemapFact{
		Exists:  true,
		IsValid: strings.Contains(o.Content, "<urlset"),
		URL:     &sitemapURL,
	}
}
