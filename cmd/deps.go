package cmd

import (
	"net/http"

	"github.com/seo-optimizer/monitor/analyzer"
	"github.com/seo-optimizer/monitor/config"
	"github.com/seo-optimizer/monitor/logging"
	"github.com/seo-optimizer/monitor/metrics"
	"github.com/seo-optimizer/monitor/pagespeed"
)

// newHTTPClient shares the pooled transport. Requests are bounded only by the
// transport defaults and the caller's context.
func newHTTPClient() *http.Client {
	return &http.Client{Transport: analyzer.NewTransport()}
}

// newAnalyzers builds both sides of a scan from configuration.
func newAnalyzers(cfg *config.Config, log logging.Logger, m metrics.Recorder) (*analyzer.Analyzer, *pagespeed.Client) {
	seo := analyzer.New(
		analyzer.WithHTTPClient(newHTTPClient()),
		analyzer.WithUserAgent(cfg.Fetch.UserAgent),
		analyzer.WithMetrics(m),
		analyzer.WithLogger(log),
	)
	perf := pagespeed.NewClient(cfg.PageSpeed.APIKey,
		pagespeed.WithEndpoint(cfg.PageSpeed.Endpoint),
		pagespeed.WithStrategy(cfg.PageSpeed.Strategy),
		pagespeed.WithHTTPClient(newHTTPClient()),
		pagespeed.WithMetrics(m),
		pagespeed.WithLogger(log),
	)
	if cfg.PageSpeed.APIKey == "" {
		log.Warn("PAGESPEED_API_KEY is not set; PageSpeed scores will be null")
	}
	return seo, perf
}
