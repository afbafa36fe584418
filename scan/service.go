// Package scan runs one analysis of a URL: the SEO analyzer and PageSpeed in
// parallel, then normalization, persistence and notification.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seo-optimizer/monitor/analyzer"
	"github.com/seo-optimizer/monitor/events"
	"github.com/seo-optimizer/monitor/logging"
	"github.com/seo-optimizer/monitor/metrics"
	"github.com/seo-optimizer/monitor/pagespeed"
	"github.com/seo-optimizer/monitor/report"
	"github.com/seo-optimizer/monitor/store"
)

type SEOAnalyzer interface {
	Analyze(ctx context.Context, pageURL string) (analyzer.Result, error)
}

type PerformanceAnalyzer interface {
	Analyze(ctx context.Context, target string) (pagespeed.Result, error)
}

type URLMarker interface {
	MarkScanned(ctx context.Context, id uuid.UUID, at time.Time) error
}

type AnalysisCreator interface {
	Create(ctx context.Context, a *store.Analysis) error
}

type StatsRecorder interface {
	RecordScan(seoOK, oracleOK bool)
}

// Outcome reports which side, if any, was replaced by its empty result.
type Outcome struct {
	SEOErr    error
	OracleErr error
}

func (o Outcome) SEOOK() bool    { return o.SEOErr == nil }
func (o Outcome) OracleOK() bool { return o.OracleErr == nil }

type Service struct {
	seo       SEOAnalyzer
	perf      PerformanceAnalyzer
	urls      URLMarker
	analyses  AnalysisCreator
	publisher events.Publisher
	stats     StatsRecorder
	metrics   metrics.ScanRecorder
	log       logging.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithStats(r StatsRecorder) Option {
	return func(s *Service) {
		s.stats = r
	}
}

func WithMetrics(m metrics.ScanRecorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(log logging.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New wires a service. urls and analyses may be nil when only Analyze is used.
func New(seo SEOAnalyzer, perf PerformanceAnalyzer, urls URLMarker, analyses AnalysisCreator, opts ...Option) *Service {
	s := &Service{
		seo:       seo,
		perf:      perf,
		urls:      urls,
		analyses:  analyses,
		publisher: events.Noop{},
		metrics:   metrics.NewNoop(),
		log:       logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs both sides concurrently and normalizes the outcome. A failing
// side never aborts the other; it is substituted with its empty result and
// reported in the Outcome.
func (s *Service) Analyze(ctx context.Context, pageURL string) (report.Record, Outcome) {
	var (
		wg      sync.WaitGroup
		seo     analyzer.Result
		perf    pagespeed.Result
		outcome Outcome
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		seo, outcome.SEOErr = s.seo.Analyze(ctx, pageURL)
	}()
	go func() {
		defer wg.Done()
		perf, outcome.OracleErr = s.perf.Analyze(ctx, pageURL)
	}()
	wg.Wait()

	if outcome.SEOErr != nil {
		s.log.Warn("SEO analysis failed", logging.String("url", pageURL), logging.Error(outcome.SEOErr))
		seo = analyzer.Empty()
	}
	if outcome.OracleErr != nil {
		s.log.Warn("PageSpeed analysis failed", logging.String("url", pageURL), logging.Error(outcome.OracleErr))
		perf = pagespeed.Failed(outcome.OracleErr)
	}

	return report.Normalize(perf, seo), outcome
}

// Rescan analyzes u, stores the record and marks u as scanned. Only storage
// failures are returned; analysis failures are already folded into the record.
// Scan counters are recorded here and not in Analyze, so ad-hoc analyses do
// not count as scans.
func (s *Service) Rescan(ctx context.Context, u *store.URL) (*store.Analysis, error) {
	if s.urls == nil || s.analyses == nil {
		return nil, errors.New("rescan requires storage")
	}

	start := time.Now()
	record, outcome := s.Analyze(ctx, u.URL)
	s.metrics.RecordScan(outcome.SEOOK(), outcome.OracleOK(), time.Since(start).Seconds())
	if s.stats != nil {
		s.stats.RecordScan(outcome.SEOOK(), outcome.OracleOK())
	}

	a := store.NewAnalysis(u.ID, record)
	a.CreatedAt = s.now().UTC()
	if err := s.analyses.Create(ctx, a); err != nil {
		return nil, err
	}

	if err := s.urls.MarkScanned(ctx, u.ID, a.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to mark url scanned: %w", err)
	}

	event := events.AnalysisCompleted{
		AnalysisID: a.ID.String(),
		URLID:      u.ID.String(),
		URL:        u.URL,
		CreatedAt:  a.CreatedAt,
		Scores: events.Scores{
			Performance:   a.Performance,
			Accessibility: a.Accessibility,
			SEO:           a.SEO,
			BestPractices: a.BestPractices,
		},
	}
	if err := s.publisher.PublishAnalysisCompleted(ctx, event); err != nil {
		s.log.Warn("Failed to publish analysis event",
			logging.String("analysis_id", event.AnalysisID),
			logging.Error(err),
		)
	}

	s.log.Info("Rescan finished",
		logging.String("url", u.URL),
		logging.String("analysis_id", event.AnalysisID),
		logging.Bool("seo_ok", outcome.SEOOK()),
		logging.Bool("pagespeed_ok", outcome.OracleOK()),
	)
	return a, nil
}
