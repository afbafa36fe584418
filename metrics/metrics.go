// Package metrics exposes Prometheus instrumentation for the monitor.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "monitor"

const (
	LabelResource = "resource"
	LabelStatus   = "status"
	LabelMethod   = "method"
	LabelEndpoint = "endpoint"
	LabelSide     = "side"
	LabelSubject  = "subject"
)

type FetchRecorder interface {
	RecordFetch(resource string, success bool, duration float64)
}

type OracleRecorder interface {
	RecordOracleRequest(success bool, duration float64)
}

type ScanRecorder interface {
	RecordScan(seoOK, oracleOK bool, duration float64)
}

type HTTPRecorder interface {
	RecordHTTPRequest(method, endpoint string, status int, duration float64)
}

type PublishRecorder interface {
	RecordPublish(subject string, success bool)
}

// Recorder is implemented by both the Prometheus collector and the no-op.
type Recorder interface {
	FetchRecorder
	OracleRecorder
	ScanRecorder
	HTTPRecorder
	PublishRecorder
}

type Noop struct{}

func NewNoop() *Noop { return &Noop{} }

func (*Noop) RecordFetch(string, bool, float64)              {}
func (*Noop) RecordOracleRequest(bool, float64)              {}
func (*Noop) RecordScan(bool, bool, float64)                 {}
func (*Noop) RecordHTTPRequest(string, string, int, float64) {}
func (*Noop) RecordPublish(string, bool)                     {}

// Metrics is the Prometheus-backed Recorder.
type Metrics struct {
	FetchesTotal        *prometheus.CounterVec
	FetchDuration       *prometheus.HistogramVec
	OracleRequestsTotal *prometheus.CounterVec
	OracleDuration      prometheus.Histogram
	ScanFailuresTotal   *prometheus.CounterVec
	ScansTotal          prometheus.Counter
	ScanDuration        prometheus.Histogram
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	EventsPublished     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetches_total",
				Help:      "Documents fetched for SEO analysis",
			},
			[]string{LabelResource, LabelStatus},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time spent fetching documents",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{LabelResource},
		),
		OracleRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pagespeed_requests_total",
				Help:      "Requests sent to the PageSpeed API",
			},
			[]string{LabelStatus},
		),
		OracleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pagespeed_request_duration_seconds",
				Help:      "PageSpeed API latency",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		ScansTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scans_total",
				Help:      "Completed rescans",
			},
		),
		ScanFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scan_side_failures_total",
				Help:      "Rescans where one side was substituted with an empty result",
			},
			[]string{LabelSide},
		),
		ScanDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "scan_duration_seconds",
				Help:      "End-to-end rescan duration",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60},
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served",
			},
			[]string{LabelMethod, LabelEndpoint, LabelStatus},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{LabelMethod, LabelEndpoint},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Events published to NATS",
			},
			[]string{LabelSubject, LabelStatus},
		),
	}
}

// MustRegister registers every collector with reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.FetchesTotal,
		m.FetchDuration,
		m.OracleRequestsTotal,
		m.OracleDuration,
		m.ScansTotal,
		m.ScanFailuresTotal,
		m.ScanDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EventsPublished,
	)
}

// Handler serves the exposition format for the collectors in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func (m *Metrics) RecordFetch(resource string, success bool, duration float64) {
	m.FetchesTotal.WithLabelValues(resource, status(success)).Inc()
	m.FetchDuration.WithLabelValues(resource).Observe(duration)
}

func (m *Metrics) RecordOracleRequest(success bool, duration float64) {
	m.OracleRequestsTotal.WithLabelValues(status(success)).Inc()
	m.OracleDuration.Observe(duration)
}

func (m *Metrics) RecordScan(seoOK, oracleOK bool, duration float64) {
	m.ScansTotal.Inc()
	if !seoOK {
		m.ScanFailuresTotal.WithLabelValues("seo").Inc()
	}
	if !oracleOK {
		m.ScanFailuresTotal.WithLabelValues("pagespeed").Inc()
	}
	m.ScanDuration.Observe(duration)
}

func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

func (m *Metrics) RecordPublish(subject string, success bool) {
	m.EventsPublished.WithLabelValues(subject, status(success)).Inc()
}

var (
	_ Recorder = (*Metrics)(nil)
	_ Recorder = (*Noop)(nil)
)
