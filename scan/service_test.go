package scan

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/monitor/analyzer"
	"github.com/seo-optimizer/monitor/events"
	"github.com/seo-optimizer/monitor/pagespeed"
	"github.com/seo-optimizer/monitor/store"
)

type fakeSEO struct {
	result analyzer.Result
	err    error
	wait   <-chan struct{}
	calls  atomic.Int32
}

func (f *fakeSEO) Analyze(ctx context.Context, _ string) (analyzer.Result, error) {
	f.calls.Add(1)
	if f.wait != nil {
		<-f.wait
	}
	return f.result, f.err
}

type fakePerf struct {
	result  pagespeed.Result
	err     error
	release chan<- struct{}
}

func (f *fakePerf) Analyze(ctx context.Context, _ string) (pagespeed.Result, error) {
	if f.release != nil {
		close(f.release)
	}
	return f.result, f.err
}

type fakeURLs struct {
	marked map[uuid.UUID]time.Time
	err    error
}

func (f *fakeURLs) MarkScanned(_ context.Context, id uuid.UUID, at time.Time) error {
	if f.err != nil {
		return f.err
	}
	if f.marked == nil {
		f.marked = map[uuid.UUID]time.Time{}
	}
	f.marked[id] = at
	return nil
}

type fakeAnalyses struct {
	created []*store.Analysis
	err     error
}

func (f *fakeAnalyses) Create(_ context.Context, a *store.Analysis) error {
	if f.err != nil {
		return f.err
	}
	a.ID = uuid.New()
	f.created = append(f.created, a)
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []events.AnalysisCompleted
	err  error
}

func (f *fakePublisher) PublishAnalysisCompleted(_ context.Context, m events.AnalysisCompleted) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

type fakeStats struct {
	seoOK, oracleOK []bool
}

func (f *fakeStats) RecordScan(seoOK, oracleOK bool) {
	f.seoOK = append(f.seoOK, seoOK)
	f.oracleOK = append(f.oracleOK, oracleOK)
}

func intp(v int) *int { return &v }

func seoWithScore(score int) analyzer.Result {
	r := analyzer.Empty()
	r.Score = score
	return r
}

func TestAnalyze_BothSidesSucceed(t *testing.T) {
	seo := &fakeSEO{result: seoWithScore(40)}
	perf := &fakePerf{result: pagespeed.Result{Scores: pagespeed.Scores{
		Performance: intp(55), Accessibility: intp(91), BestPractices: intp(77), SEO: intp(82),
	}}}
	stats := &fakeStats{}

	svc := New(seo, perf, nil, nil, WithStats(stats))
	rec, outcome := svc.Analyze(context.Background(), "https://example.com")

	assert.True(t, outcome.SEOOK())
	assert.True(t, outcome.OracleOK())
	assert.Equal(t, 82, *rec.SEO)
	assert.Equal(t, 55, *rec.Performance)
	assert.Equal(t, 40, rec.RawData.SEOAnalysis.Score)
	assert.Empty(t, stats.seoOK, "ad-hoc analyses are not scans")
}

// The SEO side blocks until PageSpeed has started, so a sequential
// implementation would deadlock here.
func TestAnalyze_RunsSidesConcurrently(t *testing.T) {
	started := make(chan struct{})
	seo := &fakeSEO{result: seoWithScore(10), wait: started}
	perf := &fakePerf{release: started}

	done := make(chan struct{})
	go func() {
		defer close(done)
		New(seo, perf, nil, nil).Analyze(context.Background(), "https://example.com")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Analyze did not run both sides concurrently")
	}
}

func TestAnalyze_OracleFailureKeepsSEO(t *testing.T) {
	seo := &fakeSEO{result: seoWithScore(65)}
	perf := &fakePerf{err: &pagespeed.OracleError{Reason: "not configured", Err: pagespeed.ErrNotConfigured}}
	stats := &fakeStats{}

	rec, outcome := New(seo, perf, nil, nil, WithStats(stats)).Analyze(context.Background(), "https://example.com")

	assert.ErrorIs(t, outcome.OracleErr, pagespeed.ErrNotConfigured)
	assert.True(t, outcome.SEOOK())
	assert.Nil(t, rec.Performance)
	assert.Nil(t, rec.Accessibility)
	assert.Nil(t, rec.BestPractices)
	require.NotNil(t, rec.SEO)
	assert.Equal(t, 65, *rec.SEO)
	assert.Empty(t, stats.oracleOK)
}

func TestAnalyze_SEOFailureKeepsOracle(t *testing.T) {
	seo := &fakeSEO{err: &analyzer.FetchError{URL: "https://example.com", StatusCode: 500}}
	perf := &fakePerf{result: pagespeed.Result{Scores: pagespeed.Scores{Performance: intp(99)}}}

	rec, outcome := New(seo, perf, nil, nil).Analyze(context.Background(), "https://example.com")

	var fetchErr *analyzer.FetchError
	require.ErrorAs(t, outcome.SEOErr, &fetchErr)
	assert.Equal(t, 99, *rec.Performance)
	assert.Equal(t, 0, *rec.SEO)
	assert.Equal(t, analyzer.Empty(), *rec.RawData.SEOAnalysis)
}

func TestAnalyze_BothFail(t *testing.T) {
	seo := &fakeSEO{err: errors.New("dns")}
	perf := &fakePerf{err: errors.New("timeout")}

	rec, outcome := New(seo, perf, nil, nil).Analyze(context.Background(), "https://example.com")

	assert.False(t, outcome.SEOOK())
	assert.False(t, outcome.OracleOK())
	assert.Equal(t, 0, *rec.SEO)
	assert.Nil(t, rec.Performance)
}

func TestRescan_PersistsMarksAndPublishes(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	urls := &fakeURLs{}
	analyses := &fakeAnalyses{}
	pub := &fakePublisher{}

	svc := New(
		&fakeSEO{result: seoWithScore(70)},
		&fakePerf{result: pagespeed.Result{Scores: pagespeed.Scores{Performance: intp(88)}}},
		urls, analyses,
		WithPublisher(pub),
		WithClock(func() time.Time { return now }),
	)

	u := &store.URL{ID: uuid.New(), URL: "https://example.com"}
	a, err := svc.Rescan(context.Background(), u)
	require.NoError(t, err)

	require.Len(t, analyses.created, 1)
	assert.Equal(t, u.ID, a.URLID)
	assert.Equal(t, now, a.CreatedAt)
	assert.Equal(t, 88, *a.Performance)
	assert.Equal(t, 70, *a.SEO)
	assert.Equal(t, now, urls.marked[u.ID])

	require.Len(t, pub.sent, 1)
	assert.Equal(t, a.ID.String(), pub.sent[0].AnalysisID)
	assert.Equal(t, u.ID.String(), pub.sent[0].URLID)
	assert.Equal(t, 70, *pub.sent[0].Scores.SEO)
}

func TestRescan_RecordsScanOutcome(t *testing.T) {
	stats := &fakeStats{}
	svc := New(
		&fakeSEO{result: seoWithScore(50)},
		&fakePerf{err: errors.New("quota")},
		&fakeURLs{}, &fakeAnalyses{},
		WithStats(stats),
	)

	_, err := svc.Rescan(context.Background(), &store.URL{ID: uuid.New(), URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, []bool{true}, stats.seoOK)
	assert.Equal(t, []bool{false}, stats.oracleOK)
}

func TestRescan_PublishFailureIsNotFatal(t *testing.T) {
	analyses := &fakeAnalyses{}
	svc := New(&fakeSEO{}, &fakePerf{}, &fakeURLs{}, analyses,
		WithPublisher(&fakePublisher{err: errors.New("nats down")}))

	_, err := svc.Rescan(context.Background(), &store.URL{ID: uuid.New(), URL: "https://example.com"})
	require.NoError(t, err)
	assert.Len(t, analyses.created, 1)
}

func TestRescan_StorageFailures(t *testing.T) {
	u := &store.URL{ID: uuid.New(), URL: "https://example.com"}

	t.Run("create", func(t *testing.T) {
		pub := &fakePublisher{}
		svc := New(&fakeSEO{}, &fakePerf{}, &fakeURLs{}, &fakeAnalyses{err: errors.New("db gone")}, WithPublisher(pub))

		_, err := svc.Rescan(context.Background(), u)
		assert.ErrorContains(t, err, "db gone")
		assert.Empty(t, pub.sent)
	})

	t.Run("mark scanned", func(t *testing.T) {
		svc := New(&fakeSEO{}, &fakePerf{}, &fakeURLs{err: store.ErrNotFound}, &fakeAnalyses{})

		_, err := svc.Rescan(context.Background(), u)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("no storage", func(t *testing.T) {
		_, err := New(&fakeSEO{}, &fakePerf{}, nil, nil).Rescan(context.Background(), u)
		assert.Error(t, err)
	})
}
