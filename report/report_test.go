package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seo-optimizer/monitor/analyzer"
	"github.com/seo-optimizer/monitor/pagespeed"
)

func intp(v int) *int { return &v }

func TestNormalize_PrefersOracleSEOScore(t *testing.T) {
	seo := analyzer.Empty()
	seo.Score = 40

	perf := pagespeed.Result{Scores: pagespeed.Scores{
		Performance:   intp(55),
		Accessibility: intp(91),
		BestPractices: intp(77),
		SEO:           intp(82),
	}}

	rec := Normalize(perf, seo)
	require.NotNil(t, rec.SEO)
	assert.Equal(t, 82, *rec.SEO)
	assert.Equal(t, 55, *rec.Performance)
	assert.Equal(t, 91, *rec.Accessibility)
	assert.Equal(t, 77, *rec.BestPractices)

	assert.Equal(t, perf.Scores, rec.RawData.PageSpeed)
	require.NotNil(t, rec.RawData.SEOAnalysis)
	assert.Equal(t, 40, rec.RawData.SEOAnalysis.Score)
}

func TestNormalize_FallsBackToHeuristicScore(t *testing.T) {
	seo := analyzer.Empty()
	seo.Score = 40

	rec := Normalize(pagespeed.Failed(assert.AnError), seo)
	require.NotNil(t, rec.SEO)
	assert.Equal(t, 40, *rec.SEO)
	assert.Nil(t, rec.Performance)
	assert.Nil(t, rec.Accessibility)
	assert.Nil(t, rec.BestPractices)
	assert.Nil(t, rec.RawData.PageSpeed.SEO)
}

func TestNormalize_OracleZeroIsNotNull(t *testing.T) {
	seo := analyzer.Empty()
	seo.Score = 65

	rec := Normalize(pagespeed.Result{Scores: pagespeed.Scores{SEO: intp(0)}}, seo)
	assert.Equal(t, 0, *rec.SEO)
}

func TestExtractInsights_CategoryThresholds(t *testing.T) {
	tests := []struct {
		name         string
		record       Record
		strengths    []string
		improvements []string
	}{
		{
			name:      "all strong",
			record:    Record{Performance: intp(90), Accessibility: intp(95), SEO: intp(100), BestPractices: intp(92)},
			strengths: []string{"Excellent page performance score", "Great accessibility implementation", "Strong SEO foundation", "Follows web best practices"},
		},
		{
			name:   "middle band contributes nothing",
			record: Record{Performance: intp(70), Accessibility: intp(89), SEO: intp(75), BestPractices: intp(80)},
		},
		{
			name:         "weak",
			record:       Record{Performance: intp(69), Accessibility: intp(50), SEO: intp(10), BestPractices: intp(0)},
			improvements: []string{"Page performance could be improved", "Accessibility issues need to be addressed", "SEO needs improvement", "Should improve adherence to web best practices"},
		},
		{
			name:         "poor performance uses stronger wording",
			record:       Record{Performance: intp(49)},
			improvements: []string{"Page performance needs significant improvement"},
		},
		{
			name:   "null scores contribute nothing",
			record: Record{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractInsights(tt.record)
			if tt.strengths == nil {
				tt.strengths = []string{}
			}
			if tt.improvements == nil {
				tt.improvements = []string{}
			}
			assert.Equal(t, tt.strengths, got.Strengths)
			assert.Equal(t, tt.improvements, got.Improvements)
		})
	}
}

func perfectSEO() analyzer.Result {
	title := strings.Repeat("t", 45)
	desc := strings.Repeat("d", 140)
	canonical := "https://example.com/"
	robots := "User-agent: *"
	sitemap := "https://example.com/sitemap.xml"
	r := analyzer.Result{
		Title:           analyzer.LengthFact{Exists: true, Value: &title, Length: 45, IsOptimalLength: true},
		MetaDescription: analyzer.LengthFact{Exists: true, Value: &desc, Length: 140, IsOptimalLength: true},
		Canonical:       analyzer.CanonicalFact{Exists: true, Value: &canonical, Matches: true},
		Headings: analyzer.HeadingsFact{
			H1:                 analyzer.HeadingGroup{Count: 1, Values: []string{"a"}},
			H2:                 analyzer.HeadingGroup{Count: 1, Values: []string{"b"}},
			HasProperStructure: true,
		},
		Robots:  analyzer.RobotsFact{Exists: true, Content: &robots},
		Sitemap: analyzer.SitemapFact{Exists: true, IsValid: true, URL: &sitemap},
	}
	r.Score = analyzer.Score(r)
	return r
}

func TestExtractInsights_PerfectSEOFacts(t *testing.T) {
	seo := perfectSEO()
	got := ExtractInsights(Record{RawData: RawData{SEOAnalysis: &seo}})

	assert.Equal(t, []string{
		"Well-structured title tag",
		"Well-structured meta description",
		"Good heading structure",
		"Proper canonical tag implementation",
		"robots.txt file is present",
		"Valid sitemap.xml is present",
	}, got.Strengths)
	assert.Empty(t, got.Improvements)
}

func TestExtractInsights_EmptyPage(t *testing.T) {
	rec := Normalize(pagespeed.Failed(assert.AnError), analyzer.Empty())
	got := ExtractInsights(rec)

	// The heuristic score of 0 becomes the record's SEO score, so the
	// category rule fires before the seven per-fact improvements.
	assert.Equal(t, []string{
		"SEO needs improvement",
		"Missing title tag",
		"Missing meta description",
		"Missing H1 heading",
		"No H2 headings found",
		"Missing canonical tag",
		"Missing robots.txt file",
		"Missing sitemap.xml file",
	}, got.Improvements)
	assert.Empty(t, got.Strengths)
}

func TestExtractInsights_FirstFailingConditionWins(t *testing.T) {
	seo := perfectSEO()
	seo.Title.IsOptimalLength = false
	seo.MetaDescription.IsOptimalLength = false
	seo.Headings.H1.Count = 3
	seo.Headings.HasProperStructure = false
	seo.Canonical.Matches = false
	seo.Sitemap.IsValid = false

	got := ExtractInsights(Record{RawData: RawData{SEOAnalysis: &seo}})
	assert.Equal(t, []string{
		"Title tag length is not optimal",
		"Meta description length is not optimal",
		"Multiple H1 headings found",
		"Canonical URL does not match page URL",
		"Invalid sitemap.xml format",
	}, got.Improvements)
	assert.Equal(t, []string{"robots.txt file is present"}, got.Strengths)
}

// Every fact maps to a fixed set of messages; no fact may appear on both sides.
func TestExtractInsights_MutuallyExclusivePerFact(t *testing.T) {
	facts := map[string][]string{
		"title":     {"Missing title tag", "Title tag length is not optimal", "Well-structured title tag"},
		"meta":      {"Missing meta description", "Meta description length is not optimal", "Well-structured meta description"},
		"headings":  {"Missing H1 heading", "Multiple H1 headings found", "No H2 headings found", "Good heading structure"},
		"canonical": {"Missing canonical tag", "Canonical URL does not match page URL", "Proper canonical tag implementation"},
		"robots":    {"Missing robots.txt file", "robots.txt file is present"},
		"sitemap":   {"Missing sitemap.xml file", "Invalid sitemap.xml format", "Valid sitemap.xml is present"},
	}

	mutations := []func(r *analyzer.Result){
		func(r *analyzer.Result) {},
		func(r *analyzer.Result) { r.Title.Exists = false },
		func(r *analyzer.Result) { r.Headings.H2.Count = 0; r.Headings.HasProperStructure = false },
		func(r *analyzer.Result) { r.Headings.H1.Count = 0; r.Headings.HasProperStructure = false },
		func(r *analyzer.Result) { r.Canonical.Exists = false; r.Canonical.Matches = false },
		func(r *analyzer.Result) { r.Robots.Exists = false },
		func(r *analyzer.Result) { r.Sitemap.IsValid = false },
	}

	for i, mutate := range mutations {
		seo := perfectSEO()
		mutate(&seo)
		got := ExtractInsights(Record{RawData: RawData{SEOAnalysis: &seo}})

		for fact, messages := range facts {
			inStrengths, inImprovements := false, false
			for _, m := range messages {
				inStrengths = inStrengths || contains(got.Strengths, m)
				inImprovements = inImprovements || contains(got.Improvements, m)
			}
			assert.False(t, inStrengths && inImprovements, "mutation %d: fact %s on both sides", i, fact)
		}
	}
}

func TestExtractInsights_Deterministic(t *testing.T) {
	seo := perfectSEO()
	seo.Robots.Exists = false
	rec := Record{Performance: intp(45), SEO: intp(95), RawData: RawData{SEOAnalysis: &seo}}
	assert.Equal(t, ExtractInsights(rec), ExtractInsights(rec))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
