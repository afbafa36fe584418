package report

import "github.com/seo-optimizer/monitor/analyzer"

// Insights lists what a page does well and what it should fix, in rule
// evaluation order.
type Insights struct {
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

const (
	strongThreshold = 90
	weakThreshold   = 70
	poorThreshold   = 50
)

type insightBuilder struct {
	Insights
}

func (b *insightBuilder) strength(s string)    { b.Strengths = append(b.Strengths, s) }
func (b *insightBuilder) improvement(s string) { b.Improvements = append(b.Improvements, s) }

// category applies the shared >=90 / <70 thresholds. Nil scores are skipped.
func (b *insightBuilder) category(score *int, good, bad string) {
	if score == nil {
		return
	}
	switch {
	case *score >= strongThreshold:
		b.strength(good)
	case *score < weakThreshold:
		b.improvement(bad)
	}
}

// ExtractInsights derives insights from a record. It is recomputed on every
// read and never stored.
func ExtractInsights(r Record) Insights {
	b := &insightBuilder{Insights{Strengths: []string{}, Improvements: []string{}}}

	if r.Performance != nil {
		switch p := *r.Performance; {
		case p >= strongThreshold:
			b.strength("Excellent page performance score")
		case p < poorThreshold:
			b.improvement("Page performance needs significant improvement")
		case p < weakThreshold:
			b.improvement("Page performance could be improved")
		}
	}
	b.category(r.Accessibility, "Great accessibility implementation", "Accessibility issues need to be addressed")
	b.category(r.SEO, "Strong SEO foundation", "SEO needs improvement")
	b.category(r.BestPractices, "Follows web best practices", "Should improve adherence to web best practices")

	if seo := r.RawData.SEOAnalysis; seo != nil {
		b.seoFacts(seo)
	}
	return b.Insights
}

func (b *insightBuilder) seoFacts(seo *analyzer.Result) {
	switch {
	case !seo.Title.Exists:
		b.improvement("Missing title tag")
	case !seo.Title.IsOptimalLength:
		b.improvement("Title tag length is not optimal")
	default:
		b.strength("Well-structured title tag")
	}

	switch {
	case !seo.MetaDescription.Exists:
		b.improvement("Missing meta description")
	case !seo.MetaDescription.IsOptimalLength:
		b.improvement("Meta description length is not optimal")
	default:
		b.strength("Well-structured meta description")
	}

	// A broken heading structure may report one H1 problem and the missing
	// H2 separately; both are improvements for the same fact.
	if h := seo.Headings; h.HasProperStructure {
		b.strength("Good heading structure")
	} else {
		switch {
		case h.H1.Count == 0:
			b.improvement("Missing H1 heading")
		case h.H1.Count > 1:
			b.improvement("Multiple H1 headings found")
		}
		if h.H2.Count == 0 {
			b.improvement("No H2 headings found")
		}
	}

	switch {
	case !seo.Canonical.Exists:
		b.improvement("Missing canonical tag")
	case !seo.Canonical.Matches:
		b.improvement("Canonical URL does not match page URL")
	default:
		b.strength("Proper canonical tag implementation")
	}

	if seo.Robots.Exists {
		b.strength("robots.txt file is present")
	} else {
		b.improvement("Missing robots.txt file")
	}

	switch {
	case !seo.Sitemap.Exists:
		b.improvement("Missing sitemap.xml file")
	case !seo.Sitemap.IsValid:
		b.improvement("Invalid sitemap.xml format")
	default:
		b.strength("Valid sitemap.xml is present")
	}
}
