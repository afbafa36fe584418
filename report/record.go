// Package report merges the PageSpeed and SEO results into one analysis
// record and derives human-readable insights from it.
package report

import (
	"github.com/seo-optimizer/monitor/analyzer"
	"github.com/seo-optimizer/monitor/pagespeed"
)

// Record is the unified outcome of one rescan.
type Record struct {
	Performance   *int    `json:"performance"`
	Accessibility *int    `json:"accessibility"`
	SEO           *int    `json:"seo"`
	BestPractices *int    `json:"bestPractices"`
	RawData       RawData `json:"rawData"`
}

// RawData keeps both inputs of the normalization for later inspection.
// SEOAnalysis is a pointer because records written before the SEO analyzer
// existed carry only the PageSpeed part.
type RawData struct {
	PageSpeed   pagespeed.Scores `json:"pagespeed"`
	SEOAnalysis *analyzer.Result `json:"seoAnalysis,omitempty"`
}

// Normalize combines both results. The PageSpeed SEO score wins when present;
// otherwise the heuristic score from the SEO analyzer is used.
func Normalize(perf pagespeed.Result, seo analyzer.Result) Record {
	seoScore := perf.SEO
	if seoScore == nil {
		s := seo.Score
		seoScore = &s
	}
	return Record{
		Performance:   perf.Performance,
		Accessibility: perf.Accessibility,
		SEO:           seoScore,
		BestPractices: perf.BestPractices,
		RawData: RawData{
			PageSpeed:   perf.Scores,
			SEOAnalysis: &seo,
		},
	}
}
