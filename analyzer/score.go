package analyzer

import "math"

type check struct {
	points int
	passed func(r Result) bool
}

// rubric is the fixed weighted checklist; the points add up to 100.
var rubric = []check{
	{10, func(r Result) bool { return r.Title.Exists }},
	{10, func(r Result) bool { return r.Title.IsOptimalLength }},
	{10, func(r Result) bool { return r.MetaDescription.Exists }},
	{10, func(r Result) bool { return r.MetaDescription.IsOptimalLength }},
	{5, func(r Result) bool { return r.Canonical.Exists }},
	{5, func(r Result) bool { return r.Canonical.Matches }},
	{10, func(r Result) bool { return r.Headings.H1.Count == 1 }},
	{10, func(r Result) bool { return r.Headings.H2.Count > 0 }},
	{15, func(r Result) bool { return r.Robots.Exists }},
	{10, func(r Result) bool { return r.Sitemap.Exists }},
	{5, func(r Result) bool { return r.Sitemap.IsValid }},
}

// Score converts the facts into a 0-100 score. The Score field of r is ignored.
func Score(r Result) int {
	earned, total := 0, 0
	for _, c := range rubric {
		total += c.points
		if c.passed(r) {
			earned += c.points
		}
	}
	return int(math.Round(float64(earned) / float64(total) * 100))
}
