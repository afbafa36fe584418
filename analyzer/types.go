package analyzer

// Result represents the complete SEO analysis of a webpage
type Result struct {
	Title           TitleFact     `json:"title"`
	MetaDescription LengthFact    `json:"metaDescription"`
	Canonical       CanonicalFact `json:"canonical"`
	Headings        HeadingsFact  `json:"headings"`
	Robots          RobotsFact    `json:"robots"`
	Sitemap         SitemapFact   `json:"sitemap"`
	Score           int           `json:"score"`
}

// TitleFact describes the page's <title> element.
type TitleFact = LengthFact

// LengthFact is shared by the title and the meta description: both are
// optional text values with a recommended length window.
type LengthFact struct {
	Exists          bool    `json:"exists"`
	Value           *string `json:"value"`
	Length          int     `json:"length"`
	IsOptimalLength bool    `json:"isOptimalLength"`
}

type CanonicalFact struct {
	Exists  bool    `json:"exists"`
	Value   *string `json:"value"`
	Matches bool    `json:"matches"`
}

type HeadingGroup struct {
	Count  int      `json:"count"`
	Values []string `json:"values"`
}

type HeadingsFact struct {
	H1                 HeadingGroup `json:"h1"`
	H2                 HeadingGroup `json:"h2"`
	HasProperStructure bool         `json:"hasProperStructure"`
}

type RobotsFact struct {
	Exists  bool    `json:"exists"`
	Content *string `json:"content"`
}

type SitemapFact struct {
	Exists  bool    `json:"exists"`
	IsValid bool    `json:"isValid"`
	URL     *string `json:"url"`
}

// Empty returns the all-absent result used when the page itself could not
// be analyzed.
func Empty() Result {
	return Result{
		Headings: HeadingsFact{
			H1: HeadingGroup{Values: []string{}},
			H2: HeadingGroup{Values: []string{}},
		},
	}
}

// Recommended length windows, inclusive.
const (
	titleMinLength       = 30
	titleMaxLength       = 60
	descriptionMinLength = 120
	descriptionMaxLength = 160
)
