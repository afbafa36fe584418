package pagespeed

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Scores holds the four Lighthouse category scores on a 0-100 scale.
// A nil score means the category was not reported, which is distinct from 0.
type Scores struct {
	Performance   *int `json:"performance"`
	Accessibility *int `json:"accessibility"`
	BestPractices *int `json:"bestPractices"`
	SEO           *int `json:"seo"`
}

// Diagnostics is the oracle payload split in two: the few structured fields
// the monitor reads, and the untouched response body.
type Diagnostics struct {
	LighthouseVersion string          `json:"lighthouseVersion,omitempty"`
	FinalURL          string          `json:"finalUrl,omitempty"`
	FetchTime         string          `json:"fetchTime,omitempty"`
	Payload           json.RawMessage `json:"payload,omitempty"`
	// Error is set on substituted results when the oracle call failed.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of one PageSpeed run.
type Result struct {
	Scores
	Diagnostics Diagnostics `json:"rawData"`
}

// Failed returns the all-null result recorded when the oracle call failed.
func Failed(err error) Result {
	return Result{Diagnostics: Diagnostics{Error: "PageSpeed analysis failed: " + err.Error()}}
}

// ErrNotConfigured is wrapped by the OracleError returned when no API key is set.
var ErrNotConfigured = errors.New("PageSpeed API key is not configured")

// OracleError reports an unreachable, misconfigured or failing PageSpeed API.
type OracleError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *OracleError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("pagespeed: %s (status %d)", e.Reason, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("pagespeed: %s: %v", e.Reason, e.Err)
	default:
		return "pagespeed: " + e.Reason
	}
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// apiResponse is the subset of the runPagespeed response that is decoded.
type apiResponse struct {
	LighthouseResult struct {
		LighthouseVersion string                 `json:"lighthouseVersion"`
		FinalURL          string                 `json:"finalUrl"`
		FetchTime         string                 `json:"fetchTime"`
		Categories        map[string]apiCategory `json:"categories"`
	} `json:"lighthouseResult"`
}

type apiCategory struct {
	Score *float64 `json:"score"`
}
