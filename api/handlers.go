// Package api serves the monitor's HTTP interface.
package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seo-optimizer/monitor/logging"
	"github.com/seo-optimizer/monitor/middleware"
	"github.com/seo-optimizer/monitor/report"
	"github.com/seo-optimizer/monitor/scan"
	"github.com/seo-optimizer/monitor/stats"
	"github.com/seo-optimizer/monitor/store"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

type URLStore interface {
	Create(ctx context.Context, u *store.URL) error
	GetByID(ctx context.Context, id uuid.UUID) (*store.URL, error)
	ListByOwner(ctx context.Context, ownerID string) ([]store.URL, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type AnalysisStore interface {
	Latest(ctx context.Context, urlID uuid.UUID) (*store.Analysis, error)
	List(ctx context.Context, urlID uuid.UUID, limit, offset int) ([]store.Analysis, error)
	Count(ctx context.Context, urlID uuid.UUID) (int, error)
	OwnerSummary(ctx context.Context, ownerID string) (*store.Summary, error)
}

type Scanner interface {
	Analyze(ctx context.Context, pageURL string) (report.Record, scan.Outcome)
	Rescan(ctx context.Context, u *store.URL) (*store.Analysis, error)
}

type StatsSource interface {
	GetCurrentStats() stats.MonthlyStats
	GetAllMonths() []string
}

type Handler struct {
	urls     URLStore
	analyses AnalysisStore
	scanner  Scanner
	stats    StatsSource
	log      logging.Logger
}

func NewHandler(urls URLStore, analyses AnalysisStore, scanner Scanner, st StatsSource, log logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{urls: urls, analyses: analyses, scanner: scanner, stats: st, log: log}
}

func (h *Handler) internalError(c *gin.Context, msg string, err error) {
	h.log.Error(msg, logging.String("path", c.FullPath()), logging.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type analyzeRequest struct {
	URL string `json:"url" binding:"required"`
}

// Analyze runs the pipeline once without persisting anything.
func (h *Handler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil || store.ValidateURL(req.URL) != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL provided"})
		return
	}

	record, outcome := h.scanner.Analyze(c.Request.Context(), req.URL)

	resp := gin.H{
		"analysis": record,
		"insights": report.ExtractInsights(record),
	}
	if failures := outcomeErrors(outcome); len(failures) > 0 {
		resp["errors"] = failures
	}
	c.JSON(http.StatusOK, resp)
}

func outcomeErrors(o scan.Outcome) map[string]string {
	failures := map[string]string{}
	if o.SEOErr != nil {
		failures["seo"] = o.SEOErr.Error()
	}
	if o.OracleErr != nil {
		failures["pagespeed"] = o.OracleErr.Error()
	}
	return failures
}

func (h *Handler) ListURLs(c *gin.Context) {
	urls, err := h.urls.ListByOwner(c.Request.Context(), middleware.Owner(c))
	if err != nil {
		h.internalError(c, "Failed to list URLs", err)
		return
	}
	c.JSON(http.StatusOK, urls)
}

type createURLRequest struct {
	URL string `json:"url"`
}

func (h *Handler) CreateURL(c *gin.Context) {
	var req createURLRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL is required"})
		return
	}
	if err := store.ValidateURL(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid URL format"})
		return
	}

	u := &store.URL{OwnerID: middleware.Owner(c), URL: req.URL}
	if err := h.urls.Create(c.Request.Context(), u); err != nil {
		if errors.Is(err, store.ErrDuplicateURL) {
			c.JSON(http.StatusConflict, gin.H{"error": "URL already exists"})
			return
		}
		h.internalError(c, "Failed to create URL", err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

// ownedURL loads the :id URL and checks it belongs to the caller. It writes
// the error response itself and returns nil in that case.
func (h *Handler) ownedURL(c *gin.Context) *store.URL {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
		return nil
	}

	u, err := h.urls.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
			return nil
		}
		h.internalError(c, "Failed to load URL", err)
		return nil
	}

	if u.OwnerID != middleware.Owner(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil
	}
	return u
}

func (h *Handler) GetURL(c *gin.Context) {
	if u := h.ownedURL(c); u != nil {
		c.JSON(http.StatusOK, u)
	}
}

func (h *Handler) DeleteURL(c *gin.Context) {
	u := h.ownedURL(c)
	if u == nil {
		return
	}
	if err := h.urls.Delete(c.Request.Context(), u.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "URL not found"})
			return
		}
		h.internalError(c, "Failed to delete URL", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Rescan(c *gin.Context) {
	u := h.ownedURL(c)
	if u == nil {
		return
	}
	a, err := h.scanner.Rescan(c.Request.Context(), u)
	if err != nil {
		h.internalError(c, "Failed to rescan URL", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "analysisId": a.ID})
}

// LatestAnalysis returns the newest analysis with insights derived on the fly.
func (h *Handler) LatestAnalysis(c *gin.Context) {
	u := h.ownedURL(c)
	if u == nil {
		return
	}
	a, err := h.analyses.Latest(c.Request.Context(), u.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No analysis found"})
			return
		}
		h.internalError(c, "Failed to load analysis", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analysis": a,
		"insights": report.ExtractInsights(a.Record()),
	})
}

type historyItem struct {
	ID            uuid.UUID `json:"id"`
	CreatedAt     time.Time `json:"createdAt"`
	Performance   *int      `json:"performance"`
	Accessibility *int      `json:"accessibility"`
	SEO           *int      `json:"seo"`
	BestPractices *int      `json:"bestPractices"`
}

type pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// pageParams reads limit and offset, clamping limit to [1,100] and offset to >= 0.
// Unparseable values fall back to the defaults.
func pageParams(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil {
		limit = defaultHistoryLimit
	}
	limit = min(max(limit, 1), maxHistoryLimit)

	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (h *Handler) AnalysisHistory(c *gin.Context) {
	u := h.ownedURL(c)
	if u == nil {
		return
	}
	limit, offset := pageParams(c)

	list, err := h.analyses.List(c.Request.Context(), u.ID, limit, offset)
	if err != nil {
		h.internalError(c, "Failed to list analyses", err)
		return
	}
	total, err := h.analyses.Count(c.Request.Context(), u.ID)
	if err != nil {
		h.internalError(c, "Failed to count analyses", err)
		return
	}

	items := make([]historyItem, 0, len(list))
	for _, a := range list {
		items = append(items, historyItem{
			ID:            a.ID,
			CreatedAt:     a.CreatedAt,
			Performance:   a.Performance,
			Accessibility: a.Accessibility,
			SEO:           a.SEO,
			BestPractices: a.BestPractices,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses":   items,
		"pagination": pagination{Total: total, Limit: limit, Offset: offset},
	})
}

// averageScore is the rounded mean of the non-nil averages, or nil.
func averageScore(s *store.Summary) *int {
	var sum float64
	n := 0
	for _, v := range []*float64{s.Performance, s.Accessibility, s.SEO, s.BestPractices} {
		if v != nil {
			sum += *v
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := int(math.Round(sum / float64(n)))
	return &avg
}

func (h *Handler) OwnerStats(c *gin.Context) {
	ctx := c.Request.Context()
	owner := middleware.Owner(c)

	count, err := h.urls.CountByOwner(ctx, owner)
	if err != nil {
		h.internalError(c, "Failed to count URLs", err)
		return
	}
	summary, err := h.analyses.OwnerSummary(ctx, owner)
	if err != nil {
		h.internalError(c, "Failed to summarize analyses", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"urlCount":       count,
		"latestAnalysis": summary.LatestAnalysis,
		"avgScores":      summary,
		"averageScore":   averageScore(summary),
	})
}

// Statistics reports the service-wide monthly scan counters.
func (h *Handler) Statistics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"current": h.stats.GetCurrentStats(),
		"months":  h.stats.GetAllMonths(),
	})
}
