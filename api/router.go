package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/monitor/logging"
	"github.com/seo-optimizer/monitor/metrics"
	"github.com/seo-optimizer/monitor/middleware"
)

type RouterConfig struct {
	Handler        *Handler
	Logger         logging.Logger
	Metrics        metrics.HTTPRecorder
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter
	RequestCounter middleware.RequestCounter
}

// NewRouter builds the gin engine with the full middleware chain.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler(cfg.Logger))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.StatsMiddleware(cfg.Metrics, cfg.RequestCounter))
	r.Use(middleware.CORS())

	if cfg.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	h := cfg.Handler
	api := r.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.RateLimit())
	}
	{
		api.GET("/health", h.Health)
		api.POST("/analyze", h.Analyze)
		api.GET("/statistics", h.Statistics)
	}

	owned := api.Group("", middleware.RequireOwner())
	{
		owned.GET("/urls", h.ListURLs)
		owned.POST("/urls", h.CreateURL)
		owned.GET("/urls/:id", h.GetURL)
		owned.DELETE("/urls/:id", h.DeleteURL)
		owned.POST("/urls/:id/rescan", h.Rescan)
		owned.GET("/urls/:id/analysis", h.LatestAnalysis)
		owned.GET("/urls/:id/analysis/history", h.AnalysisHistory)
		owned.GET("/stats", h.OwnerStats)
	}

	return r
}
