package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/seo-optimizer/monitor/api"
	"github.com/seo-optimizer/monitor/config"
	"github.com/seo-optimizer/monitor/events"
	"github.com/seo-optimizer/monitor/logging"
	"github.com/seo-optimizer/monitor/metrics"
	"github.com/seo-optimizer/monitor/middleware"
	"github.com/seo-optimizer/monitor/scan"
	"github.com/seo-optimizer/monitor/stats"
	"github.com/seo-optimizer/monitor/store"
)

const maintenanceInterval = time.Hour

func newServeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	gin.SetMode(cfg.Server.GinMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	m.MustRegister(reg)

	db, err := store.NewPostgresConnection(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	statsStore, err := stats.NewStorage(cfg.Stats.DataDir, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := statsStore.Shutdown(); err != nil {
			log.Error("Failed to flush statistics", logging.Error(err))
		}
	}()

	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.Enabled() {
		nc, err := events.Connect(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer nc.Drain()
		publisher = events.New(nc, m, log)
		log.Info("Publishing events to NATS", logging.String("url", cfg.NATS.URL))
	}

	urls := store.NewURLRepository(db)
	analyses := store.NewAnalysisRepository(db)
	seo, perf := newAnalyzers(cfg, log, m)
	scanner := scan.New(seo, perf, urls, analyses,
		scan.WithPublisher(publisher),
		scan.WithStats(statsStore),
		scan.WithMetrics(m),
		scan.WithLogger(log),
	)

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	router := api.NewRouter(api.RouterConfig{
		Handler:        api.NewHandler(urls, analyses, scanner, statsStore, log),
		Logger:         log,
		Metrics:        m,
		MetricsHandler: metrics.Handler(reg),
		RateLimiter:    limiter,
		RequestCounter: statsStore,
	})

	go maintenance(ctx, limiter, statsStore, log)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Server starting", logging.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// maintenance prunes idle rate limiter entries and expired statistics.
func maintenance(ctx context.Context, limiter *middleware.RateLimiter, st *stats.Storage, log logging.Logger) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned := limiter.Prune()
			st.Cleanup()
			log.Debug("Maintenance finished", logging.Int("pruned_clients", pruned))
		}
	}
}
