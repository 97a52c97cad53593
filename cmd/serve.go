package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seo-optimizer/dashboard/api"
	"github.com/seo-optimizer/dashboard/cache"
	"github.com/seo-optimizer/dashboard/logging"
	"github.com/seo-optimizer/dashboard/metrics"
)

var serveAddr string

const (
	maintenanceInterval = 10 * time.Minute
	retainMonths        = 12
	shutdownTimeout     = 15 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API",
	Example: `  seo-dashboard serve
  seo-dashboard serve --addr :9000 -c dashboard.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		gin.SetMode(cfg.Server.GinMode)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		metrics.InitMetrics()

		statistics, err := logging.NewStatistics(cfg.Stats.DataDir, cfg.Server.DevMode)
		if err != nil {
			a.logger.WithError(err).Warn("starting with empty usage statistics")
		}

		server := api.NewServer(a.service, statistics, api.Options{
			RateLimitRPS:   cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
			CacheStats:     a.storage,
			Logger:         a.logger,
		})
		if err := server.Refresh(ctx); err != nil {
			return err
		}

		go a.maintain(ctx, server)

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           server.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		color.Green("✓ Dashboard API listening on %s", cfg.Server.Addr)
		a.logger.WithField("addr", cfg.Server.Addr).Info("server started")

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			color.Yellow("⏳ Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.WithError(err).Warn("graceful shutdown failed")
		}
		if statistics != nil {
			if err := statistics.Save(); err != nil {
				a.logger.WithError(err).Warn("failed to save usage statistics")
			}
		}
		color.Cyan("👋 Server stopped")
		return nil
	},
}

// maintain evicts expired cache entries, idle rate limiters and old monthly
// counters until ctx is cancelled
func (a *app) maintain(ctx context.Context, server *api.Server) {
	if mc, ok := a.cache.(*cache.MemoryCache); ok {
		go mc.RunCleanup(ctx, maintenanceInterval)
	}

	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			forgotten := server.Limiter().Forget(time.Hour)
			purged := 0
			if a.checker != nil {
				purged = a.checker.PurgeExpired()
			}
			a.storage.Cleanup(retainMonths)
			a.logger.WithFields(logrus.Fields{
				"limiters": forgotten,
				"links":    purged,
			}).Debug("maintenance finished")
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address, overrides server.addr")
}
