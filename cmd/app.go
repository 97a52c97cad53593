package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/dashboard/cache"
	"github.com/seo-optimizer/dashboard/config"
	"github.com/seo-optimizer/dashboard/dashboard"
	"github.com/seo-optimizer/dashboard/links"
	"github.com/seo-optimizer/dashboard/logging"
	"github.com/seo-optimizer/dashboard/scraper"
	"github.com/seo-optimizer/dashboard/stats"
	"github.com/seo-optimizer/dashboard/store"
	"github.com/seo-optimizer/dashboard/suggest"
)

// app holds the wired collaborators shared by every command
type app struct {
	cfg     *config.Config
	logger  *logrus.Logger
	service *dashboard.Service
	store   *store.Store
	storage *stats.Storage
	cache   cache.Cache
	checker *links.Checker

	closers []func() error
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, logger: logging.NewLogger(cfg.Logging)}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	storage, err := stats.NewStorage(cfg.Stats.DataDir, a.logger)
	if err != nil {
		return fmt.Errorf("open cache statistics: %w", err)
	}
	a.storage = storage
	a.closers = append(a.closers, storage.Shutdown)

	if err := a.openCache(ctx); err != nil {
		return err
	}

	opts := scraper.Options{
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.Scraper.Timeout.Duration,
		MaxBodyBytes: cfg.Scraper.MaxBodyBytes,
		Cache:        a.cache,
		Recorder:     storage,
		Logger:       a.logger,
	}
	if cfg.Scraper.RenderJS {
		renderer := scraper.NewChromeRenderer(cfg.Scraper.RenderTimeout.Duration)
		opts.Renderer = renderer
		a.closers = append(a.closers, func() error { renderer.Close(); return nil })
	}
	scr := scraper.New(opts)

	var checker suggest.BrokenChecker
	if !cfg.Links.Skip {
		a.checker = links.NewChecker(nil, links.CheckerOptions{
			Timeout:     cfg.Links.Timeout.Duration,
			Concurrency: cfg.Links.Concurrency,
			CacheTTL:    cfg.Links.CacheTTL.Duration,
			UserAgent:   cfg.Scraper.UserAgent,
		}, storage, a.logger)
		checker = a.checker
	}
	enricher := suggest.NewEnricher(checker, a.logger)

	var gen suggest.Generator
	if cfg.Suggest.APIKey != "" {
		gen = suggest.NewLLMGenerator(suggest.LLMOptions{
			BaseURL:     cfg.Suggest.BaseURL,
			APIKey:      cfg.Suggest.APIKey,
			Model:       cfg.Suggest.Model,
			Temperature: cfg.Suggest.Temperature,
			Timeout:     cfg.Suggest.Timeout.Duration,
			Logger:      a.logger,
		})
		a.logger.WithField("model", cfg.Suggest.Model).Info("using language model suggestions")
	} else {
		gen = suggest.NewHeuristicGenerator()
		a.logger.Info("no LLM API key configured, using heuristic suggestions")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	a.service = dashboard.NewService(scr, gen, enricher, st, dashboard.Options{
		RequireCompany: cfg.Server.RequireCompany,
		Logger:         a.logger,
	})
	return nil
}

func (a *app) openCache(ctx context.Context) error {
	cfg := a.cfg.Cache
	switch cfg.Backend {
	case "none":
		return nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.TTL.Duration,
		})
		if err != nil {
			return err
		}
		a.cache = rc
	default:
		a.cache = cache.NewMemoryCache(cfg.TTL.Duration, cfg.MaxEntries)
	}
	a.closers = append(a.closers, a.cache.Close)
	a.logger.WithField("backend", cfg.Backend).Debug("scrape cache ready")
	return nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
