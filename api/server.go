package api

import (
	"context"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/dashboard/dashboard"
	"github.com/seo-optimizer/dashboard/logging"
	"github.com/seo-optimizer/dashboard/middleware"
	"github.com/seo-optimizer/dashboard/stats"
)

// Options configures a Server
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	// CacheStats adds monthly cache hit counters to /api/statistics
	CacheStats *stats.Storage
	Logger     logrus.FieldLogger
}

// Server exposes the dashboard over HTTP. It holds the dashboard view shown
// by GET /api/analyses; store writes run one at a time and replace it.
type Server struct {
	svc        *dashboard.Service
	stats      *logging.Statistics
	cacheStats *stats.Storage
	limiter    *middleware.RateLimiter
	logger     logrus.FieldLogger

	writeMu sync.Mutex
	mu      sync.RWMutex
	state   dashboard.State
}

// NewServer creates a Server. statistics may be nil.
func NewServer(svc *dashboard.Service, statistics *logging.Statistics, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = 2
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 5
	}
	return &Server{
		svc:        svc,
		stats:      statistics,
		cacheStats: opts.CacheStats,
		limiter:    middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		logger:     logger.WithField("component", "api"),
		state:      dashboard.NewState(),
	}
}

// Limiter returns the per-IP rate limiter so idle clients can be forgotten
func (s *Server) Limiter() *middleware.RateLimiter {
	return s.limiter
}

// Refresh reloads the dashboard view from the store
func (s *Server) Refresh(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current := s.snapshot()
	next, err := s.svc.Load(ctx, current, current.Filter())
	if err != nil {
		return err
	}
	s.replace(next)
	return nil
}

func (s *Server) snapshot() dashboard.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) replace(next dashboard.State) {
	s.mu.Lock()
	s.state = next
	s.mu.Unlock()
}

// mutate runs fn against the current view and installs the State it returns
func (s *Server) mutate(fn func(dashboard.State) (dashboard.State, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, err := fn(s.snapshot())
	if err != nil {
		return err
	}
	s.replace(next)
	return nil
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler(s.logger))
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())
	if s.stats != nil {
		r.Use(middleware.Stats(s.stats, s.logger))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(s.limiter.RateLimit())
	{
		api.GET("/health", s.health)
		api.POST("/analyze", s.analyze)

		api.GET("/analyses", s.listAnalyses)
		api.DELETE("/analyses", s.deleteURL)
		api.GET("/analyses/:id/recommendations", s.recommendations)

		api.GET("/keyword-density", s.keywordDensity)
		api.GET("/performance", s.performance)

		api.GET("/companies", s.companies)
		api.POST("/companies/:company/archive", s.archiveCompany)
		api.DELETE("/companies/:company", s.deleteCompany)
		api.GET("/export/:company", s.exportCompany)

		api.GET("/statistics", s.statistics)
	}
	return r
}
