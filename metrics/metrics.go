package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	AnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "seo_analyses_total", Help: "Analysis pipeline outcomes by stage"},
		[]string{"stage", "status"},
	)
	AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "seo_analysis_duration_seconds",
		Help:    "Duration of the full analysis pipeline",
		Buckets: prometheus.DefBuckets,
	})
	BrokenLinksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "seo_broken_links_total", Help: "Broken links found across analyses"},
	)
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "seo_http_requests_total", Help: "API requests by route and status code"},
		[]string{"route", "code"},
	)
)

var once sync.Once

// InitMetrics registers the collectors with the default registry. Safe to
// call more than once.
func InitMetrics() {
	once.Do(func() {
		prometheus.MustRegister(AnalysesTotal, AnalysisDuration, BrokenLinksTotal, HTTPRequestsTotal)
	})
}
