package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/dashboard/logging"
)

// Context keys handlers set so Stats can attribute an analysis
const (
	AnalyzedURLKey = "analyzedURL"
	CompanyKey     = "company"
)

const saveEvery = 100

// Stats tracks visitors and analysis requests. Statistics are saved in the
// background every hundred analyses.
func Stats(stats *logging.Statistics, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		stats.TrackVisitor(c.ClientIP())

		c.Next()

		if c.Request.Method == http.MethodPost && c.FullPath() == "/api/analyze" {
			loadTime := float64(time.Since(start).Milliseconds())
			stats.TrackAnalysis(c.GetString(AnalyzedURLKey), c.GetString(CompanyKey), loadTime, c.Writer.Status() >= 400)

			if stats.TotalRequests()%saveEvery == 0 {
				go func() {
					if err := stats.Save(); err != nil {
						logger.WithError(err).Warn("failed to save statistics")
					}
				}()
			}
		}
	}
}
