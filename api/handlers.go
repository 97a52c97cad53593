package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/dashboard/dashboard"
	"github.com/seo-optimizer/dashboard/middleware"
	"github.com/seo-optimizer/dashboard/scraper"
	"github.com/seo-optimizer/dashboard/store"
	"github.com/seo-optimizer/dashboard/textmetrics"
)

// noCompany is the path value that stands for records without a company
const noCompany = "_"

// statusFor maps a dashboard error onto an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrEmptyFilter):
		return http.StatusBadRequest
	case errors.Is(err, scraper.ErrNoMetadata):
		return http.StatusUnprocessableEntity
	}
	switch dashboard.StageOf(err) {
	case dashboard.StageValidate:
		return http.StatusBadRequest
	case dashboard.StageScrape, dashboard.StageSuggest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is the client-facing text for err. Details stay in the log.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return "Analysis not found"
	case errors.Is(err, store.ErrEmptyFilter):
		return "A URL or company is required"
	case errors.Is(err, scraper.ErrNoMetadata):
		return "Page has no title or description"
	case errors.Is(err, dashboard.ErrCompanyRequired):
		return "Company name is required"
	}
	switch dashboard.StageOf(err) {
	case dashboard.StageValidate:
		return "Invalid URL"
	case dashboard.StageScrape, dashboard.StageSuggest:
		return "Could not analyze the page"
	case dashboard.StagePersist:
		return "Could not save the analysis"
	default:
		return "Could not load analyses"
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": publicMessage(err)}
	stage := dashboard.StageOf(err)
	if stage != "" {
		body["stage"] = stage
	}

	entry := s.logger.WithError(err).WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"status": status,
		"stage":  stage,
	})
	switch {
	case status >= http.StatusInternalServerError:
		entry.Error("request failed")
	case status != http.StatusBadRequest && status != http.StatusNotFound:
		entry.Warn("request failed")
	default:
		entry.Debug("request rejected")
	}
	c.JSON(status, body)
}

func companyParam(c *gin.Context) string {
	company := strings.TrimSpace(c.Param("company"))
	if company == noCompany {
		return ""
	}
	return company
}

// companyQuery returns nil when the company query parameter is absent
func companyQuery(c *gin.Context) *string {
	company, ok := c.GetQuery("company")
	if !ok {
		return nil
	}
	company = strings.TrimSpace(company)
	if company == noCompany {
		company = ""
	}
	return &company
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type analyzeRequest struct {
	URL     string `json:"url"`
	Company string `json:"company"`
}

func (s *Server) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	c.Set(middleware.AnalyzedURLKey, req.URL)
	c.Set(middleware.CompanyKey, strings.TrimSpace(req.Company))

	// Scraping and suggesting run outside the write lock; only the store
	// insert and the view swap are serialized.
	prepared, err := s.svc.Prepare(c.Request.Context(), req.URL, req.Company)
	if err != nil {
		s.fail(c, err)
		return
	}
	var record *store.Record
	err = s.mutate(func(state dashboard.State) (dashboard.State, error) {
		next, r, err := s.svc.Commit(c.Request.Context(), state, prepared)
		record = r
		return next, err
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) listAnalyses(c *gin.Context) {
	if len(c.Request.URL.Query()) == 0 {
		state := s.snapshot()
		c.JSON(http.StatusOK, gin.H{"records": state.Records(), "loadedAt": state.LoadedAt()})
		return
	}

	filter := store.Filter{
		URL:      strings.TrimSpace(c.Query("url")),
		Company:  companyQuery(c),
		Archived: store.Bool(false),
	}
	switch archived := c.Query("archived"); archived {
	case "":
	case "all":
		filter.Archived = nil
	default:
		b, err := strconv.ParseBool(archived)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "archived must be true, false or all"})
			return
		}
		filter.Archived = store.Bool(b)
	}
	if limit := c.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
			return
		}
		filter.Limit = n
	}

	state, err := s.svc.Load(c.Request.Context(), dashboard.NewState(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": state.Records(), "loadedAt": state.LoadedAt()})
}

func (s *Server) deleteURL(c *gin.Context) {
	var removed int64
	err := s.mutate(func(state dashboard.State) (dashboard.State, error) {
		next, n, err := s.svc.DeleteURL(c.Request.Context(), state, c.Query("url"))
		removed = n
		return next, err
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": removed})
}

func (s *Server) recommendations(c *gin.Context) {
	view, err := s.svc.Recommendations(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) keywordDensity(c *gin.Context) {
	var opts textmetrics.DensityOptions
	if v := c.Query("minLength"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "minLength must be a positive number"})
			return
		}
		opts.MinLength = n
	}
	view, err := s.svc.KeywordDensity(c.Request.Context(), c.Query("url"), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) performance(c *gin.Context) {
	rows, err := s.svc.Performance(c.Request.Context(), companyQuery(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": rows})
}

func (s *Server) companies(c *gin.Context) {
	summaries, err := s.svc.Companies(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": summaries})
}

func (s *Server) archiveCompany(c *gin.Context) {
	var archived int64
	err := s.mutate(func(state dashboard.State) (dashboard.State, error) {
		next, n, err := s.svc.ArchiveCompany(c.Request.Context(), state, companyParam(c))
		archived = n
		return next, err
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"archived": archived})
}

func (s *Server) deleteCompany(c *gin.Context) {
	var removed int64
	err := s.mutate(func(state dashboard.State) (dashboard.State, error) {
		next, n, err := s.svc.DeleteCompany(c.Request.Context(), state, companyParam(c))
		removed = n
		return next, err
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": removed})
}

func (s *Server) exportCompany(c *gin.Context) {
	filename, content, err := s.svc.ExportCompany(c.Request.Context(), companyParam(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(content))
}

func (s *Server) statistics(c *gin.Context) {
	summary := gin.H{}
	if s.stats != nil {
		for k, v := range s.stats.GetStatistics() {
			summary[k] = v
		}
	}
	if s.cacheStats != nil {
		summary["cache"] = s.cacheStats.GetCurrentStats()
	}
	c.JSON(http.StatusOK, summary)
}
