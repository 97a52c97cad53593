package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/dashboard/export"
	"github.com/seo-optimizer/dashboard/metrics"
	"github.com/seo-optimizer/dashboard/scraper"
	"github.com/seo-optimizer/dashboard/store"
	"github.com/seo-optimizer/dashboard/suggest"
)

// Scraper fetches page metadata
type Scraper interface {
	Scrape(ctx context.Context, url string) (*scraper.PageMetadata, error)
}

// Enricher derives page metrics from scraped metadata
type Enricher interface {
	Enrich(ctx context.Context, page *scraper.PageMetadata) suggest.Metrics
}

// Store persists analysis records
type Store interface {
	Insert(ctx context.Context, r *store.Record) error
	Select(ctx context.Context, f store.Filter) ([]store.Record, error)
	Get(ctx context.Context, id string) (*store.Record, error)
	Update(ctx context.Context, f store.Filter, p store.Patch) (int64, error)
	Delete(ctx context.Context, f store.Filter) (int64, error)
	Companies(ctx context.Context) ([]store.CompanySummary, error)
}

// Options configures a Service
type Options struct {
	RequireCompany bool
	Logger         logrus.FieldLogger
}

// Service runs dashboard operations against the collaborators
type Service struct {
	scraper        Scraper
	generator      suggest.Generator
	enricher       Enricher
	store          Store
	requireCompany bool
	logger         logrus.FieldLogger
}

// NewService creates a Service
func NewService(scr Scraper, gen suggest.Generator, enr Enricher, st Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		scraper:        scr,
		generator:      gen,
		enricher:       enr,
		store:          st,
		requireCompany: opts.RequireCompany,
		logger:         logger.WithField("component", "dashboard"),
	}
}

// Analysis carries values between pipeline steps. Prepare returns one ready
// to be committed.
type Analysis struct {
	url         string
	company     string
	started     time.Time
	page        *scraper.PageMetadata
	suggestions *suggest.Suggestions
	record      *store.Record
}

// URL returns the validated page URL
func (a *Analysis) URL() string {
	return a.url
}

type step struct {
	stage Stage
	run   func(ctx context.Context, a *Analysis) error
}

// Analyze runs validate, scrape, suggest and persist in order. The first
// failing step stops the pipeline; nothing from earlier steps is stored.
func (s *Service) Analyze(ctx context.Context, state State, rawURL, company string) (State, *store.Record, error) {
	a, err := s.Prepare(ctx, rawURL, company)
	if err != nil {
		return state, nil, err
	}
	return s.Commit(ctx, state, a)
}

// Prepare runs the validate, scrape and suggest steps without touching the
// store or any State.
func (s *Service) Prepare(ctx context.Context, rawURL, company string) (*Analysis, error) {
	a := &Analysis{
		url:     strings.TrimSpace(rawURL),
		company: strings.TrimSpace(company),
		started: time.Now(),
	}
	err := s.run(ctx, a, []step{
		{StageValidate, s.validate},
		{StageScrape, s.scrape},
		{StageSuggest, s.generate},
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Commit persists a prepared analysis and adds it to state
func (s *Service) Commit(ctx context.Context, state State, a *Analysis) (State, *store.Record, error) {
	if a == nil || a.suggestions == nil {
		return state, nil, &StageError{Stage: StagePersist, Err: errors.New("analysis was not prepared")}
	}
	if err := s.run(ctx, a, []step{{StagePersist, s.persist}}); err != nil {
		return state, nil, err
	}

	elapsed := time.Since(a.started)
	metrics.AnalysisDuration.Observe(elapsed.Seconds())
	s.logger.WithFields(logrus.Fields{
		"url":      a.url,
		"company":  a.company,
		"id":       a.record.ID,
		"duration": elapsed.String(),
	}).Info("analysis stored")

	return state.prepend(*a.record), a.record, nil
}

func (s *Service) run(ctx context.Context, a *Analysis, steps []step) error {
	for _, st := range steps {
		if err := st.run(ctx, a); err != nil {
			metrics.AnalysesTotal.WithLabelValues(string(st.stage), "error").Inc()
			s.logger.WithFields(logrus.Fields{
				"url":     a.url,
				"company": a.company,
				"stage":   st.stage,
			}).WithError(err).Warn("analysis failed")
			return &StageError{Stage: st.stage, Err: err}
		}
		metrics.AnalysesTotal.WithLabelValues(string(st.stage), "ok").Inc()
	}
	return nil
}

func (s *Service) validate(_ context.Context, a *Analysis) error {
	if err := ValidateURL(a.url); err != nil {
		return err
	}
	if s.requireCompany && a.company == "" {
		return ErrCompanyRequired
	}
	return nil
}

// ValidateURL accepts only absolute http(s) URLs with a host
func ValidateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return nil
}

func (s *Service) scrape(ctx context.Context, a *Analysis) error {
	page, err := s.scraper.Scrape(ctx, a.url)
	if err != nil {
		return err
	}
	a.page = page
	return nil
}

func (s *Service) generate(ctx context.Context, a *Analysis) error {
	suggestions, err := s.generator.Suggest(ctx, suggest.RequestFromPage(a.page))
	if err != nil {
		return err
	}
	if s.enricher != nil {
		suggestions.Metrics = s.enricher.Enrich(ctx, a.page)
	}
	a.suggestions = suggestions
	return nil
}

func (s *Service) persist(ctx context.Context, a *Analysis) error {
	r := buildRecord(a.url, a.company, a.page, a.suggestions)
	if err := s.store.Insert(ctx, r); err != nil {
		return err
	}
	metrics.BrokenLinksTotal.Add(float64(len(r.BrokenLinks)))
	a.record = r
	return nil
}

func buildRecord(pageURL, company string, page *scraper.PageMetadata, sg *suggest.Suggestions) *store.Record {
	m := sg.Metrics
	return &store.Record{
		URL:     pageURL,
		Company: company,

		CurrentTitle:         page.Title,
		SuggestedTitle:       sg.Title,
		TitleContext:         sg.TitleContext,
		CurrentDescription:   page.Description,
		SuggestedDescription: sg.Description,
		DescriptionContext:   sg.DescriptionContext,
		CurrentH1:            page.H1,
		SuggestedH1:          sg.H1,
		H1Context:            sg.H1Context,

		CurrentH2s:   page.H2s,
		SuggestedH2s: sg.H2s,
		H2Context:    sg.H2Context,
		CurrentH3s:   page.H3s,
		SuggestedH3s: sg.H3s,
		H3Context:    sg.H3Context,
		CurrentH4s:   page.H4s,
		SuggestedH4s: sg.H4s,
		H4Context:    sg.H4Context,

		ReadabilityScore: m.Readability,
		ContentLength:    m.ContentLength,
		ContentHash:      page.ContentHash,
		InternalLinks:    m.InternalLinks,
		ExternalLinks:    m.ExternalLinks,
		BrokenLinks:      m.BrokenLinks,
		ImageAlts:        m.ImageAlts,

		PageSpeed:          m.PageSpeed,
		PageSpeedSimulated: m.PageSpeedSimulated,
		PageSize:           m.PageSize,
		MobileFriendly:     m.MobileFriendly,
	}
}

// Load replaces the state's records with those matching filter
func (s *Service) Load(ctx context.Context, state State, filter store.Filter) (State, error) {
	records, err := s.store.Select(ctx, filter)
	if err != nil {
		s.logger.WithError(err).Warn("loading records failed")
		return state, &StageError{Stage: StageLoad, Err: err}
	}
	return state.withRecords(records, filter), nil
}

// ArchiveCompany archives every record of company. Archived records leave
// active views but remain available for export.
func (s *Service) ArchiveCompany(ctx context.Context, state State, company string) (State, int64, error) {
	company = strings.TrimSpace(company)
	n, err := s.store.Update(ctx, store.Filter{Company: &company}, store.Patch{Archived: store.Bool(true)})
	if err != nil {
		s.logger.WithField("company", company).WithError(err).Warn("archiving company failed")
		return state, 0, &StageError{Stage: StagePersist, Err: err}
	}
	next := state.mapRecords(func(r store.Record) store.Record {
		if r.Company == company {
			r.Archived = true
		}
		return r
	})
	return next, n, nil
}

// DeleteURL removes every analysis of url
func (s *Service) DeleteURL(ctx context.Context, state State, rawURL string) (State, int64, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return state, 0, &StageError{Stage: StageValidate, Err: ErrInvalidURL}
	}
	n, err := s.store.Delete(ctx, store.Filter{URL: rawURL})
	if err != nil {
		s.logger.WithField("url", rawURL).WithError(err).Warn("deleting url failed")
		return state, 0, &StageError{Stage: StagePersist, Err: err}
	}
	return state.without(func(r store.Record) bool { return r.URL == rawURL }), n, nil
}

// DeleteCompany removes every analysis of company. An empty company removes
// the records without one.
func (s *Service) DeleteCompany(ctx context.Context, state State, company string) (State, int64, error) {
	company = strings.TrimSpace(company)
	n, err := s.store.Delete(ctx, store.Filter{Company: &company})
	if err != nil {
		s.logger.WithField("company", company).WithError(err).Warn("deleting company failed")
		return state, 0, &StageError{Stage: StagePersist, Err: err}
	}
	return state.without(func(r store.Record) bool { return r.Company == company }), n, nil
}

// ExportCompany renders the CSV export for company, archived records
// included, and returns it with its file name
func (s *Service) ExportCompany(ctx context.Context, company string) (string, string, error) {
	company = strings.TrimSpace(company)
	records, err := s.store.Select(ctx, store.Filter{Company: &company})
	if err != nil {
		return "", "", &StageError{Stage: StageLoad, Err: err}
	}
	content, err := export.CompanyCSV(company, records)
	if err != nil {
		return "", "", err
	}
	return export.Filename(company), content, nil
}

// Companies lists every company with record counts
func (s *Service) Companies(ctx context.Context) ([]store.CompanySummary, error) {
	summaries, err := s.store.Companies(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	return summaries, nil
}
