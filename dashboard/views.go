package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/seo-optimizer/dashboard/store"
	"github.com/seo-optimizer/dashboard/suggest"
	"github.com/seo-optimizer/dashboard/textmetrics"
)

// KeywordRow is one keyword with its density verdict
type KeywordRow struct {
	textmetrics.KeywordDensityEntry
	Level   string `json:"level"`
	Message string `json:"message"`
}

// DensityView is the keyword density breakdown of a page
type DensityView struct {
	URL        string       `json:"url"`
	TotalWords int          `json:"totalWords"`
	Keywords   []KeywordRow `json:"keywords"`
}

// KeywordDensity scrapes url and computes its keyword density. Nothing is
// persisted.
func (s *Service) KeywordDensity(ctx context.Context, rawURL string, opts textmetrics.DensityOptions) (*DensityView, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, &StageError{Stage: StageValidate, Err: err}
	}
	page, err := s.scraper.Scrape(ctx, rawURL)
	if err != nil {
		return nil, &StageError{Stage: StageScrape, Err: err}
	}

	report := textmetrics.KeywordDensityWithOptions(page.Text, opts)
	view := &DensityView{
		URL:        rawURL,
		TotalWords: report.TotalWords,
		Keywords:   make([]KeywordRow, 0, len(report.Keywords)),
	}
	for _, entry := range report.Keywords {
		class := textmetrics.ClassifyDensity(entry.Density)
		view.Keywords = append(view.Keywords, KeywordRow{
			KeywordDensityEntry: entry,
			Level:               class.Level,
			Message:             class.Message,
		})
	}
	return view, nil
}

// RecommendationsView pairs a stored analysis with actionable advice
type RecommendationsView struct {
	Record          store.Record `json:"record"`
	Score           float64      `json:"score"`
	Recommendations []string     `json:"recommendations"`
}

func signals(r store.Record) suggest.Signals {
	return suggest.Signals{
		Title:          r.CurrentTitle,
		Description:    r.CurrentDescription,
		H1:             r.CurrentH1,
		ContentLength:  r.ContentLength,
		Images:         r.ImageAlts,
		PageSize:       r.PageSize,
		LoadTime:       time.Duration(r.PageSpeed * float64(time.Second)),
		MobileFriendly: r.MobileFriendly,
		InternalLinks:  len(r.InternalLinks),
		ExternalLinks:  len(r.ExternalLinks),
		BrokenLinks:    len(r.BrokenLinks),
	}
}

// Recommendations returns the stored analysis id with its score and advice
func (s *Service) Recommendations(ctx context.Context, id string) (*RecommendationsView, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	sig := signals(*r)
	return &RecommendationsView{
		Record:          *r,
		Score:           suggest.Score(sig),
		Recommendations: suggest.Recommendations(sig),
	}, nil
}

// PerformanceRow summarises the measured performance of one analysis
type PerformanceRow struct {
	ID                 string    `json:"id"`
	URL                string    `json:"url"`
	Company            string    `json:"company"`
	PageSpeed          float64   `json:"pageSpeed"`
	PageSpeedSimulated bool      `json:"pageSpeedSimulated"`
	LoadTimeSeverity   string    `json:"loadTimeSeverity"`
	PageSize           int       `json:"pageSize"`
	PageSizeSeverity   string    `json:"pageSizeSeverity"`
	MobileFriendly     bool      `json:"mobileFriendly"`
	Readability        float64   `json:"readability"`
	InternalLinks      int       `json:"internalLinks"`
	ExternalLinks      int       `json:"externalLinks"`
	BrokenLinks        int       `json:"brokenLinks"`
	Score              float64   `json:"score"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Performance lists performance rows for active analyses, optionally
// restricted to one company
func (s *Service) Performance(ctx context.Context, company *string) ([]PerformanceRow, error) {
	records, err := s.store.Select(ctx, store.Filter{Company: company, Archived: store.Bool(false)})
	if err != nil {
		return nil, &StageError{Stage: StageLoad, Err: err}
	}
	rows := make([]PerformanceRow, 0, len(records))
	for _, r := range records {
		sig := signals(r)
		rows = append(rows, PerformanceRow{
			ID:                 r.ID,
			URL:                r.URL,
			Company:            r.Company,
			PageSpeed:          r.PageSpeed,
			PageSpeedSimulated: r.PageSpeedSimulated,
			LoadTimeSeverity:   suggest.LoadTimeSeverity(sig.LoadTime),
			PageSize:           r.PageSize,
			PageSizeSeverity:   suggest.PageSizeSeverity(r.PageSize),
			MobileFriendly:     r.MobileFriendly,
			Readability:        r.ReadabilityScore,
			InternalLinks:      sig.InternalLinks,
			ExternalLinks:      sig.ExternalLinks,
			BrokenLinks:        sig.BrokenLinks,
			Score:              suggest.Score(sig),
			CreatedAt:          r.CreatedAt,
		})
	}
	return rows, nil
}
