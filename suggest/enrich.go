package suggest

import (
	"context"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/seo-optimizer/dashboard/links"
	"github.com/seo-optimizer/dashboard/scraper"
	"github.com/seo-optimizer/dashboard/textmetrics"
)

// BrokenChecker reports which of the given URLs failed a liveness check
type BrokenChecker interface {
	Broken(ctx context.Context, urls []string) []string
}

// Enricher computes the derived metrics that accompany suggestions
type Enricher struct {
	checker BrokenChecker
	logger  logrus.FieldLogger
}

// NewEnricher creates an Enricher. A nil checker skips broken-link checks.
func NewEnricher(checker BrokenChecker, logger logrus.FieldLogger) *Enricher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Enricher{checker: checker, logger: logger.WithField("component", "enrich")}
}

// RequestFromPage builds a suggestion request from scraped metadata
func RequestFromPage(page *scraper.PageMetadata) Request {
	return Request{
		URL:         page.URL,
		Title:       page.Title,
		Description: page.Description,
		H1:          page.H1,
		H2s:         page.H2s,
		H3s:         page.H3s,
		H4s:         page.H4s,
		Text:        strings.Join(page.TextFragments, " "),
	}
}

// Enrich measures the page. Every metric degrades on its own: a failed link
// classification leaves link lists empty without affecting the rest.
func (e *Enricher) Enrich(ctx context.Context, page *scraper.PageMetadata) Metrics {
	m := Metrics{
		Readability:    textmetrics.Readability(strings.Join(page.TextFragments, " ")),
		ContentLength:  textmetrics.ContentLength(page.Text),
		InternalLinks:  []string{},
		ExternalLinks:  []string{},
		BrokenLinks:    []string{},
		ImageAlts:      make(map[string]string, len(page.Images)),
		PageSpeed:      math.Round(page.LoadTime.Seconds()*100) / 100,
		MobileFriendly: page.MobileFriendly,
		PageSize:       page.PageSize,
	}
	for src, alt := range page.Images {
		m.ImageAlts[src] = alt
	}

	partition, err := links.Classify(page.URL, page.Links)
	if err != nil {
		e.logger.WithError(err).WithField("url", page.URL).Warn("link classification skipped")
	} else {
		m.InternalLinks = partition.Internal
		m.ExternalLinks = partition.External
	}

	if e.checker != nil {
		all := make([]string, 0, len(m.InternalLinks)+len(m.ExternalLinks))
		all = append(all, m.InternalLinks...)
		all = append(all, m.ExternalLinks...)
		if broken := e.checker.Broken(ctx, all); broken != nil {
			m.BrokenLinks = broken
		}
	}
	return m
}
