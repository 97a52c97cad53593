package textmetrics

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMinLength is the shortest token counted as a keyword (length > 3).
	DefaultMinLength = 4
	// MaxKeywords caps the number of entries in a DensityReport.
	MaxKeywords = 20
)

// KeywordDensityEntry is one counted keyword. It is never persisted.
type KeywordDensityEntry struct {
	Keyword string  `json:"keyword"`
	Count   int     `json:"count"`
	Density float64 `json:"density"`
}

// DensityReport is the output of the density extractor
type DensityReport struct {
	TotalWords int                   `json:"totalWords"`
	Keywords   []KeywordDensityEntry `json:"keywords"`
}

// DensityOptions tunes the extractor. The zero value uses the defaults.
type DensityOptions struct {
	MinLength int
	Limit     int
}

func (o DensityOptions) withDefaults() DensityOptions {
	if o.MinLength <= 0 {
		o.MinLength = DefaultMinLength
	}
	if o.Limit <= 0 {
		o.Limit = MaxKeywords
	}
	return o
}

// Tokens splits normalized text on whitespace and drops tokens that are empty
// once leftover markup characters are stripped.
func Tokens(text string) []string {
	fields := strings.Fields(text)
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "<>/")
		if f == "" {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// KeywordDensity counts keywords in normalized text using the default options
func KeywordDensity(text string) DensityReport {
	return KeywordDensityWithOptions(text, DensityOptions{})
}

// KeywordDensityWithOptions counts keywords in normalized text.
func KeywordDensityWithOptions(text string, opts DensityOptions) DensityReport {
	return density(Tokens(text), opts.withDefaults())
}

// KeywordDensityFromFragments counts keywords over visible-text fragments as
// returned by the scraper. Fragments are lowercased before tokenizing.
func KeywordDensityFromFragments(fragments []string, opts DensityOptions) DensityReport {
	var tokens []string
	for _, fragment := range fragments {
		tokens = append(tokens, Tokens(strings.ToLower(fragment))...)
	}
	return density(tokens, opts.withDefaults())
}

func density(tokens []string, opts DensityOptions) DensityReport {
	report := DensityReport{
		TotalWords: len(tokens),
		Keywords:   []KeywordDensityEntry{},
	}

	counts := make(map[string]int)
	order := make([]string, 0)
	for _, token := range tokens {
		if utf8.RuneCountInString(token) < opts.MinLength {
			continue
		}
		if _, seen := counts[token]; !seen {
			order = append(order, token)
		}
		counts[token]++
	}

	for _, keyword := range order {
		entry := KeywordDensityEntry{Keyword: keyword, Count: counts[keyword]}
		if report.TotalWords > 0 {
			entry.Density = float64(entry.Count) / float64(report.TotalWords) * 100
		}
		report.Keywords = append(report.Keywords, entry)
	}

	// Stable so equal counts keep first-seen order
	sort.SliceStable(report.Keywords, func(i, j int) bool {
		return report.Keywords[i].Count > report.Keywords[j].Count
	})
	if len(report.Keywords) > opts.Limit {
		report.Keywords = report.Keywords[:opts.Limit]
	}
	return report
}

// DensityClass is the presentation verdict for a keyword density
type DensityClass struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

const (
	DensityTooLow  = "too low"
	DensityTooHigh = "too high"
	DensityOptimal = "optimal"
	DensityWatch   = "watch"
)

// ClassifyDensity maps a density percentage onto the dashboard's four bands.
func ClassifyDensity(density float64) DensityClass {
	switch {
	case density < 0.5:
		return DensityClass{Level: DensityTooLow, Message: "Keyword is underused, consider adding it to headings and body copy"}
	case density > 4:
		return DensityClass{Level: DensityTooHigh, Message: "Keyword stuffing risk, reduce repetitions"}
	case density >= 0.5 && density <= 2.5:
		return DensityClass{Level: DensityOptimal, Message: "Keyword density is in the optimal range"}
	case density <= 2.5:
		return DensityClass{Level: DensityWatch, Message: "Slightly low, increase usage a little"}
	default:
		return DensityClass{Level: DensityWatch, Message: "Slightly high, decrease usage a little"}
	}
}
