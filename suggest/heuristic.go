package suggest

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const (
	titleMin       = 30
	titleMax       = 60
	descriptionMin = 120
	descriptionMax = 160
)

// HeuristicGenerator proposes metadata without calling a model. It is used
// when no provider is configured.
type HeuristicGenerator struct{}

// NewHeuristicGenerator creates a HeuristicGenerator
func NewHeuristicGenerator() *HeuristicGenerator {
	return &HeuristicGenerator{}
}

// Suggest fits title and description into the recommended length ranges and
// cleans up headings
func (HeuristicGenerator) Suggest(ctx context.Context, req Request) (*Suggestions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	site := siteName(req.URL)

	out := &Suggestions{
		Title:       suggestTitle(req, site),
		Description: suggestDescription(req),
		H1:          strings.TrimSpace(req.H1),
		H2s:         tidyHeadings(req.H2s),
		H3s:         tidyHeadings(req.H3s),
		H4s:         tidyHeadings(req.H4s),
	}
	if out.H1 == "" {
		out.H1 = strings.TrimSpace(req.Title)
	}

	out.TitleContext = lengthContext("Title tag", len(req.Title), titleMin, titleMax)
	out.DescriptionContext = lengthContext("Meta description", len(req.Description), descriptionMin, descriptionMax)
	if strings.TrimSpace(req.H1) == "" {
		out.H1Context = "Add an H1 heading; the page title is a reasonable starting point"
	} else {
		out.H1Context = "Keep a single H1 that states the main topic of the page"
	}
	out.H2Context = headingContext("H2", req.H2s)
	out.H3Context = headingContext("H3", req.H3s)
	out.H4Context = headingContext("H4", req.H4s)

	out.fillDefaults()
	return out, nil
}

func siteName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if i := strings.Index(host, "."); i > 0 {
		host = host[:i]
	}
	if host == "" {
		return ""
	}
	return strings.ToUpper(host[:1]) + host[1:]
}

func suggestTitle(req Request, site string) string {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSpace(req.H1)
	}
	if len(title) < titleMin && site != "" && !strings.Contains(strings.ToLower(title), strings.ToLower(site)) {
		if title == "" {
			title = site
		} else {
			title = title + " | " + site
		}
	}
	return truncateWords(title, titleMax)
}

func suggestDescription(req Request) string {
	desc := strings.TrimSpace(req.Description)
	if len(desc) < descriptionMin {
		for _, word := range strings.Fields(req.Text) {
			if len(desc) >= descriptionMin {
				break
			}
			if desc == "" {
				desc = word
			} else {
				desc += " " + word
			}
		}
	}
	return truncateWords(desc, descriptionMax)
}

// truncateWords cuts s at the last word boundary that fits in max bytes
func truncateWords(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(strings.ToValidUTF8(cut, ""), " ,;:-|")
}

func tidyHeadings(headings []string) []string {
	out := make([]string, len(headings))
	for i, h := range headings {
		out[i] = strings.Join(strings.Fields(h), " ")
	}
	return out
}

func lengthContext(label string, n, min, max int) string {
	switch {
	case n == 0:
		return fmt.Sprintf("%s is missing; aim for %d-%d characters", label, min, max)
	case n < min:
		return fmt.Sprintf("%s is too short (should be %d-%d characters)", label, min, max)
	case n > max:
		return fmt.Sprintf("%s is too long (should be %d-%d characters)", label, min, max)
	default:
		return fmt.Sprintf("%s length is within the recommended %d-%d characters", label, min, max)
	}
}

func headingContext(level string, headings []string) string {
	if len(headings) == 0 {
		return fmt.Sprintf("No %s headings found; add some to structure the content", level)
	}
	seen := make(map[string]bool, len(headings))
	for _, h := range headings {
		key := strings.ToLower(strings.TrimSpace(h))
		if seen[key] {
			return fmt.Sprintf("Duplicate %s headings found; make each one distinct", level)
		}
		seen[key] = true
	}
	return fmt.Sprintf("Keep %s headings descriptive and include target keywords", level)
}
