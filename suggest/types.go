package suggest

import (
	"context"
	"errors"
)

// ErrProvider is returned when the suggestion backend fails or answers with
// something that cannot be used
var ErrProvider = errors.New("suggestion provider failed")

// Request carries the current on-page fields of a page
type Request struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	H1          string   `json:"h1"`
	H2s         []string `json:"h2s"`
	H3s         []string `json:"h3s"`
	H4s         []string `json:"h4s"`
	Text        string   `json:"text,omitempty"`
}

// Suggestions are the proposed replacements for each field. Heading arrays
// are index-aligned with the request but may differ in length.
type Suggestions struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	H1          string   `json:"h1"`
	H2s         []string `json:"h2s"`
	H3s         []string `json:"h3s"`
	H4s         []string `json:"h4s"`

	TitleContext       string `json:"titleContext"`
	DescriptionContext string `json:"descriptionContext"`
	H1Context          string `json:"h1Context"`
	H2Context          string `json:"h2Context"`
	H3Context          string `json:"h3Context"`
	H4Context          string `json:"h4Context"`

	Metrics Metrics `json:"metrics"`
}

// Metrics are derived from the scraped page rather than generated
type Metrics struct {
	Readability        float64           `json:"readability"`
	ContentLength      int               `json:"contentLength"`
	InternalLinks      []string          `json:"internalLinks"`
	ExternalLinks      []string          `json:"externalLinks"`
	BrokenLinks        []string          `json:"brokenLinks"`
	ImageAlts          map[string]string `json:"imageAlts"`
	PageSpeed          float64           `json:"pageSpeed"` // seconds
	PageSpeedSimulated bool              `json:"pageSpeedSimulated"`
	MobileFriendly     bool              `json:"mobileFriendly"`
	PageSize           int               `json:"pageSize"`
}

// Generator produces suggested replacements for a page's metadata
type Generator interface {
	Suggest(ctx context.Context, req Request) (*Suggestions, error)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (s *Suggestions) fillDefaults() {
	s.H2s = orEmpty(s.H2s)
	s.H3s = orEmpty(s.H3s)
	s.H4s = orEmpty(s.H4s)
}
