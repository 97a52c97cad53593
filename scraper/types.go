package scraper

import "time"

// PageMetadata is everything extracted from one fetch of a page
type PageMetadata struct {
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	H1             string            `json:"h1"`
	H2s            []string          `json:"h2s"`
	H3s            []string          `json:"h3s"`
	H4s            []string          `json:"h4s"`
	TextFragments  []string          `json:"textFragments"`
	Text           string            `json:"text"` // normalized page text
	ContentHash    string            `json:"contentHash"`
	Links          []string          `json:"links"`
	Images         map[string]string `json:"images"` // src -> alt
	MobileFriendly bool              `json:"mobileFriendly"`
	PageSize       int               `json:"pageSize"`
	LoadTime       time.Duration     `json:"loadTime"`
	Rendered       bool              `json:"rendered"`
	FetchedAt      time.Time         `json:"fetchedAt"`
}

