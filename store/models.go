package store

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Record is one persisted analysis of a URL at a point in time. Current and
// suggested heading arrays are index-aligned but may differ in length.
type Record struct {
	ID      string `gorm:"primaryKey;size:36" json:"id"`
	URL     string `gorm:"index;not null" json:"url"`
	Company string `gorm:"index" json:"company"`

	CurrentTitle         string `json:"currentTitle"`
	SuggestedTitle       string `json:"suggestedTitle"`
	TitleContext         string `gorm:"type:text" json:"titleContext"`
	CurrentDescription   string `gorm:"type:text" json:"currentDescription"`
	SuggestedDescription string `gorm:"type:text" json:"suggestedDescription"`
	DescriptionContext   string `gorm:"type:text" json:"descriptionContext"`
	CurrentH1            string `json:"currentH1"`
	SuggestedH1          string `json:"suggestedH1"`
	H1Context            string `gorm:"type:text" json:"h1Context"`

	CurrentH2s   []string `gorm:"serializer:json;type:text" json:"currentH2s"`
	SuggestedH2s []string `gorm:"serializer:json;type:text" json:"suggestedH2s"`
	H2Context    string   `gorm:"type:text" json:"h2Context"`
	CurrentH3s   []string `gorm:"serializer:json;type:text" json:"currentH3s"`
	SuggestedH3s []string `gorm:"serializer:json;type:text" json:"suggestedH3s"`
	H3Context    string   `gorm:"type:text" json:"h3Context"`
	CurrentH4s   []string `gorm:"serializer:json;type:text" json:"currentH4s"`
	SuggestedH4s []string `gorm:"serializer:json;type:text" json:"suggestedH4s"`
	H4Context    string   `gorm:"type:text" json:"h4Context"`

	ReadabilityScore float64 `json:"readabilityScore"`
	ContentLength    int     `json:"contentLength"`
	ContentHash      string  `json:"contentHash"`

	InternalLinks []string          `gorm:"serializer:json;type:text" json:"internalLinks"`
	ExternalLinks []string          `gorm:"serializer:json;type:text" json:"externalLinks"`
	BrokenLinks   []string          `gorm:"serializer:json;type:text" json:"brokenLinks"`
	ImageAlts     map[string]string `gorm:"serializer:json;type:text" json:"imageAlts"`

	PageSpeed          float64 `json:"pageSpeed"` // seconds
	PageSpeedSimulated bool    `gorm:"default:false" json:"pageSpeedSimulated"`
	PageSize           int     `json:"pageSize"`
	MobileFriendly     bool    `json:"mobileFriendly"`
	Archived           bool    `gorm:"index;default:false" json:"archived"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// BeforeCreate assigns an identifier when the caller did not
func (r *Record) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.fillDefaults()
	return nil
}

// AfterFind replaces NULL collections with empty ones
func (r *Record) AfterFind(_ *gorm.DB) error {
	r.fillDefaults()
	return nil
}

func (r *Record) fillDefaults() {
	for _, s := range []*[]string{
		&r.CurrentH2s, &r.SuggestedH2s,
		&r.CurrentH3s, &r.SuggestedH3s,
		&r.CurrentH4s, &r.SuggestedH4s,
		&r.InternalLinks, &r.ExternalLinks, &r.BrokenLinks,
	} {
		if *s == nil {
			*s = []string{}
		}
	}
	if r.ImageAlts == nil {
		r.ImageAlts = map[string]string{}
	}
}

// Filter selects records. Nil fields do not constrain the query. A Company
// pointing at "" matches records without a company.
type Filter struct {
	ID       string
	URL      string
	Company  *string
	Archived *bool
	Limit    int
}

// IsEmpty reports whether the filter would match every record
func (f Filter) IsEmpty() bool {
	return f.ID == "" && f.URL == "" && f.Company == nil && f.Archived == nil
}

// Patch lists the mutable fields of a record
type Patch struct {
	Archived *bool
}

// CompanySummary counts records per company
type CompanySummary struct {
	Company  string `json:"company"`
	Total    int64  `json:"total"`
	Archived int64  `json:"archived"`
}

// String returns a pointer to s, for building filters
func String(s string) *string { return &s }

// Bool returns a pointer to b, for building filters and patches
func Bool(b bool) *bool { return &b }
