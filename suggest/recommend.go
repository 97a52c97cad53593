package suggest

import (
	"strconv"
	"time"
)

// Signals are the stored facts about a page that recommendations and the
// overall score are computed from
type Signals struct {
	Title          string
	Description    string
	H1             string
	ContentLength  int
	Images         map[string]string
	PageSize       int
	LoadTime       time.Duration
	MobileFriendly bool
	InternalLinks  int
	ExternalLinks  int
	BrokenLinks    int
}

// PageSizeSeverity grades page weight from good to critical
func PageSizeSeverity(pageSize int) string {
	pageSizeKB := float64(pageSize) / 1024.0
	switch {
	case pageSizeKB > 5120:
		return "critical"
	case pageSizeKB > 2048:
		return "major"
	case pageSizeKB > 1024:
		return "moderate"
	case pageSizeKB > 500:
		return "minor"
	}
	return "good"
}

// LoadTimeSeverity grades load time from good to critical
func LoadTimeSeverity(loadTime time.Duration) string {
	ms := loadTime.Milliseconds()
	switch {
	case ms > 3000:
		return "critical"
	case ms > 2000:
		return "major"
	case ms > 1500:
		return "moderate"
	case ms > 1000:
		return "minor"
	}
	return "good"
}

func imagesWithAlt(images map[string]string) int {
	n := 0
	for _, alt := range images {
		if alt != "" {
			n++
		}
	}
	return n
}

// Recommendations lists actionable fixes for a page
func Recommendations(s Signals) []string {
	recommendations := make([]string, 0)

	titleLen := len(s.Title)
	switch {
	case titleLen == 0:
		recommendations = append(recommendations, "Add a title tag to your page")
	case titleLen < titleMin:
		recommendations = append(recommendations, "Title tag is too short (should be 30-60 characters)")
	case titleLen > titleMax:
		recommendations = append(recommendations, "Title tag is too long (should be 30-60 characters)")
	}

	descLen := len(s.Description)
	switch {
	case descLen == 0:
		recommendations = append(recommendations, "Add a meta description")
	case descLen < descriptionMin:
		recommendations = append(recommendations, "Meta description is too short (should be 120-160 characters)")
	case descLen > descriptionMax:
		recommendations = append(recommendations, "Meta description is too long (should be 120-160 characters)")
	}

	if s.H1 == "" {
		recommendations = append(recommendations, "Add an H1 heading")
	}

	if s.ContentLength < 300 {
		recommendations = append(recommendations, "Add more content (aim for at least 300 words)")
	}
	if len(s.Images) > 0 && imagesWithAlt(s.Images) < len(s.Images) {
		recommendations = append(recommendations, "Add alt text to all images")
	}

	switch PageSizeSeverity(s.PageSize) {
	case "critical":
		recommendations = append(recommendations,
			"Critical: Page size is extremely large (>5MB). Consider optimizing images, minifying CSS/JS, and removing unnecessary resources")
	case "major":
		recommendations = append(recommendations,
			"Major: Page size is very large (>2MB). Optimize images and consider lazy loading for non-critical resources")
	case "moderate":
		recommendations = append(recommendations,
			"Moderate: Page size is large (>1MB). Look for opportunities to optimize images and resources")
	case "minor":
		recommendations = append(recommendations,
			"Minor: Page size is above optimal (>500KB). Consider basic optimization techniques")
	}

	switch LoadTimeSeverity(s.LoadTime) {
	case "critical":
		recommendations = append(recommendations,
			"Critical: Page load time is extremely slow (>3s). Consider using a CDN, optimizing server response time, and reducing resource size")
	case "major":
		recommendations = append(recommendations,
			"Major: Page load time is slow (>2s). Optimize server response time and consider resource optimization")
	case "moderate":
		recommendations = append(recommendations,
			"Moderate: Page load time is above optimal (>1.5s). Look for opportunities to improve performance")
	case "minor":
		recommendations = append(recommendations,
			"Minor: Page load time is slightly above optimal (>1s). Consider fine-tuning performance")
	}

	if !s.MobileFriendly {
		recommendations = append(recommendations,
			"Add a proper viewport meta tag for mobile optimization (e.g., <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">)")
	}

	if s.BrokenLinks > 0 {
		recommendations = append(recommendations,
			"Fix broken links: Found "+strconv.Itoa(s.BrokenLinks)+" broken link(s)")
	}
	if s.InternalLinks < 3 {
		recommendations = append(recommendations,
			"Add more internal links to improve site navigation and SEO (aim for at least 3-5)")
	}
	if s.ExternalLinks == 0 {
		recommendations = append(recommendations,
			"Add relevant external links to authoritative sources to improve content credibility")
	} else if s.ExternalLinks > 50 {
		recommendations = append(recommendations,
			"Consider reducing the number of external links (current: "+strconv.Itoa(s.ExternalLinks)+") to maintain focus")
	}

	return recommendations
}

// Score rates a page from 0 to 100 as a weighted sum of per-area scores
func Score(s Signals) float64 {
	score := 0.0
	score += float64(titleScore(len(s.Title))) * 0.2
	score += float64(descriptionScore(len(s.Description))) * 0.2
	score += float64(headingScore(s.H1)) * 0.15
	score += float64(contentScore(s)) * 0.2
	score += float64(performanceScore(s)) * 0.15
	score += float64(linkScore(s)) * 0.1
	return score
}

func titleScore(length int) int {
	switch {
	case length == 0:
		return 0
	case length >= titleMin && length <= titleMax:
		return 100
	case length < titleMin:
		return 50
	}
	return 70
}

func descriptionScore(length int) int {
	switch {
	case length == 0:
		return 0
	case length >= descriptionMin && length <= descriptionMax:
		return 100
	}
	return 50
}

func headingScore(h1 string) int {
	if h1 == "" {
		return 0
	}
	return 100
}

func contentScore(s Signals) int {
	score := 0
	if s.ContentLength >= 300 {
		score += 50
	}
	if len(s.Images) == 0 {
		return score + 20
	}
	switch withAlt := imagesWithAlt(s.Images); {
	case withAlt == len(s.Images):
		score += 50
	case withAlt > 0:
		score += 30
	}
	return score
}

func performanceScore(s Signals) int {
	score := 100
	switch PageSizeSeverity(s.PageSize) {
	case "critical":
		score -= 40
	case "major":
		score -= 30
	case "moderate":
		score -= 20
	case "minor":
		score -= 10
	}
	switch LoadTimeSeverity(s.LoadTime) {
	case "critical":
		score -= 40
	case "major":
		score -= 30
	case "moderate":
		score -= 20
	case "minor":
		score -= 10
	}
	if !s.MobileFriendly {
		score -= 20
	}
	return score
}

func linkScore(s Signals) int {
	score := 100

	switch {
	case s.InternalLinks == 0:
		score -= 40
	case s.InternalLinks < 3:
		score -= 30
	case s.InternalLinks < 5:
		score -= 20
	}

	switch {
	case s.ExternalLinks == 0:
		score -= 30
	case s.ExternalLinks > 50:
		score -= 15
	}

	switch {
	case s.BrokenLinks > 5:
		score -= 30
	case s.BrokenLinks > 3:
		score -= 20
	case s.BrokenLinks > 0:
		score -= 10
	}
	return score
}
