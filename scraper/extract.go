package scraper

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Extract parses an HTML document and pulls out the SEO-relevant fields.
// Links and image sources are resolved against pageURL.
func Extract(r io.Reader, pageURL string) (*PageMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(pageURL)

	meta := &PageMetadata{
		URL:    pageURL,
		Title:  collapse(doc.Find("title").First().Text()),
		H1:     collapse(doc.Find("h1").First().Text()),
		H2s:    headingTexts(doc, "h2"),
		H3s:    headingTexts(doc, "h3"),
		H4s:    headingTexts(doc, "h4"),
		Links:  extractLinks(doc, base),
		Images: extractImages(doc, base),
	}
	if desc, ok := doc.Find("meta[name='description']").Attr("content"); ok {
		meta.Description = collapse(desc)
	}
	if meta.Description == "" {
		if desc, ok := doc.Find("meta[property='og:description']").Attr("content"); ok {
			meta.Description = collapse(desc)
		}
	}

	doc.Find("meta[name='viewport']").Each(func(_ int, s *goquery.Selection) {
		content, exists := s.Attr("content")
		if exists && strings.Contains(strings.ToLower(content), "width=device-width") {
			meta.MobileFriendly = true
		}
	})

	meta.TextFragments = visibleText(doc.Find("body"))
	return meta, nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func headingTexts(doc *goquery.Document, tag string) []string {
	out := make([]string, 0)
	doc.Find(tag).Each(func(_ int, s *goquery.Selection) {
		if text := collapse(s.Text()); text != "" {
			out = append(out, text)
		}
	})
	return out
}

// resolve returns an absolute http(s) URL without fragment, or "" when the
// reference cannot be followed
func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return ""
	}
	lower := strings.ToLower(ref)
	for _, scheme := range []string{"mailto:", "javascript:", "tel:", "data:"} {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}

func extractLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	links := make([]string, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs := resolve(base, href)
		if abs == "" || seen[abs] {
			return
		}
		seen[abs] = true
		links = append(links, abs)
	})
	return links
}

func extractImages(doc *goquery.Document, base *url.URL) map[string]string {
	images := make(map[string]string)
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		abs := resolve(base, src)
		if abs == "" {
			return
		}
		if _, dup := images[abs]; dup {
			return
		}
		alt, _ := s.Attr("alt")
		images[abs] = strings.TrimSpace(alt)
	})
	return images
}

var hiddenTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"svg":      true,
}

// visibleText returns the trimmed text nodes under sel in document order
func visibleText(sel *goquery.Selection) []string {
	fragments := make([]string, 0)
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if hiddenTags[n.Data] {
				return
			}
		case html.TextNode:
			if text := collapse(n.Data); text != "" {
				fragments = append(fragments, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return fragments
}
