package links

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

// ErrInvalidBase is returned when the page URL itself has no usable host
var ErrInvalidBase = errors.New("invalid base url")

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// Partition holds discovered links split by host relative to the page.
type Partition struct {
	Internal []string `json:"internal"`
	External []string `json:"external"`
}

// Host parses raw as an absolute URL and returns its lowercased host
// (including any port). Relative or unparsable input is an error.
func Host(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}
	parsed, err := urlParser.Parse(raw)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(parsed.Href(false))
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return strings.ToLower(u.Host), nil
}

// Classify partitions links into internal and external by exact host match
// against base. Input order is preserved and malformed links are dropped.
func Classify(base string, links []string) (Partition, error) {
	p := Partition{
		Internal: []string{},
		External: []string{},
	}

	baseHost, err := Host(base)
	if err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidBase, err)
	}

	for _, link := range links {
		host, err := Host(link)
		if err != nil {
			continue
		}
		if host == baseHost {
			p.Internal = append(p.Internal, link)
		} else {
			p.External = append(p.External, link)
		}
	}
	return p, nil
}
