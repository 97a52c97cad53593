package textmetrics

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

var (
	styleBlockPattern  = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	scriptBlockPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Normalize turns raw page HTML into lowercase plain text.
//
// Style and script blocks are dropped with their content, every other tag is
// replaced by a single space, whitespace runs collapse to one space and the
// result is trimmed. This is not an HTML parser: malformed markup can leak
// fragments into the output.
func Normalize(html string) string {
	text := styleBlockPattern.ReplaceAllString(html, " ")
	text = scriptBlockPattern.ReplaceAllString(text, " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// ContentHash returns a stable fingerprint of already normalized text
func ContentHash(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}
