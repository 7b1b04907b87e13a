package httpserver

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAllTags removes markup the way wp_strip_all_tags does: script and
// style elements go with their content, other tags are dropped and the
// text is left as written.
func stripAllTags(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return strings.TrimSpace(s)
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			if name, _ := z.TagName(); isRawElement(name) {
				skip++
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); isRawElement(name) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Raw())
			}
		}
	}
}

func isRawElement(name []byte) bool {
	n := string(name)
	return n == "script" || n == "style"
}

var (
	entityRe    = regexp.MustCompile(`&.+?;`)
	slugCharsRe = regexp.MustCompile(`[^%a-z0-9 _-]`)
	spaceRe     = regexp.MustCompile(`\s+`)
	dashesRe    = regexp.MustCompile(`-+`)
)

// removeAccents returns a fresh transformer; chains keep state.
func removeAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// sanitizeTitle builds a URL slug like WordPress sanitize_title: accents are
// folded, remaining non-ASCII bytes are percent-encoded and everything
// else outside [a-z0-9_-] is dropped.
func sanitizeTitle(title string) string {
	s := stripAllTags(title)
	if folded, _, err := transform.String(removeAccents(), s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.ReplaceAll(s, "%", ""))

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x80 {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "%%%02x", c)
	}
	s = b.String()
	s = entityRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ".", "-")
	s = slugCharsRe.ReplaceAllString(s, "")
	s = spaceRe.ReplaceAllString(s, "-")
	s = dashesRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
