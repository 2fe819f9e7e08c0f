package normalize

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var strictPolicy = bluemonday.StrictPolicy()

// markupTag matches complete opening or closing HTML elements that show up
// in authority listings. A bare "<" or an unknown "<Word>" is plain text.
var markupTag = regexp.MustCompile(`(?i)</?(a|abbr|b|br|code|div|em|font|h[1-6]|hr|i|img|li|ol|p|pre|script|small|span|strong|style|sub|sup|table|tbody|td|th|thead|tr|u|ul)(\s[^<>]*)?/?>`)

// CleanText normalizes free text from an authority listing: NFKC folding,
// markup removal, entity decoding, control characters dropped and
// whitespace collapsed. Text is never truncated.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = stripMarkup(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case unicode.IsControl(r), r == '\ufeff', r == '\u200b':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// stripMarkup removes HTML elements and decodes entities. The sanitizer
// reads any "<letter" as a tag start, so its output is only taken when it
// keeps every letter that sits outside the recognised tags.
func stripMarkup(s string) string {
	if !markupTag.MatchString(s) {
		if strings.Contains(s, "&") {
			return html.UnescapeString(s)
		}
		return s
	}
	plain := html.UnescapeString(markupTag.ReplaceAllString(s, " "))
	clean := html.UnescapeString(strictPolicy.Sanitize(s))
	if countLetters(clean) < countLetters(plain) {
		return plain
	}
	return clean
}

func countLetters(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}
