package normalize

import (
	"strings"
	"unicode"
)

const maxKeywords = 12

var stopwords = map[string]bool{
	"with": true, "from": true, "that": true, "this": true, "system": true, "device": true,
	"devices": true, "other": true, "type": true, "model": true, "only": true, "used": true,
	"into": true, "accessories": true, "accessory": true, "unit": true,
	"und": true, "pour": true, "avec": true, "para": true,
}

// Keywords returns the ordered unique tokens of text with at least four
// letters, lower-cased, stopwords removed, at most twelve.
func Keywords(text string) []string {
	out := make([]string, 0, maxKeywords)
	seen := map[string]bool{}
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		tok = strings.Trim(tok, "-")
		if letterCount(tok) < 4 || stopwords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

func letterCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// Tags builds an ordered unique tag list, skipping empty values.
func Tags(values ...string) []string {
	out := make([]string, 0, len(values))
	seen := map[string]bool{}
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
