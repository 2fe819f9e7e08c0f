package normalize

import (
	"strings"
	"time"
)

// DecisionDateLayout is the canonical decisionDate format.
const DecisionDateLayout = "2006-01-02"

// defaultDateLayouts are tried after a source's own layouts. Day-first
// numeric layouts are left to the sources that use them.
var defaultDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102",
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02.01.2006",
	"2006年1月2日",
}

// ParseDate tries layouts then the defaults and returns the date in UTC,
// truncated to the day.
func ParseDate(value string, layouts []string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, set := range [][]string{layouts, defaultDateLayouts} {
		for _, layout := range set {
			if t, err := time.Parse(layout, value); err == nil {
				t = t.UTC()
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
			}
		}
	}
	return time.Time{}, false
}
