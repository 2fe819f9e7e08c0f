// Package parser holds the payload extractors: HTML tables, JSON arrays and
// XML record feeds. Each turns one fetched page into raw rows keyed by the
// shared domain field names.
package parser

import (
	"sort"
	"strings"

	"RegulatoryScanner/internal/domain"
)

// literalPrefix marks a FieldMap value as a constant instead of a lookup path.
const literalPrefix = "="

// mapFields resolves every FieldMap entry through lookup. An empty map
// keeps the upstream keys as they are.
func mapFields(fieldMap map[string]string, upstream map[string]string, lookup func(path string) string) map[string]string {
	if len(fieldMap) == 0 {
		out := make(map[string]string, len(upstream))
		for k, v := range upstream {
			out[k] = v
		}
		return out
	}

	out := make(map[string]string, len(fieldMap))
	for raw, path := range fieldMap {
		if strings.HasPrefix(path, literalPrefix) {
			out[raw] = strings.TrimPrefix(path, literalPrefix)
			continue
		}
		if v := lookup(path); v != "" {
			out[raw] = v
		}
	}
	return out
}

// applyConstants adds the "=literal" entries of fieldMap to fields without
// overriding extracted values.
func applyConstants(fieldMap map[string]string, fields map[string]string) {
	keys := make([]string, 0, len(fieldMap))
	for k := range fieldMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, raw := range keys {
		path := fieldMap[raw]
		if !strings.HasPrefix(path, literalPrefix) {
			continue
		}
		if _, ok := fields[raw]; !ok {
			fields[raw] = strings.TrimPrefix(path, literalPrefix)
		}
	}
}

// collapse trims and folds inner whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// appendRow validates row and either keeps it or counts it as dropped.
func appendRow(ext *domain.Extraction, payload domain.Payload, fields map[string]string) {
	row := domain.RawRow{
		Fields:    fields,
		FetchedAt: payload.FetchedAt,
		SourceURL: payload.URL,
		Page:      payload.Page,
	}
	if err := row.Validate(); err != nil {
		ext.Dropped++
		return
	}
	ext.Rows = append(ext.Rows, row)
}
