package parser

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/scanner"
)

// JSONRecords extracts rows from an array of objects inside a JSON document.
type JSONRecords struct{}

var _ scanner.Strategy = JSONRecords{}

// NewJSONRecords returns the JSON strategy.
func NewJSONRecords() JSONRecords { return JSONRecords{} }

// Kind identifies the strategy inside the registry.
func (JSONRecords) Kind() domain.ParserKind { return domain.ParserJSON }

// Extract resolves src.RecordPath to an array and maps each object through
// src.FieldMap. Nested keys use dotted paths; arrays yield their first element.
func (JSONRecords) Extract(payload domain.Payload, src domain.SourceDescriptor) (domain.Extraction, error) {
	body := bytes.TrimPrefix(payload.Body, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.Extraction{}, domain.Unparseable(domain.ParserJSON, "empty payload", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return domain.Extraction{}, domain.Unparseable(domain.ParserJSON, "decode document", err)
	}

	node, ok := lookupJSON(doc, src.RecordPath)
	if !ok {
		return domain.Extraction{}, domain.Unparseable(domain.ParserJSON, "record path "+strconvQuote(src.RecordPath)+" not found", nil)
	}
	items, ok := node.([]any)
	if !ok {
		return domain.Extraction{}, domain.Unparseable(domain.ParserJSON, "record path "+strconvQuote(src.RecordPath)+" is not an array", nil)
	}

	var ext domain.Extraction
	for _, item := range items {
		ext.Scanned++
		obj, ok := item.(map[string]any)
		if !ok {
			ext.Dropped++
			continue
		}
		fields := mapFields(src.FieldMap, topLevel(obj), func(path string) string {
			v, _ := lookupJSON(obj, path)
			return collapse(stringify(v))
		})
		appendRow(&ext, payload, fields)
	}
	return ext, nil
}

// lookupJSON walks a dotted path. Arrays met along the way are entered at
// their first element. An empty path returns the node itself.
func lookupJSON(node any, path string) (any, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return node, true
	}
	for _, seg := range strings.Split(path, ".") {
		if arr, ok := node.([]any); ok {
			if len(arr) == 0 {
				return nil, false
			}
			node = arr[0]
		}
		obj, ok := node.(map[string]any)
		if !ok {
			return nil, false
		}
		node, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return node, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		if len(t) == 0 {
			return ""
		}
		return stringify(t[0])
	default:
		return ""
	}
}

func topLevel(obj map[string]any) map[string]string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]string, len(obj))
	for _, k := range keys {
		if s := collapse(stringify(obj[k])); s != "" {
			out[k] = s
		}
	}
	return out
}

func strconvQuote(s string) string {
	if s == "" {
		return `""`
	}
	return strconv.Quote(s)
}
