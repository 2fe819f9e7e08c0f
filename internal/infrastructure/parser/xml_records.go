package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/scanner"
)

// XMLRecords streams an XML feed and turns every src.RecordElement into a row.
// Children are flattened into dotted paths relative to the record element,
// attributes into "path@name".
type XMLRecords struct{}

var _ scanner.Strategy = XMLRecords{}

// NewXMLRecords returns the XML strategy.
func NewXMLRecords() XMLRecords { return XMLRecords{} }

// Kind identifies the strategy inside the registry.
func (XMLRecords) Kind() domain.ParserKind { return domain.ParserXML }

// Extract decodes the whole document; any syntax error fails the payload.
func (XMLRecords) Extract(payload domain.Payload, src domain.SourceDescriptor) (domain.Extraction, error) {
	element := strings.TrimSpace(src.RecordElement)
	if element == "" {
		return domain.Extraction{}, domain.Unparseable(domain.ParserXML, "source has no record element", nil)
	}
	if len(bytes.TrimSpace(payload.Body)) == 0 {
		return domain.Extraction{}, domain.Unparseable(domain.ParserXML, "empty payload", nil)
	}

	dec := xml.NewDecoder(bytes.NewReader(payload.Body))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		ext      domain.Extraction
		rec      *xmlRecord
		sawRoot  bool
		openPath []string
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Extraction{}, domain.Unparseable(domain.ParserXML, "malformed document", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			sawRoot = true
			if rec == nil {
				if t.Name.Local == element {
					rec = newXMLRecord()
					openPath = openPath[:0]
					rec.attrs("", t.Attr)
				}
				continue
			}
			openPath = append(openPath, t.Name.Local)
			rec.attrs(strings.Join(openPath, "."), t.Attr)
		case xml.EndElement:
			if rec == nil {
				continue
			}
			if len(openPath) == 0 {
				ext.Scanned++
				fields := mapFields(src.FieldMap, rec.values, func(path string) string {
					return rec.values[path]
				})
				appendRow(&ext, payload, fields)
				rec = nil
				continue
			}
			rec.close(strings.Join(openPath, "."))
			openPath = openPath[:len(openPath)-1]
		case xml.CharData:
			if rec == nil {
				continue
			}
			rec.text(strings.Join(openPath, "."), string(t))
		}
	}

	if !sawRoot {
		return domain.Extraction{}, domain.Unparseable(domain.ParserXML, "no root element", nil)
	}
	return ext, nil
}

// xmlRecord accumulates the flattened values of one record element. The
// first occurrence of a repeated child wins.
type xmlRecord struct {
	values map[string]string
	closed map[string]bool
}

func newXMLRecord() *xmlRecord {
	return &xmlRecord{values: map[string]string{}, closed: map[string]bool{}}
}

func (r *xmlRecord) close(key string) {
	if v, ok := r.values[key]; ok {
		r.values[key] = collapse(v)
	}
	r.closed[key] = true
}

func (r *xmlRecord) text(key, s string) {
	if r.closed[key] || strings.TrimSpace(s) == "" {
		return
	}
	r.values[key] += s
}

func (r *xmlRecord) attrs(key string, attrs []xml.Attr) {
	for _, a := range attrs {
		name := key + "@" + a.Name.Local
		if _, ok := r.values[name]; ok {
			continue
		}
		if v := collapse(a.Value); v != "" {
			r.values[name] = v
		}
	}
}
