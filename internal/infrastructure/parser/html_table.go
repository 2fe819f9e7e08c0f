package parser

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/scanner"
)

const defaultTableSelector = "table"

// HTMLTable extracts rows from the first listing table of an HTML page.
// Columns are positional: src.Columns[i] names the raw field of cell i.
type HTMLTable struct{}

var _ scanner.Strategy = HTMLTable{}

// NewHTMLTable returns the HTML table strategy.
func NewHTMLTable() HTMLTable { return HTMLTable{} }

// Kind identifies the strategy inside the registry.
func (HTMLTable) Kind() domain.ParserKind { return domain.ParserHTMLTable }

// Extract walks the table rows. Header-only rows are skipped, rows with
// fewer cells than the column layout are dropped.
func (HTMLTable) Extract(payload domain.Payload, src domain.SourceDescriptor) (domain.Extraction, error) {
	if len(src.Columns) == 0 {
		return domain.Extraction{}, domain.Unparseable(domain.ParserHTMLTable, "source has no column layout", nil)
	}

	reader, err := charset.NewReader(bytes.NewReader(payload.Body), payload.ContentType)
	if err != nil {
		return domain.Extraction{}, domain.Unparseable(domain.ParserHTMLTable, "decode charset", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return domain.Extraction{}, domain.Unparseable(domain.ParserHTMLTable, "parse document", err)
	}

	selector := strings.TrimSpace(src.TableSelector)
	if selector == "" {
		selector = defaultTableSelector
	}
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return domain.Extraction{}, domain.Unparseable(domain.ParserHTMLTable, "no table matches "+selector, nil)
	}

	base := baseURL(payload.URL, src.BaseURL)

	var ext domain.Extraction
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if tr.ChildrenFiltered("td").Length() == 0 {
			return
		}
		ext.Scanned++

		cells := tr.ChildrenFiltered("td, th")
		if cells.Length() < len(src.Columns) {
			ext.Dropped++
			return
		}

		fields := make(map[string]string, len(src.Columns)+1)
		cells.Each(func(i int, cell *goquery.Selection) {
			if i >= len(src.Columns) {
				return
			}
			name := strings.TrimSpace(src.Columns[i])
			if name == "" || name == "-" {
				return
			}
			fields[name] = collapse(cell.Text())
			if name == src.LinkColumn {
				if href := cellLink(cell, base); href != "" {
					fields[domain.FieldDocumentURL] = href
				}
			}
		})
		applyConstants(src.FieldMap, fields)
		appendRow(&ext, payload, fields)
	})

	return ext, nil
}

func cellLink(cell *goquery.Selection, base *url.URL) string {
	href, ok := cell.Find("a[href]").First().Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		if ref.IsAbs() {
			return ref.String()
		}
		return ""
	}
	return base.ResolveReference(ref).String()
}

func baseURL(candidates ...string) *url.URL {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if u, err := url.Parse(c); err == nil && u.IsAbs() {
			return u
		}
	}
	return nil
}
