// Package sources holds the validated, immutable set of source descriptors
// a run iterates over.
package sources

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"RegulatoryScanner/internal/domain"
)

// Registry is read-only after New.
type Registry struct {
	ordered []domain.SourceDescriptor
	byCode  map[string]int
}

// New validates descs and rejects duplicate authority codes. Order is kept.
func New(descs ...domain.SourceDescriptor) (*Registry, error) {
	r := &Registry{byCode: make(map[string]int, len(descs))}
	var errs []error
	for _, d := range descs {
		if err := Validate(d); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := r.byCode[d.AuthorityCode]; dup {
			errs = append(errs, fmt.Errorf("source %s: duplicate authority code", d.AuthorityCode))
			continue
		}
		r.byCode[d.AuthorityCode] = len(r.ordered)
		r.ordered = append(r.ordered, clone(d))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks a single descriptor.
func Validate(d domain.SourceDescriptor) error {
	code := strings.TrimSpace(d.AuthorityCode)
	if code == "" {
		return errors.New("source without authority code")
	}
	var problems []string
	if strings.TrimSpace(d.Jurisdiction) == "" {
		problems = append(problems, "jurisdiction is required")
	}
	if strings.TrimSpace(d.Authority) == "" {
		problems = append(problems, "authority is required")
	}
	if u, err := url.Parse(d.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		problems = append(problems, "base url must be absolute")
	}
	switch d.ParserKind {
	case domain.ParserHTMLTable:
		if len(d.Columns) == 0 {
			problems = append(problems, "html_table sources need columns")
		}
	case domain.ParserJSON:
	case domain.ParserXML:
		if strings.TrimSpace(d.RecordElement) == "" {
			problems = append(problems, "xml sources need a record element")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown parser kind %q", d.ParserKind))
	}
	switch d.Pagination.Scheme {
	case "", domain.PaginateNone, domain.PaginateOffset, domain.PaginatePage:
	default:
		problems = append(problems, fmt.Sprintf("unknown pagination scheme %q", d.Pagination.Scheme))
	}
	if d.PageSize < 1 {
		problems = append(problems, "page size must be at least 1")
	}
	if d.MaxPages < 1 {
		problems = append(problems, "max pages must be at least 1")
	}
	if d.RateLimitMillis < 0 {
		problems = append(problems, "rate limit must not be negative")
	}
	if d.Reliability < 0 || d.Reliability > 1 {
		problems = append(problems, "reliability must be within [0,1]")
	}
	if d.FallbackCount < 0 {
		problems = append(problems, "fallback count must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("source %s: %s", code, strings.Join(problems, "; "))
	}
	return nil
}

// All returns copies of the descriptors in registration order.
func (r *Registry) All() []domain.SourceDescriptor {
	out := make([]domain.SourceDescriptor, 0, len(r.ordered))
	for _, d := range r.ordered {
		out = append(out, clone(d))
	}
	return out
}

// Lookup finds a descriptor by authority code.
func (r *Registry) Lookup(code string) (domain.SourceDescriptor, bool) {
	i, ok := r.byCode[code]
	if !ok {
		return domain.SourceDescriptor{}, false
	}
	return clone(r.ordered[i]), true
}

// Codes lists authority codes sorted by priority, then code.
func (r *Registry) Codes() []string {
	descs := r.All()
	sort.SliceStable(descs, func(i, j int) bool {
		if descs[i].Priority != descs[j].Priority {
			return descs[i].Priority < descs[j].Priority
		}
		return descs[i].AuthorityCode < descs[j].AuthorityCode
	})
	codes := make([]string, 0, len(descs))
	for _, d := range descs {
		codes = append(codes, d.AuthorityCode)
	}
	return codes
}

// Priorities maps authority codes to their output priority.
func (r *Registry) Priorities() map[string]int {
	return Priorities(r.ordered)
}

// Priorities maps authority codes of descs to their output priority.
func Priorities(descs []domain.SourceDescriptor) map[string]int {
	out := make(map[string]int, len(descs))
	for _, d := range descs {
		out[d.AuthorityCode] = d.Priority
	}
	return out
}

// Len is the number of registered sources.
func (r *Registry) Len() int { return len(r.ordered) }

func clone(d domain.SourceDescriptor) domain.SourceDescriptor {
	d.Columns = append([]string(nil), d.Columns...)
	d.DateLayouts = append([]string(nil), d.DateLayouts...)
	if d.FieldMap != nil {
		m := make(map[string]string, len(d.FieldMap))
		for k, v := range d.FieldMap {
			m[k] = v
		}
		d.FieldMap = m
	}
	return d
}
