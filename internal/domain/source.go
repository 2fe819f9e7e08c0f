package domain

import (
	"strings"
	"time"
)

// ParserKind selects the extractor used for a source payload.
type ParserKind string

const (
	ParserHTMLTable ParserKind = "html_table"
	ParserJSON      ParserKind = "json"
	ParserXML       ParserKind = "xml"
)

// RecordKind describes what a source publishes.
type RecordKind string

const (
	KindClearance    RecordKind = "clearance"
	KindApproval     RecordKind = "approval"
	KindRecall       RecordKind = "recall"
	KindGuidance     RecordKind = "guidance"
	KindRegistration RecordKind = "registration"
)

// PaginationScheme tells the fetcher how to address pages of a listing.
type PaginationScheme string

const (
	PaginateNone   PaginationScheme = "none"
	PaginateOffset PaginationScheme = "offset"
	PaginatePage   PaginationScheme = "page"
)

// Pagination carries the query parameter names of a paginated listing.
type Pagination struct {
	Scheme      PaginationScheme
	OffsetParam string
	LimitParam  string
	PageParam   string
	FirstPage   int
}

// SourceDescriptor is the static description of one regulatory data source.
// Descriptors are built once at startup and treated as read-only afterwards.
type SourceDescriptor struct {
	AuthorityCode   string
	Authority       string
	Jurisdiction    string
	Region          string
	Language        string
	BaseURL         string
	RateLimitMillis int
	RateLimitKey    string
	PageSize        int
	MaxPages        int
	ParserKind      ParserKind
	RecordKind      RecordKind
	SubmissionType  string
	Priority        int
	Reliability     float64
	FallbackCount   int
	Pagination      Pagination

	// Layout hints for the extractors.
	TableSelector       string
	Columns             []string
	LinkColumn          string
	RecordPath          string
	RecordElement       string
	FieldMap            map[string]string
	DateLayouts         []string
	DocumentURLTemplate string
}

// RateKey returns the key the rate limiter partitions this source under.
func (s SourceDescriptor) RateKey() string {
	if k := strings.TrimSpace(s.RateLimitKey); k != "" {
		return k
	}
	return s.AuthorityCode
}

// RateInterval converts RateLimitMillis into a duration.
func (s SourceDescriptor) RateInterval() time.Duration {
	if s.RateLimitMillis <= 0 {
		return 0
	}
	return time.Duration(s.RateLimitMillis) * time.Millisecond
}

// PageLimit is the number of pages a run may request: one for unpaginated
// listings, otherwise MaxPages (at least one).
func (s SourceDescriptor) PageLimit() int {
	if s.Pagination.Scheme == "" || s.Pagination.Scheme == PaginateNone || s.MaxPages < 1 {
		return 1
	}
	return s.MaxPages
}
