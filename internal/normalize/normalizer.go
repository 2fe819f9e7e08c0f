// Package normalize maps classified raw rows onto the canonical
// RegulatoryRecord: stable ids, canonical dates, cleaned text, status and
// confidence.
package normalize

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

// RecordNamespace seeds the name-based record ids.
var RecordNamespace = uuid.MustParse("6f1c2a0e-9c4b-5d7e-8a31-2b6f0d4c9e57")

// TagDateEstimated marks records whose publication date was repaired.
const TagDateEstimated = "date-estimated"

const (
	minScrapedConfidence = 0.90
	maxScrapedConfidence = 0.98
	penaltyEstimatedDate = 0.02
	penaltyNoProductCode = 0.01
	penaltyNoDocumentURL = 0.01
)

// RecordID is the stable id of a record: a SHA-1 name-based UUID over the
// upper-cased authority code and native id.
func RecordID(authorityCode, nativeID string) string {
	name := strings.ToUpper(strings.TrimSpace(authorityCode)) + ":" + strings.ToUpper(strings.TrimSpace(nativeID))
	return uuid.NewSHA1(RecordNamespace, []byte(name)).String()
}

// Normalizer builds canonical records from scraped rows.
type Normalizer struct {
	now func() time.Time
}

var _ ports.Normalizer = (*Normalizer)(nil)

// New returns a normalizer reading the wall clock for rows without a fetch time.
func New() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Normalize maps row onto the canonical schema. It never fails: a missing
// or unreadable date falls back to the fetch time and is tagged.
func (n *Normalizer) Normalize(row domain.RawRow, cls domain.ClassificationResult, src domain.SourceDescriptor) domain.RegulatoryRecord {
	retrieved := row.FetchedAt.UTC()
	if row.FetchedAt.IsZero() {
		retrieved = n.now().UTC()
	}

	nativeID := row.Get(domain.FieldNativeID)
	deviceName := CleanText(row.Get(domain.FieldDeviceName))
	manufacturer := CleanText(row.Get(domain.FieldManufacturer))
	applicant := CleanText(row.Get(domain.FieldApplicant))
	if manufacturer == "" {
		manufacturer = applicant
	}
	if applicant == "" {
		applicant = manufacturer
	}
	title := CleanText(row.Get(domain.FieldTitle))
	if title == "" {
		title = deviceName
	}

	published, ok := ParseDate(row.Get(domain.FieldDecisionDate), src.DateLayouts)
	estimated := !ok
	if estimated {
		published = time.Date(retrieved.Year(), retrieved.Month(), retrieved.Day(), 0, 0, 0, 0, time.UTC)
	}

	productCode := strings.ToUpper(row.Get(domain.FieldProductCode))
	submission := CleanText(row.Get(domain.FieldSubmissionType))
	if submission == "" {
		submission = src.SubmissionType
	}
	decision := DecisionType(row.Get(domain.FieldDecisionCode))
	upstreamStatus := CleanText(row.Get(domain.FieldStatus))
	if decision == "" {
		decision = upstreamStatus
	}

	docURL, linked := documentURL(row, src, nativeID)

	authority := src.Authority
	if authority == "" {
		authority = src.AuthorityCode
	}

	tags := Tags(src.Jurisdiction, authority, submission, string(cls.DeviceClass), cls.TherapeuticArea, string(src.RecordKind))
	if estimated {
		tags = append(tags, TagDateEstimated)
	}

	return domain.RegulatoryRecord{
		ID:                 RecordID(src.AuthorityCode, nativeID),
		SourceCode:         src.AuthorityCode,
		Title:              title,
		DeviceName:         deviceName,
		Manufacturer:       manufacturer,
		ApplicantName:      applicant,
		DeviceClass:        cls.DeviceClass,
		RiskLevel:          cls.RiskLevel,
		TherapeuticArea:    cls.TherapeuticArea,
		ProductCode:        productCode,
		SubmissionType:     submission,
		DecisionType:       decision,
		DecisionDate:       published.Format(DecisionDateLayout),
		ReviewPanel:        CleanText(row.Get(domain.FieldReviewPanel)),
		Jurisdiction:       src.Jurisdiction,
		Region:             src.Region,
		Authority:          authority,
		Language:           src.Language,
		DocumentURL:        docURL,
		PublishedDate:      published,
		RetrievedAt:        retrieved,
		Tags:               tags,
		Keywords:           Keywords(deviceName),
		DataQuality:        domain.QualityHigh,
		ConfidenceScore:    ScrapedConfidence(src.Reliability, estimated, productCode == "", !linked),
		Status:             StatusFor(src.RecordKind, decision, upstreamStatus),
		VerificationStatus: domain.VerificationVerified,
		RawData:            rawData(row, cls),
	}
}

// ScrapedConfidence scores a record read from an authority: 0.90 plus up to
// 0.08 for source reliability, minus small penalties, kept in [0.90, 0.98].
func ScrapedConfidence(reliability float64, estimatedDate, noProductCode, noDocumentURL bool) float64 {
	reliability = math.Max(0, math.Min(1, reliability))
	score := minScrapedConfidence + 0.08*reliability
	if estimatedDate {
		score -= penaltyEstimatedDate
	}
	if noProductCode {
		score -= penaltyNoProductCode
	}
	if noDocumentURL {
		score -= penaltyNoDocumentURL
	}
	score = math.Max(minScrapedConfidence, math.Min(maxScrapedConfidence, score))
	return math.Round(score*1000) / 1000
}

// documentURL prefers the extracted link, then the source template, then the
// source base URL. The bool reports whether the link came from the row.
func documentURL(row domain.RawRow, src domain.SourceDescriptor, nativeID string) (string, bool) {
	if u := row.Get(domain.FieldDocumentURL); u != "" {
		return u, true
	}
	if src.DocumentURLTemplate != "" && nativeID != "" {
		return strings.ReplaceAll(src.DocumentURLTemplate, "{native_id}", url.PathEscape(nativeID)), false
	}
	return src.BaseURL, false
}

func rawData(row domain.RawRow, cls domain.ClassificationResult) map[string]any {
	keys := make([]string, 0, len(row.Fields))
	for k := range row.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(keys)+3)
	for _, k := range keys {
		out[k] = row.Fields[k]
	}
	if row.SourceURL != "" {
		out["sourceUrl"] = row.SourceURL
	}
	out["page"] = row.Page
	if cls.Rule != "" {
		out["classificationRule"] = cls.Rule
	}
	return out
}
