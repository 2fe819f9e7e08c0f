package domain

import (
	"fmt"
	"strings"
	"time"
)

// Raw field names shared by all extractors. FieldMap and Columns in a
// SourceDescriptor map upstream columns/keys onto these names.
const (
	FieldNativeID       = "native_id"
	FieldDeviceName     = "device_name"
	FieldApplicant      = "applicant"
	FieldManufacturer   = "manufacturer"
	FieldTitle          = "title"
	FieldProductCode    = "product_code"
	FieldDeviceClass    = "device_class"
	FieldDecisionCode   = "decision_code"
	FieldDecisionDate   = "decision_date"
	FieldSubmissionType = "submission_type"
	FieldReviewPanel    = "review_panel"
	FieldDocumentURL    = "document_url"
	FieldStatus         = "status"
	FieldRecallClass    = "recall_class"
)

// RawRow is one loosely-typed listing row between extraction and normalization.
type RawRow struct {
	Fields    map[string]string
	FetchedAt time.Time
	SourceURL string
	Page      int
}

// Get returns the trimmed value for key, or "".
func (r RawRow) Get(key string) string {
	if r.Fields == nil {
		return ""
	}
	return strings.TrimSpace(r.Fields[key])
}

// Validate checks the essential keys: native id, device name and at least
// one of applicant or manufacturer.
func (r RawRow) Validate() error {
	if r.Get(FieldNativeID) == "" {
		return fmt.Errorf("missing %s", FieldNativeID)
	}
	if r.Get(FieldDeviceName) == "" {
		return fmt.Errorf("missing %s", FieldDeviceName)
	}
	if r.Get(FieldApplicant) == "" && r.Get(FieldManufacturer) == "" {
		return fmt.Errorf("missing %s and %s", FieldApplicant, FieldManufacturer)
	}
	return nil
}

// Extraction is the ordered output of one payload. Scanned counts every
// row seen upstream, Dropped the rows skipped for missing essential fields
// or short column counts.
type Extraction struct {
	Rows    []RawRow
	Scanned int
	Dropped int
}

// Payload is a raw response body fetched for one page of a source.
type Payload struct {
	Body        []byte
	ContentType string
	URL         string
	Page        int
	FetchedAt   time.Time
}
