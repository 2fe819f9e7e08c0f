package domain

import (
	"encoding/json"
	"time"
)

// DeviceClass is the canonical risk tier.
type DeviceClass string

const (
	ClassI       DeviceClass = "Class I"
	ClassII      DeviceClass = "Class II"
	ClassIII     DeviceClass = "Class III"
	ClassIVD     DeviceClass = "IVD"
	ClassUnknown DeviceClass = "Unknown"
)

// RiskLevel is derived from DeviceClass and the submission pathway.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// DataQuality flags how a record was obtained.
type DataQuality string

const (
	QualityHigh   DataQuality = "high"
	QualityMedium DataQuality = "medium"
	QualityLow    DataQuality = "low"
)

// Status is the regulatory state of the device decision.
type Status string

const (
	StatusApproved    Status = "approved"
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusRejected    Status = "rejected"
	StatusRecalled    Status = "recalled"
)

// VerificationStatus reports whether a record was read from the authority.
type VerificationStatus string

const (
	VerificationVerified VerificationStatus = "verified"
	VerificationPending  VerificationStatus = "pending"
	VerificationFailed   VerificationStatus = "failed"
)

// ClassificationResult is folded into RegulatoryRecord; Rule names the
// table entry that decided the class and is kept for diagnostics only.
type ClassificationResult struct {
	DeviceClass     DeviceClass
	RiskLevel       RiskLevel
	TherapeuticArea string
	Rule            string
}

// RegulatoryRecord is the canonical record handed to consumers.
// JSON names are a compatibility surface: do not rename.
type RegulatoryRecord struct {
	ID                 string             `json:"id"`
	SourceCode         string             `json:"sourceCode"`
	Title              string             `json:"title"`
	DeviceName         string             `json:"deviceName"`
	Manufacturer       string             `json:"manufacturer"`
	ApplicantName      string             `json:"applicantName"`
	DeviceClass        DeviceClass        `json:"deviceClass"`
	RiskLevel          RiskLevel          `json:"riskLevel"`
	TherapeuticArea    string             `json:"therapeuticArea"`
	ProductCode        string             `json:"productCode"`
	SubmissionType     string             `json:"submissionType"`
	DecisionType       string             `json:"decisionType"`
	DecisionDate       string             `json:"decisionDate"`
	ReviewPanel        string             `json:"reviewPanel"`
	Jurisdiction       string             `json:"jurisdiction"`
	Region             string             `json:"region"`
	Authority          string             `json:"authority"`
	Language           string             `json:"language"`
	DocumentURL        string             `json:"documentUrl"`
	PublishedDate      time.Time          `json:"publishedDate"`
	RetrievedAt        time.Time          `json:"retrievedAt"`
	Tags               []string           `json:"tags"`
	Keywords           []string           `json:"keywords"`
	DataQuality        DataQuality        `json:"dataQuality"`
	ConfidenceScore    float64            `json:"confidenceScore"`
	Status             Status             `json:"status"`
	VerificationStatus VerificationStatus `json:"verificationStatus"`
	RawData            map[string]any     `json:"rawData"`
}

// IsFallback reports whether the record was synthesized by the fallback path.
func (r RegulatoryRecord) IsFallback() bool {
	v, ok := r.RawData["fallback"].(bool)
	return ok && v
}

// MarshalJSON writes nil tags, keywords and rawData as empty values so
// consumers never see null collections.
func (r RegulatoryRecord) MarshalJSON() ([]byte, error) {
	type plain RegulatoryRecord
	p := plain(r)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	if p.RawData == nil {
		p.RawData = map[string]any{}
	}
	return json.Marshal(p)
}
