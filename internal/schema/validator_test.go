package schema

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/fallback"
)

func validRecord() domain.RegulatoryRecord {
	published := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	return domain.RegulatoryRecord{
		ID:                 "3f0c8d6a-1b2c-5d3e-9f40-1234567890ab",
		SourceCode:         "FDA_510K",
		Title:              "Catheter, Intravascular",
		DeviceName:         "Catheter, Intravascular",
		Manufacturer:       "Acme Medical",
		ApplicantName:      "Acme Medical",
		DeviceClass:        domain.ClassII,
		RiskLevel:          domain.RiskMedium,
		TherapeuticArea:    "Cardiology",
		ProductCode:        "DXX",
		SubmissionType:     "510(k)",
		DecisionType:       "Substantially Equivalent",
		DecisionDate:       "2024-03-15",
		Jurisdiction:       "US",
		Region:             "North America",
		Authority:          "FDA",
		Language:           "en",
		DocumentURL:        "https://www.accessdata.fda.gov/",
		PublishedDate:      published,
		RetrievedAt:        published.Add(24 * time.Hour),
		DataQuality:        domain.QualityHigh,
		ConfidenceScore:    0.97,
		Status:             domain.StatusApproved,
		VerificationStatus: domain.VerificationVerified,
		RawData:            map[string]any{"k_number": "K240001"},
	}
}

func TestValidateAcceptsCanonicalRecord(t *testing.T) {
	t.Parallel()

	v, err := New()
	require.NoError(t, err)
	assert.NoError(t, v.Validate(validRecord()), "nil tags and keywords must encode as empty arrays")
}

func TestValidateAcceptsFallbackRecords(t *testing.T) {
	t.Parallel()

	v, err := New()
	require.NoError(t, err)

	src := domain.SourceDescriptor{AuthorityCode: "PMDA", Authority: "PMDA", Jurisdiction: "JP", BaseURL: "https://www.pmda.go.jp/"}
	for _, rec := range fallback.New(nil).Generate(src, 4, "no table") {
		assert.NoError(t, v.Validate(rec))
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	v, err := New()
	require.NoError(t, err)

	cases := map[string]func(*domain.RegulatoryRecord){
		"confidence above one": func(r *domain.RegulatoryRecord) { r.ConfidenceScore = 1.2 },
		"unknown class":        func(r *domain.RegulatoryRecord) { r.DeviceClass = "Class IIb" },
		"missing jurisdiction": func(r *domain.RegulatoryRecord) { r.Jurisdiction = "" },
		"bad decision date":    func(r *domain.RegulatoryRecord) { r.DecisionDate = "15/03/2024" },
		"fallback marked verified": func(r *domain.RegulatoryRecord) {
			r.RawData = map[string]any{"fallback": true}
		},
	}
	for name, mutate := range cases {
		rec := validRecord()
		mutate(&rec)
		assert.Error(t, v.Validate(rec), name)
	}
}
