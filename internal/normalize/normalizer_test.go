package normalize

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegulatoryScanner/internal/domain"
)

var fetched = time.Date(2025, time.February, 3, 14, 30, 0, 0, time.UTC)

func fda510k() domain.SourceDescriptor {
	return domain.SourceDescriptor{
		AuthorityCode:       "FDA_510K",
		Authority:           "FDA",
		Jurisdiction:        "US",
		Region:              "North America",
		Language:            "en",
		BaseURL:             "https://api.fda.gov/device/510k.json",
		RecordKind:          domain.KindClearance,
		SubmissionType:      "510(k)",
		Reliability:         1,
		DocumentURLTemplate: "https://www.accessdata.fda.gov/scripts/cdrh/cfdocs/cfpmn/pmn.cfm?ID={native_id}",
	}
}

func clearanceRow() domain.RawRow {
	return domain.RawRow{
		Fields: map[string]string{
			domain.FieldNativeID:     "K240001",
			domain.FieldDeviceName:   "Catheter, Intravascular",
			domain.FieldApplicant:    "Acme Medical",
			domain.FieldProductCode:  "dxx",
			domain.FieldDecisionCode: "SESE",
			domain.FieldDecisionDate: "2024-03-15",
			domain.FieldReviewPanel:  "Cardiovascular",
		},
		FetchedAt: fetched,
		SourceURL: "https://api.fda.gov/device/510k.json?skip=0&limit=100",
	}
}

func cardiology() domain.ClassificationResult {
	return domain.ClassificationResult{
		DeviceClass:     domain.ClassII,
		RiskLevel:       domain.RiskMedium,
		TherapeuticArea: "Cardiology",
		Rule:            "product-code:US:DXX",
	}
}

func TestNormalizeClearance(t *testing.T) {
	t.Parallel()

	rec := New().Normalize(clearanceRow(), cardiology(), fda510k())

	assert.Equal(t, RecordID("FDA_510K", "K240001"), rec.ID)
	assert.Equal(t, "FDA_510K", rec.SourceCode)
	assert.Equal(t, "Catheter, Intravascular", rec.Title)
	assert.Equal(t, "Acme Medical", rec.Manufacturer)
	assert.Equal(t, "Acme Medical", rec.ApplicantName)
	assert.Equal(t, domain.ClassII, rec.DeviceClass)
	assert.Equal(t, "Cardiology", rec.TherapeuticArea)
	assert.Equal(t, "DXX", rec.ProductCode)
	assert.Equal(t, "510(k)", rec.SubmissionType)
	assert.Equal(t, "Substantially Equivalent", rec.DecisionType)
	assert.Equal(t, "2024-03-15", rec.DecisionDate)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), rec.PublishedDate)
	assert.Equal(t, fetched, rec.RetrievedAt)
	assert.Equal(t, domain.QualityHigh, rec.DataQuality)
	assert.Equal(t, domain.VerificationVerified, rec.VerificationStatus)
	assert.Equal(t, domain.StatusApproved, rec.Status)
	assert.Equal(t, "https://www.accessdata.fda.gov/scripts/cdrh/cfdocs/cfpmn/pmn.cfm?ID=K240001", rec.DocumentURL)
	assert.GreaterOrEqual(t, rec.ConfidenceScore, 0.90)
	assert.LessOrEqual(t, rec.ConfidenceScore, 0.98)
	assert.Contains(t, rec.Tags, "US")
	assert.Contains(t, rec.Tags, "Cardiology")
	assert.NotContains(t, rec.Tags, TagDateEstimated)
	assert.Equal(t, []string{"catheter", "intravascular"}, rec.Keywords)
	assert.Equal(t, "K240001", rec.RawData[domain.FieldNativeID])
}

func TestRecordIDIsStable(t *testing.T) {
	t.Parallel()

	a := RecordID("FDA_510K", "K240001")
	assert.Equal(t, a, RecordID("fda_510k", " k240001 "))
	assert.NotEqual(t, a, RecordID("FDA_PMA", "K240001"))
	assert.NotEqual(t, a, RecordID("FDA_510K", "K240002"))

	n := New()
	first := n.Normalize(clearanceRow(), cardiology(), fda510k())
	later := clearanceRow()
	later.FetchedAt = fetched.Add(48 * time.Hour)
	second := n.Normalize(later, cardiology(), fda510k())
	assert.Equal(t, first.ID, second.ID, "id must not depend on fetch time")
}

func TestNormalizeRepairsUnreadableDate(t *testing.T) {
	t.Parallel()

	row := clearanceRow()
	row.Fields[domain.FieldDecisionDate] = "sometime in spring"

	rec := New().Normalize(row, cardiology(), fda510k())
	assert.Equal(t, "2025-02-03", rec.DecisionDate)
	assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), rec.PublishedDate)
	assert.Contains(t, rec.Tags, TagDateEstimated)
}

func TestNormalizeUsesSourceDateLayouts(t *testing.T) {
	t.Parallel()

	src := fda510k()
	src.DateLayouts = []string{"02/01/2006"}
	row := clearanceRow()
	row.Fields[domain.FieldDecisionDate] = "12/03/2024"

	rec := New().Normalize(row, cardiology(), src)
	assert.Equal(t, "2024-03-12", rec.DecisionDate)
}

func TestNormalizeCleansText(t *testing.T) {
	t.Parallel()

	row := clearanceRow()
	row.Fields[domain.FieldDeviceName] = "  <b>Ｓｔｅｎｔ</b> &amp; delivery\tsystem\u0007 "
	row.Fields[domain.FieldApplicant] = ""
	row.Fields[domain.FieldManufacturer] = "Stryker&nbsp;Corp"

	rec := New().Normalize(row, cardiology(), fda510k())
	assert.Equal(t, "Stent & delivery system", rec.DeviceName)
	assert.Equal(t, "Stryker Corp", rec.Manufacturer)
	assert.Equal(t, rec.Manufacturer, rec.ApplicantName)
}

func TestCleanTextKeepsLiteralAngleBrackets(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"a<b and c":                    "a<b and c",
		"Sizes a<b and c":              "Sizes a<b and c",
		"Catheter <Pediatric> 5Fr":     "Catheter <Pediatric> 5Fr",
		"Length &lt; 20 mm":            "Length < 20 mm",
		"<b>Guide</b>wire a<b and c":   "Guide wire a<b and c",
		"<p>Balloon</p> <br/>catheter": "Balloon catheter",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanText(in), in)
	}
}

func TestNormalizePrefersExtractedLink(t *testing.T) {
	t.Parallel()

	row := clearanceRow()
	row.Fields[domain.FieldDocumentURL] = "https://example.org/decision/K240001.pdf"
	rec := New().Normalize(row, cardiology(), fda510k())
	assert.Equal(t, "https://example.org/decision/K240001.pdf", rec.DocumentURL)

	src := fda510k()
	src.DocumentURLTemplate = ""
	rec = New().Normalize(clearanceRow(), cardiology(), src)
	assert.Equal(t, src.BaseURL, rec.DocumentURL)
}

func TestNormalizeRecallStatus(t *testing.T) {
	t.Parallel()

	src := fda510k()
	src.RecordKind = domain.KindRecall
	rec := New().Normalize(clearanceRow(), cardiology(), src)
	assert.Equal(t, domain.StatusRecalled, rec.Status)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		decision, upstream string
		want               domain.Status
	}{
		{"Substantially Equivalent", "", domain.StatusApproved},
		{"Not Substantially Equivalent", "", domain.StatusRejected},
		{"", "Under review", domain.StatusUnderReview},
		{"", "Pending", domain.StatusPending},
		{"", "Cancelled", domain.StatusRejected},
		{"", "", domain.StatusApproved},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(domain.KindClearance, tc.decision, tc.upstream), "%q/%q", tc.decision, tc.upstream)
	}
}

func TestParseDateLayouts(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"2024-03-15":           "2024-03-15",
		"20240315":             "2024-03-15",
		"March 15, 2024":       "2024-03-15",
		"15 Mar 2024":          "2024-03-15",
		"2024-03-15T23:30:00Z": "2024-03-15",
		"2024年3月15日":           "2024-03-15",
	} {
		got, ok := ParseDate(in, nil)
		require.True(t, ok, in)
		assert.Equal(t, want, got.Format(DecisionDateLayout), in)
	}
	_, ok := ParseDate("n/a", nil)
	assert.False(t, ok)
}

func TestKeywords(t *testing.T) {
	t.Parallel()

	got := Keywords("Implantable cardiac pacemaker system with pacemaker leads, IPG")
	assert.Equal(t, []string{"implantable", "cardiac", "pacemaker", "leads"}, got)
	assert.Len(t, Keywords("alpha bravo charlie delta echoes foxtrot golfs hotel india juliet kilos limas mikes novembers"), 12)
	assert.NotNil(t, Keywords(""))
}

func TestScrapedConfidenceStaysInRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("scraped confidence is within [0.90, 0.98]", prop.ForAll(
		func(reliability float64, estimated, noCode, noLink bool) bool {
			c := ScrapedConfidence(reliability, estimated, noCode, noLink)
			return c >= 0.90 && c <= 0.98
		},
		gen.Float64Range(-2, 3),
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
