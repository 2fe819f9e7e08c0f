// Package fallback synthesizes clearly flagged placeholder records for a
// source that produced no real rows in a run.
package fallback

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"RegulatoryScanner/internal/classify"
	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/normalize"
	"RegulatoryScanner/internal/ports"
)

// TagFallback marks every synthesized record.
const TagFallback = "fallback"

const (
	minConfidence     = 0.5
	confidenceSpread  = 0.2
	placeholderMaker  = "Unverified manufacturer"
	placeholderStatus = "Pending verification"
	maxAgeDays        = 90
)

// catalogue holds generic device names placeholders are drawn from.
var catalogue = []string{
	"Infusion pump",
	"Patient monitor",
	"Blood glucose meter",
	"Coronary stent system",
	"Examination glove",
	"Ultrasound imaging system",
	"Orthopedic bone screw",
	"HIV rapid test kit",
	"Surgical suture",
	"Pulse oximeter",
	"Implantable pacemaker",
	"Wound dressing",
}

// Generator builds placeholder records. Content depends only on the source
// code and the record index; dates follow the injected clock.
type Generator struct {
	classifier ports.Classifier
	now        func() time.Time
}

var _ ports.FallbackGenerator = (*Generator)(nil)

// New wires a generator; a nil classifier uses the default rule tables.
func New(classifier ports.Classifier) *Generator {
	if classifier == nil {
		classifier = classify.NewDefault()
	}
	return &Generator{classifier: classifier, now: time.Now}
}

// WithClock replaces the clock used for dates.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// NativeID is the placeholder native id of record index (zero-based).
func NativeID(authorityCode string, index int) string {
	return fmt.Sprintf("FALLBACK-%s-%04d", strings.ToUpper(strings.TrimSpace(authorityCode)), index+1)
}

// Generate returns exactly count records for src; count <= 0 yields none.
func (g *Generator) Generate(src domain.SourceDescriptor, count int, reason string) []domain.RegulatoryRecord {
	if count <= 0 {
		return []domain.RegulatoryRecord{}
	}
	now := g.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	seed := seedFor(src.AuthorityCode)

	authority := src.Authority
	if authority == "" {
		authority = src.AuthorityCode
	}

	out := make([]domain.RegulatoryRecord, 0, count)
	for i := 0; i < count; i++ {
		rng := rand.New(rand.NewPCG(seed, uint64(i)))
		nativeID := NativeID(src.AuthorityCode, i)
		device := catalogue[rng.IntN(len(catalogue))]
		published := today.AddDate(0, 0, -rng.IntN(maxAgeDays))
		confidence := math.Round((minConfidence+confidenceSpread*rng.Float64())*1000) / 1000

		row := domain.RawRow{
			Fields: map[string]string{
				domain.FieldNativeID:     nativeID,
				domain.FieldDeviceName:   device,
				domain.FieldManufacturer: placeholderMaker,
			},
			FetchedAt: now,
		}
		cls := g.classifier.Classify(row, src)

		out = append(out, domain.RegulatoryRecord{
			ID:                 normalize.RecordID(src.AuthorityCode, nativeID),
			SourceCode:         src.AuthorityCode,
			Title:              fmt.Sprintf("%s (placeholder, %s listing unavailable)", device, authority),
			DeviceName:         device,
			Manufacturer:       placeholderMaker,
			ApplicantName:      placeholderMaker,
			DeviceClass:        cls.DeviceClass,
			RiskLevel:          cls.RiskLevel,
			TherapeuticArea:    cls.TherapeuticArea,
			SubmissionType:     src.SubmissionType,
			DecisionType:       placeholderStatus,
			DecisionDate:       published.Format(normalize.DecisionDateLayout),
			Jurisdiction:       src.Jurisdiction,
			Region:             src.Region,
			Authority:          authority,
			Language:           src.Language,
			DocumentURL:        src.BaseURL,
			PublishedDate:      published,
			RetrievedAt:        now,
			Tags:               normalize.Tags(TagFallback, src.Jurisdiction, authority, string(cls.DeviceClass), cls.TherapeuticArea),
			Keywords:           normalize.Keywords(device),
			DataQuality:        domain.QualityLow,
			ConfidenceScore:    confidence,
			Status:             domain.StatusPending,
			VerificationStatus: domain.VerificationPending,
			RawData: map[string]any{
				"fallback":  true,
				"reason":    reason,
				"index":     i + 1,
				"nativeId":  nativeID,
				"sourceUrl": src.BaseURL,
			},
		})
	}
	return out
}

func seedFor(code string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToUpper(strings.TrimSpace(code))))
	return h.Sum64()
}
