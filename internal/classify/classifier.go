// Package classify assigns device class, risk level and therapeutic area
// to raw rows from declarative rule tables. Classification is pure: the same
// row and source always yield the same result.
package classify

import (
	"strings"
	"unicode"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

// Classifier applies Rules in a fixed order: product code, keyword tables,
// the class reported by the authority, default.
type Classifier struct {
	rules Rules
}

var _ ports.Classifier = (*Classifier)(nil)

// New builds a classifier over rules.
func New(rules Rules) *Classifier {
	if rules.DefaultClass == "" {
		rules.DefaultClass = domain.ClassII
	}
	return &Classifier{rules: rules}
}

// NewDefault builds a classifier over DefaultRules.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Classify never fails; rows matching nothing get the default class and
// the General area.
func (c *Classifier) Classify(row domain.RawRow, src domain.SourceDescriptor) domain.ClassificationResult {
	tokens := tokenize(row.Get(domain.FieldDeviceName) + " " + row.Get(domain.FieldTitle))
	code := strings.ToUpper(row.Get(domain.FieldProductCode))
	jurisdiction := strings.ToUpper(strings.TrimSpace(src.Jurisdiction))

	var (
		class    domain.DeviceClass
		rule     string
		codeArea string
	)
	if cr, ok := c.rules.ProductCodes[jurisdiction][code]; ok && code != "" {
		class, codeArea = cr.Class, cr.Area
		rule = "product-code:" + jurisdiction + ":" + code
	}
	if class == "" {
		for _, kr := range c.rules.ClassKeywords {
			if kw, ok := matchAny(tokens, kr.Keywords); ok {
				class, rule = kr.Class, "keyword:"+kr.Name+":"+kw
				break
			}
		}
	}
	if class == "" {
		if reported, ok := ParseReportedClass(row.Get(domain.FieldDeviceClass)); ok {
			class, rule = reported, "reported-class"
		}
	}
	if class == "" {
		class, rule = c.rules.DefaultClass, "default"
	}

	return domain.ClassificationResult{
		DeviceClass:     class,
		RiskLevel:       Risk(class, row, src),
		TherapeuticArea: c.area(codeArea, row.Get(domain.FieldReviewPanel), tokens),
		Rule:            rule,
	}
}

func (c *Classifier) area(codeArea, panel string, tokens []string) string {
	if codeArea != "" {
		return codeArea
	}
	if a := c.panelArea(panel); a != "" {
		return a
	}
	for _, ar := range c.rules.AreaKeywords {
		if _, ok := matchAny(tokens, ar.Keywords); ok {
			return ar.Area
		}
	}
	return AreaGeneral
}

func (c *Classifier) panelArea(panel string) string {
	panel = strings.TrimSpace(panel)
	if panel == "" {
		return ""
	}
	upper := strings.ToUpper(panel)
	lower := strings.ToLower(panel)
	for _, pr := range c.rules.Panels {
		if pr.Code != "" && upper == pr.Code {
			return pr.Area
		}
	}
	for _, pr := range c.rules.Panels {
		if pr.Match != "" && strings.Contains(lower, pr.Match) {
			return pr.Area
		}
	}
	return ""
}

// Risk derives the risk level from the class, raised to high for PMA
// submissions and to critical for class I recalls.
func Risk(class domain.DeviceClass, row domain.RawRow, src domain.SourceDescriptor) domain.RiskLevel {
	if isRecall(row, src) && recallClassI(row.Get(domain.FieldRecallClass)) {
		return domain.RiskCritical
	}
	submission := row.Get(domain.FieldSubmissionType)
	if submission == "" {
		submission = src.SubmissionType
	}
	if strings.Contains(strings.ToUpper(submission), "PMA") {
		return domain.RiskHigh
	}
	switch class {
	case domain.ClassIII:
		return domain.RiskHigh
	case domain.ClassI:
		return domain.RiskLow
	default:
		return domain.RiskMedium
	}
}

func isRecall(row domain.RawRow, src domain.SourceDescriptor) bool {
	return src.RecordKind == domain.KindRecall || row.Get(domain.FieldRecallClass) != ""
}

func recallClassI(v string) bool {
	v = strings.ToUpper(strings.TrimSpace(v))
	v = strings.TrimPrefix(v, "CLASS")
	v = strings.TrimSpace(v)
	return v == "I" || v == "1"
}

// ParseReportedClass reads a class as reported by an authority: numeric
// (1, 2, 3, 4), roman with EU sub-classes (I, IIa, IIb, III), AIMD or IVD
// markers. Canadian class IV and AIMD map to Class III.
func ParseReportedClass(v string) (domain.DeviceClass, bool) {
	s := strings.ToUpper(strings.TrimSpace(v))
	if s == "" {
		return "", false
	}
	if strings.Contains(s, "IVD") || strings.Contains(s, "IN VITRO") {
		return domain.ClassIVD, true
	}
	if strings.Contains(s, "AIMD") || strings.Contains(s, "ACTIVE IMPLANTABLE") {
		return domain.ClassIII, true
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "CLASS"))
	s = strings.TrimSuffix(s, " DEVICE")
	switch s {
	case "1", "I", "IS", "IM", "IR":
		return domain.ClassI, true
	case "2", "II", "IIA", "IIB", "II A", "II B":
		return domain.ClassII, true
	case "3", "III", "4", "IV":
		return domain.ClassIII, true
	}
	return "", false
}

// tokenize lower-cases s and splits it into words. Hyphens stay inside
// words so "x-ray" is one token.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

// matchAny returns the first keyword whose words appear consecutively in
// tokens, each keyword word matching as a token prefix.
func matchAny(tokens []string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		kwTokens := tokenize(kw)
		if len(kwTokens) == 0 || len(kwTokens) > len(tokens) {
			continue
		}
		for i := 0; i+len(kwTokens) <= len(tokens); i++ {
			hit := true
			for j, k := range kwTokens {
				if !strings.HasPrefix(tokens[i+j], k) {
					hit = false
					break
				}
			}
			if hit {
				return kw, true
			}
		}
	}
	return "", false
}
