package normalize

import (
	"strings"

	"RegulatoryScanner/internal/domain"
)

// decisionTypes maps authority decision codes to readable decision types.
var decisionTypes = map[string]string{
	"SESE": "Substantially Equivalent",
	"SESD": "Substantially Equivalent with Drug",
	"SESK": "Substantially Equivalent - Kit",
	"SESP": "Substantially Equivalent - Postmarket Surveillance Required",
	"SESU": "Substantially Equivalent - With Limitations",
	"SESR": "Substantially Equivalent - Review Required",
	"NSE":  "Not Substantially Equivalent",
	"DENG": "De Novo Granted",
	"APPR": "Approval",
	"APRL": "Approval with Conditions",
	"WDRN": "Withdrawn",
}

// DecisionType resolves a decision code; unknown codes pass through cleaned.
func DecisionType(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	if v, ok := decisionTypes[strings.ToUpper(code)]; ok {
		return v
	}
	return CleanText(code)
}

var (
	rejectedMarkers = []string{"not substantially", "withdrawn", "cancel", "reject", "refus", "denied", "suspended", "revoked", "expired"}
	pendingMarkers  = []string{"pending", "submitted", "received"}
	reviewMarkers   = []string{"under review", "in review", "review ongoing", "under assessment"}
	approvedMarkers = []string{"approv", "clear", "granted", "substantially equivalent", "registered", "included", "current", "authori", "licen", "prequalified", "certified", "issued", "final", "published"}
)

// StatusFor derives the record status. Recall sources are always recalled;
// otherwise the decision text and upstream status are read in that order,
// and silence means the listing only carries decided records.
func StatusFor(kind domain.RecordKind, decisionType, upstream string) domain.Status {
	if kind == domain.KindRecall {
		return domain.StatusRecalled
	}
	for _, text := range []string{decisionType, upstream} {
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			continue
		}
		switch {
		case containsAny(text, rejectedMarkers):
			return domain.StatusRejected
		case containsAny(text, reviewMarkers):
			return domain.StatusUnderReview
		case containsAny(text, pendingMarkers):
			return domain.StatusPending
		case containsAny(text, approvedMarkers):
			return domain.StatusApproved
		}
	}
	return domain.StatusApproved
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
