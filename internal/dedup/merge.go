// Package dedup collapses records sharing an id and orders the merged set.
package dedup

import (
	"sort"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

// Merger keeps one record per id. Priorities maps authority codes to their
// output rank; unknown codes sort last.
type Merger struct {
	priorities map[string]int
}

var _ ports.Deduplicator = (*Merger)(nil)

// New builds a merger over source priorities.
func New(priorities map[string]int) *Merger {
	p := make(map[string]int, len(priorities))
	for k, v := range priorities {
		p[k] = v
	}
	return &Merger{priorities: p}
}

// Merge picks, per id, the record with the higher confidence; ties go to the
// later retrievedAt, then to the later input position. Output is sorted by
// source priority, then publishedDate descending, then id.
func (m *Merger) Merge(records []domain.RegulatoryRecord) []domain.RegulatoryRecord {
	winners := make(map[string]int, len(records))
	for i, rec := range records {
		j, ok := winners[rec.ID]
		if !ok || supersedes(rec, records[j]) {
			winners[rec.ID] = i
		}
	}

	out := make([]domain.RegulatoryRecord, 0, len(winners))
	for _, i := range winners {
		out = append(out, records[i])
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := m.priority(out[i].SourceCode), m.priority(out[j].SourceCode)
		if pi != pj {
			return pi < pj
		}
		if !out[i].PublishedDate.Equal(out[j].PublishedDate) {
			return out[i].PublishedDate.After(out[j].PublishedDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// supersedes reports whether candidate, seen later in the input, replaces
// the current winner.
func supersedes(candidate, current domain.RegulatoryRecord) bool {
	if candidate.ConfidenceScore != current.ConfidenceScore {
		return candidate.ConfidenceScore > current.ConfidenceScore
	}
	if !candidate.RetrievedAt.Equal(current.RetrievedAt) {
		return candidate.RetrievedAt.After(current.RetrievedAt)
	}
	return true
}

func (m *Merger) priority(code string) int {
	if p, ok := m.priorities[code]; ok {
		return p
	}
	return int(^uint(0) >> 1)
}
