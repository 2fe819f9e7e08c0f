package usecase

import (
	"sync"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

// Snapshot holds the dataset of the last finished run for readers. It is
// replaced wholesale; records are never mutated in place.
type Snapshot struct {
	mu      sync.RWMutex
	run     domain.RunSummary
	hasRun  bool
	records []domain.RegulatoryRecord
	byID    map[string]int
}

var _ ports.RecordReader = (*Snapshot)(nil)

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{records: []domain.RegulatoryRecord{}, byID: map[string]int{}}
}

// Replace installs a new dataset.
func (s *Snapshot) Replace(run domain.RunSummary, records []domain.RegulatoryRecord) {
	cp := append([]domain.RegulatoryRecord(nil), records...)
	idx := make(map[string]int, len(cp))
	for i, r := range cp {
		idx[r.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.run, s.hasRun = run, true
	s.records = cp
	s.byID = idx
}

// Records returns the current dataset in output order.
func (s *Snapshot) Records() []domain.RegulatoryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.RegulatoryRecord{}, s.records...)
}

// Record looks a record up by id.
func (s *Snapshot) Record(id string) (domain.RegulatoryRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[id]
	if !ok {
		return domain.RegulatoryRecord{}, false
	}
	return s.records[i], true
}

// LastRun returns the summary of the installed run.
func (s *Snapshot) LastRun() (domain.RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run, s.hasRun
}
