package ports

import (
	"context"
	"time"

	"RegulatoryScanner/internal/domain"
)

// Fetcher downloads one page of a source, honoring the source's rate limit.
type Fetcher interface {
	Fetch(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error)
}

// Extractor turns a raw payload into raw rows.
type Extractor interface {
	Extract(payload domain.Payload, src domain.SourceDescriptor) (domain.Extraction, error)
}

// Classifier assigns device class, risk and therapeutic area.
type Classifier interface {
	Classify(row domain.RawRow, src domain.SourceDescriptor) domain.ClassificationResult
}

// Normalizer maps a classified row onto the canonical schema.
type Normalizer interface {
	Normalize(row domain.RawRow, cls domain.ClassificationResult, src domain.SourceDescriptor) domain.RegulatoryRecord
}

// FallbackGenerator synthesizes placeholder records for a failed source.
type FallbackGenerator interface {
	Generate(src domain.SourceDescriptor, count int, reason string) []domain.RegulatoryRecord
}

// Deduplicator merges records sharing an id.
type Deduplicator interface {
	Merge(records []domain.RegulatoryRecord) []domain.RegulatoryRecord
}

// RecordValidator checks a record against the canonical schema.
type RecordValidator interface {
	Validate(record domain.RegulatoryRecord) error
}

// RecordRepository persists run snapshots; records are append-only per run.
// LatestRun returns domain.ErrNoRuns before the first SaveRun.
type RecordRepository interface {
	SaveRun(ctx context.Context, run domain.RunSummary, records []domain.RegulatoryRecord) error
	LatestRun(ctx context.Context) (domain.RunSummary, []domain.RegulatoryRecord, error)
}

// Publisher streams a finished run to downstream consumers.
type Publisher interface {
	PublishRun(ctx context.Context, run domain.RunSummary, records []domain.RegulatoryRecord) error
}

// RecordReader is the read interface external collaborators consume.
type RecordReader interface {
	Records() []domain.RegulatoryRecord
	Record(id string) (domain.RegulatoryRecord, bool)
	LastRun() (domain.RunSummary, bool)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
