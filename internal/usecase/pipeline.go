package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

// Runner executes one aggregation run.
type Runner interface {
	Run(ctx context.Context, srcs []domain.SourceDescriptor) (RunResult, error)
}

// PipelineDeps wires all driven adapters into the run pipeline.
type PipelineDeps struct {
	Runner     Runner
	Sources    []domain.SourceDescriptor
	Repository ports.RecordRepository
	Publisher  ports.Publisher
	Snapshot   *Snapshot
	Logger     *slog.Logger
}

// Pipeline implements the scheduled aggregation workflow: run, persist,
// publish, then expose to readers.
type Pipeline struct {
	runner     Runner
	sources    []domain.SourceDescriptor
	repository ports.RecordRepository
	publisher  ports.Publisher
	snapshot   *Snapshot
	logger     *slog.Logger
}

// NewPipeline constructs the pipeline. A nil snapshot gets a fresh one.
func NewPipeline(deps PipelineDeps) *Pipeline {
	snapshot := deps.Snapshot
	if snapshot == nil {
		snapshot = NewSnapshot()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		runner:     deps.Runner,
		sources:    deps.Sources,
		repository: deps.Repository,
		publisher:  deps.Publisher,
		snapshot:   snapshot,
		logger:     logger.With("component", "pipeline"),
	}
}

// Snapshot exposes the reader side of the pipeline.
func (p *Pipeline) Snapshot() *Snapshot { return p.snapshot }

// ProcessRun runs every source once. A cancelled run is neither stored nor
// published and leaves the previous snapshot in place. Storage and publish
// failures are returned, but the snapshot is still replaced.
func (p *Pipeline) ProcessRun(ctx context.Context) (RunResult, error) {
	if p.runner == nil {
		return RunResult{}, errors.New("pipeline: runner is not configured")
	}

	res, err := p.runner.Run(ctx, p.sources)
	if err != nil {
		return res, fmt.Errorf("aggregation run: %w", err)
	}

	var errs []error
	if p.repository != nil {
		if err := p.repository.SaveRun(ctx, res.Summary, res.Records); err != nil {
			p.logger.Error("persist run failed", "run_id", res.Summary.RunID, "error", err)
			errs = append(errs, fmt.Errorf("persist run %s: %w", res.Summary.RunID, err))
		}
	}
	if p.publisher != nil {
		if err := p.publisher.PublishRun(ctx, res.Summary, res.Records); err != nil {
			p.logger.Error("publish run failed", "run_id", res.Summary.RunID, "error", err)
			errs = append(errs, fmt.Errorf("publish run %s: %w", res.Summary.RunID, err))
		}
	}

	p.snapshot.Replace(res.Summary, res.Records)
	p.logger.Info("run published", "run_id", res.Summary.RunID, "records", len(res.Records))
	return res, errors.Join(errs...)
}

// Restore loads the latest stored run into the snapshot, so readers have
// data before the first run of this process finishes.
func (p *Pipeline) Restore(ctx context.Context) error {
	if p.repository == nil {
		return nil
	}
	run, records, err := p.repository.LatestRun(ctx)
	if errors.Is(err, domain.ErrNoRuns) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore latest run: %w", err)
	}
	p.snapshot.Replace(run, records)
	p.logger.Info("snapshot restored", "run_id", run.RunID, "records", len(records))
	return nil
}
