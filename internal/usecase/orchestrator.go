package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"RegulatoryScanner/internal/dedup"
	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
	"RegulatoryScanner/internal/sources"
)

const (
	defaultWorkers       = 4
	defaultFallbackCount = 5
	defaultRetryInitial  = 500 * time.Millisecond
)

// OrchestratorConfig tunes a run.
type OrchestratorConfig struct {
	Workers       int           // concurrent sources, default 4
	Retries       int           // extra attempts for transient fetch failures, default 0
	RetryInitial  time.Duration // first backoff interval
	FallbackCount int           // placeholders per failed source unless the source sets its own
	RunTimeout    time.Duration // zero means no run deadline
}

// OrchestratorDeps wires the per-source pipeline stages.
type OrchestratorDeps struct {
	Fetcher      ports.Fetcher
	Extractor    ports.Extractor
	Classifier   ports.Classifier
	Normalizer   ports.Normalizer
	Fallback     ports.FallbackGenerator
	Deduplicator ports.Deduplicator // nil: merge by the priorities of the run's sources
	Validator    ports.RecordValidator
	Logger       *slog.Logger
	Tracer       trace.Tracer
	Meter        metric.Meter
}

// RunResult is the merged output of a run and what happened per source.
type RunResult struct {
	Records []domain.RegulatoryRecord
	Summary domain.RunSummary
}

// Orchestrator drives every source through fetch, extract, classify and
// normalize on a fixed worker pool, degrading failed sources to fallback
// records, and merges the results.
type Orchestrator struct {
	fetcher    ports.Fetcher
	extractor  ports.Extractor
	classifier ports.Classifier
	normalizer ports.Normalizer
	fallback   ports.FallbackGenerator
	dedup      ports.Deduplicator
	validator  ports.RecordValidator
	logger     *slog.Logger
	tracer     trace.Tracer
	metrics    runMetrics
	cfg        OrchestratorConfig
	now        func() time.Time
	newRunID   func() string
}

// NewOrchestrator constructs the orchestration component.
func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) (*Orchestrator, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("orchestrator: fetcher is required")
	case deps.Extractor == nil:
		return nil, errors.New("orchestrator: extractor is required")
	case deps.Classifier == nil:
		return nil, errors.New("orchestrator: classifier is required")
	case deps.Normalizer == nil:
		return nil, errors.New("orchestrator: normalizer is required")
	case deps.Fallback == nil:
		return nil, errors.New("orchestrator: fallback generator is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = defaultRetryInitial
	}
	if cfg.FallbackCount <= 0 {
		cfg.FallbackCount = defaultFallbackCount
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Orchestrator{
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		classifier: deps.Classifier,
		normalizer: deps.Normalizer,
		fallback:   deps.Fallback,
		dedup:      deps.Deduplicator,
		validator:  deps.Validator,
		logger:     logger.With("component", "orchestrator"),
		tracer:     tracerOrDefault(deps.Tracer),
		metrics:    newRunMetrics(deps.Meter),
		cfg:        cfg,
		now:        time.Now,
		newRunID:   func() string { return uuid.NewString() },
	}, nil
}

// RunAll returns the merged records of all sources. Per-source failures
// never surface here; the error is domain.ErrNoSources or the context
// error when the run was cancelled, in which case the records of the
// sources that finished are still returned.
func (o *Orchestrator) RunAll(ctx context.Context, srcs []domain.SourceDescriptor) ([]domain.RegulatoryRecord, error) {
	res, err := o.Run(ctx, srcs)
	return res.Records, err
}

// Run is RunAll plus the per-source outcomes.
func (o *Orchestrator) Run(ctx context.Context, srcs []domain.SourceDescriptor) (RunResult, error) {
	if len(srcs) == 0 {
		return RunResult{Records: []domain.RegulatoryRecord{}}, domain.ErrNoSources
	}
	if o.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RunTimeout)
		defer cancel()
	}

	summary := domain.RunSummary{RunID: o.newRunID(), StartedAt: o.now().UTC()}
	ctx, span := o.tracer.Start(ctx, "aggregation.run", trace.WithAttributes(
		attribute.String("run.id", summary.RunID),
		attribute.Int("run.sources", len(srcs)),
	))
	defer span.End()

	o.logger.Info("run started", "run_id", summary.RunID, "sources", len(srcs), "workers", o.cfg.Workers)

	// Workers never return errors: a failing source degrades on its own.
	results := make([]sourceResult, len(srcs))
	var pool errgroup.Group
	pool.SetLimit(o.cfg.Workers)
	for i, src := range srcs {
		pool.Go(func() error {
			results[i] = o.processSource(ctx, src)
			return nil
		})
	}
	_ = pool.Wait()

	var all []domain.RegulatoryRecord
	for _, r := range results {
		summary.Outcomes = append(summary.Outcomes, r.outcome)
		all = append(all, r.records...)
	}

	merger := o.dedup
	if merger == nil {
		merger = dedup.New(sources.Priorities(srcs))
	}
	merged := merger.Merge(all)

	summary.FinishedAt = o.now().UTC()
	summary.TotalRecords = len(merged)
	for _, rec := range merged {
		if rec.IsFallback() {
			summary.FallbackRecords++
		}
	}

	runErr := ctx.Err()
	if runErr != nil {
		summary.Cancelled = true
		span.SetStatus(codes.Error, runErr.Error())
		o.logger.Warn("run cancelled", "run_id", summary.RunID, "records", len(merged), "error", runErr)
	} else {
		o.logger.Info("run finished", "run_id", summary.RunID, "records", len(merged),
			"fallback_records", summary.FallbackRecords, "elapsed", summary.FinishedAt.Sub(summary.StartedAt))
	}
	span.SetAttributes(attribute.Int("run.records", len(merged)))

	return RunResult{Records: merged, Summary: summary}, runErr
}

type sourceResult struct {
	records []domain.RegulatoryRecord
	outcome domain.SourceOutcome
}

// processSource runs one source's state machine to a terminal state.
func (o *Orchestrator) processSource(ctx context.Context, src domain.SourceDescriptor) (res sourceResult) {
	start := o.now()
	out := domain.SourceOutcome{AuthorityCode: src.AuthorityCode, State: domain.StateIdle}
	log := o.logger.With("source", src.AuthorityCode)

	ctx, span := o.tracer.Start(ctx, "source "+src.AuthorityCode, trace.WithAttributes(
		attribute.String("source", src.AuthorityCode),
		attribute.String("parser", string(src.ParserKind)),
	))
	defer func() {
		res.outcome.Duration = o.now().Sub(start)
		span.SetAttributes(
			attribute.String("source.state", string(res.outcome.State)),
			attribute.Int("source.records", res.outcome.Records),
		)
		span.End()
		o.metrics.observe(ctx, res.outcome.Duration.Seconds(), src.AuthorityCode, string(res.outcome.State))
	}()

	if ctx.Err() != nil {
		out.State = domain.StateAbandoned
		return sourceResult{outcome: out}
	}

	rows, failure := o.collectRows(ctx, src, &out, log)
	if ctx.Err() != nil {
		out.State = domain.StateAbandoned
		log.Warn("source abandoned", "pages", out.Pages, "rows", len(rows))
		return sourceResult{outcome: out}
	}
	if failure != nil && len(rows) > 0 {
		log.Warn("source failed after partial pages, keeping collected rows", "pages", out.Pages, "rows", len(rows), "error", failure)
		span.RecordError(failure)
	}
	o.metrics.add(ctx, o.metrics.dropped, out.RowsDropped, src.AuthorityCode)

	out.State = domain.StateClassifying
	classes := make([]domain.ClassificationResult, len(rows))
	for i, row := range rows {
		classes[i] = o.classifier.Classify(row, src)
	}

	out.State = domain.StateNormalizing
	records := make([]domain.RegulatoryRecord, 0, len(rows))
	for i, row := range rows {
		rec := o.normalizer.Normalize(row, classes[i], src)
		if o.validator != nil {
			if err := o.validator.Validate(rec); err != nil {
				out.RowsInvalid++
				log.Debug("record rejected by schema", "native_id", row.Get(domain.FieldNativeID), "error", err)
				continue
			}
		}
		records = append(records, rec)
	}
	o.metrics.add(ctx, o.metrics.invalid, out.RowsInvalid, src.AuthorityCode)

	if len(records) == 0 {
		reason := fallbackReason(failure, out)
		count := src.FallbackCount
		if count <= 0 {
			count = o.cfg.FallbackCount
		}
		records = o.fallback.Generate(src, count, reason)
		out.State = domain.StateFallback
		out.FallbackReason = reason
		span.SetStatus(codes.Error, reason)
		o.metrics.add(ctx, o.metrics.fallbacks, 1, src.AuthorityCode)
		log.Warn("source degraded to fallback records", "reason", reason, "count", len(records))
	} else {
		out.State = domain.StateDone
		log.Info("source done", "pages", out.Pages, "records", len(records), "dropped", out.RowsDropped)
	}

	out.Records = len(records)
	o.metrics.add(ctx, o.metrics.records, len(records), src.AuthorityCode)
	return sourceResult{records: records, outcome: out}
}

// collectRows fetches and extracts pages in order. Paging stops at the page
// limit, on an empty or short page, or on the first failure, which is
// returned alongside the rows collected so far.
func (o *Orchestrator) collectRows(ctx context.Context, src domain.SourceDescriptor, out *domain.SourceOutcome, log *slog.Logger) ([]domain.RawRow, error) {
	var rows []domain.RawRow
	for page := 0; page < src.PageLimit(); page++ {
		out.State = domain.StateFetching
		payload, err := o.fetch(ctx, src, page)
		if err != nil {
			return rows, fmt.Errorf("page %d: %w", page, err)
		}
		out.Pages++

		out.State = domain.StateExtracting
		ext, err := o.extractor.Extract(payload, src)
		if err != nil {
			return rows, fmt.Errorf("page %d: %w", page, err)
		}
		out.RowsScanned += ext.Scanned
		out.RowsDropped += ext.Dropped
		rows = append(rows, ext.Rows...)
		log.Debug("page extracted", "page", page, "scanned", ext.Scanned, "kept", len(ext.Rows))

		if ext.Scanned == 0 || ext.Scanned < src.PageSize {
			break
		}
	}
	return rows, nil
}

// fetch calls the fetcher, retrying transient failures when configured.
func (o *Orchestrator) fetch(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
	if o.cfg.Retries == 0 {
		return o.fetcher.Fetch(ctx, src, page)
	}

	op := func() (domain.Payload, error) {
		payload, err := o.fetcher.Fetch(ctx, src, page)
		if err == nil {
			return payload, nil
		}
		var fetchErr *domain.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Transient() {
			return payload, err
		}
		return payload, backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = o.cfg.RetryInitial
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(o.cfg.Retries+1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			o.logger.Debug("retrying fetch", "source", src.AuthorityCode, "page", page, "in", next, "error", err)
		}),
	)
}

func fallbackReason(failure error, out domain.SourceOutcome) string {
	switch {
	case failure != nil:
		return failure.Error()
	case out.RowsInvalid > 0:
		return fmt.Sprintf("all %d records failed schema validation", out.RowsInvalid)
	case out.RowsScanned > 0:
		return fmt.Sprintf("no usable rows: %d scanned, %d dropped", out.RowsScanned, out.RowsDropped)
	default:
		return "source returned no rows"
	}
}
