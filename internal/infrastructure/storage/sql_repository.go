package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const insertBatch = 200

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS aggregation_runs (
		run_id           TEXT PRIMARY KEY,
		started_at       TEXT NOT NULL,
		finished_at      TEXT NOT NULL,
		cancelled        BOOLEAN NOT NULL,
		total_records    INTEGER NOT NULL,
		fallback_records INTEGER NOT NULL,
		outcomes         TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS regulatory_records (
		run_id           TEXT NOT NULL REFERENCES aggregation_runs (run_id),
		position         INTEGER NOT NULL,
		record_id        TEXT NOT NULL,
		source_code      TEXT NOT NULL,
		jurisdiction     TEXT NOT NULL,
		data_quality     TEXT NOT NULL,
		confidence_score DOUBLE PRECISION NOT NULL,
		published_date   TEXT NOT NULL,
		payload          TEXT NOT NULL,
		PRIMARY KEY (run_id, record_id)
	)`,
	`CREATE INDEX IF NOT EXISTS regulatory_records_record_id ON regulatory_records (record_id)`,
}

var recordColumns = []string{
	"run_id", "position", "record_id", "source_code", "jurisdiction",
	"data_quality", "confidence_score", "published_date", "payload",
}

// SQLRepository stores every run as an append-only snapshot: one
// aggregation_runs row plus its records. Stored records are never updated.
type SQLRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.RecordRepository = (*SQLRepository)(nil)

// Open connects to driver/dsn and checks the connection.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if _, err := placeholderFor(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// An in-memory database lives in a single connection.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

// NewSQLRepository wires a sql.DB for the given driver's placeholder style.
func NewSQLRepository(db *sql.DB, driver string) (*SQLRepository, error) {
	ph, err := placeholderFor(driver)
	if err != nil {
		return nil, err
	}
	return &SQLRepository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(ph)}, nil
}

func placeholderFor(driver string) (sq.PlaceholderFormat, error) {
	switch driver {
	case DriverPostgres:
		return sq.Dollar, nil
	case DriverSQLite:
		return sq.Question, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// EnsureSchema creates the tables when missing.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun writes the run and its records in one transaction.
func (r *SQLRepository) SaveRun(ctx context.Context, run domain.RunSummary, records []domain.RegulatoryRecord) (err error) {
	if r.db == nil {
		return nil
	}

	outcomes, err := json.Marshal(run.Outcomes)
	if err != nil {
		return fmt.Errorf("encode outcomes: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query, args, err := r.builder.Insert("aggregation_runs").
		Columns("run_id", "started_at", "finished_at", "cancelled", "total_records", "fallback_records", "outcomes").
		Values(run.RunID, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.Cancelled,
			run.TotalRecords, run.FallbackRecords, string(outcomes)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	for start := 0; start < len(records); start += insertBatch {
		end := min(start+insertBatch, len(records))
		insert := r.builder.Insert("regulatory_records").Columns(recordColumns...)
		for i := start; i < end; i++ {
			rec := records[i]
			payload, mErr := json.Marshal(rec)
			if mErr != nil {
				return fmt.Errorf("encode record %s: %w", rec.ID, mErr)
			}
			insert = insert.Values(run.RunID, i, rec.ID, rec.SourceCode, rec.Jurisdiction,
				string(rec.DataQuality), rec.ConfidenceScore, formatTime(rec.PublishedDate), string(payload))
		}
		query, args, err = insert.ToSql()
		if err != nil {
			return fmt.Errorf("build record insert: %w", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert records of run %s: %w", run.RunID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", run.RunID, err)
	}
	return nil
}

// LatestRun loads the most recently finished run and its records in
// output order.
func (r *SQLRepository) LatestRun(ctx context.Context) (domain.RunSummary, []domain.RegulatoryRecord, error) {
	if r.db == nil {
		return domain.RunSummary{}, nil, domain.ErrNoRuns
	}

	query, args, err := r.builder.
		Select("run_id", "started_at", "finished_at", "cancelled", "total_records", "fallback_records", "outcomes").
		From("aggregation_runs").
		OrderBy("finished_at DESC", "run_id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.RunSummary{}, nil, fmt.Errorf("build run query: %w", err)
	}

	var (
		run               domain.RunSummary
		started, finished string
		outcomes          string
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&run.RunID, &started, &finished, &run.Cancelled, &run.TotalRecords, &run.FallbackRecords, &outcomes)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RunSummary{}, nil, domain.ErrNoRuns
	}
	if err != nil {
		return domain.RunSummary{}, nil, fmt.Errorf("query latest run: %w", err)
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return domain.RunSummary{}, nil, err
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return domain.RunSummary{}, nil, err
	}
	if err := json.Unmarshal([]byte(outcomes), &run.Outcomes); err != nil {
		return domain.RunSummary{}, nil, fmt.Errorf("decode outcomes of run %s: %w", run.RunID, err)
	}

	records, err := r.recordsOf(ctx, run.RunID)
	if err != nil {
		return domain.RunSummary{}, nil, err
	}
	return run, records, nil
}

func (r *SQLRepository) recordsOf(ctx context.Context, runID string) ([]domain.RegulatoryRecord, error) {
	query, args, err := r.builder.Select("payload").
		From("regulatory_records").
		Where(sq.Eq{"run_id": runID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build record query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records of run %s: %w", runID, err)
	}

	records := make([]domain.RegulatoryRecord, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec domain.RegulatoryRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return records, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}
