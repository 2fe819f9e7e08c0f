// Package publish streams finished runs to NATS. Each run becomes a
// sequence of record batches followed by one summary message, all carrying
// the caller's trace context in their headers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

const (
	DefaultSubject   = "regscanner.records"
	DefaultBatchSize = 250

	headerRunID = "Regscanner-Run-Id"
)

// MsgPublisher is the subset of *nats.Conn the publisher needs.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// Config controls subjects and batching.
type Config struct {
	Subject   string
	BatchSize int
}

// RecordBatch is the payload of "<subject>.batch" messages.
type RecordBatch struct {
	RunID   string                    `json:"runId"`
	Batch   int                       `json:"batch"`
	Batches int                       `json:"batches"`
	Records []domain.RegulatoryRecord `json:"records"`
}

// NATSPublisher implements ports.Publisher on top of a NATS connection.
type NATSPublisher struct {
	conn       MsgPublisher
	subject    string
	batchSize  int
	propagator propagation.TextMapPropagator
	logger     *slog.Logger
}

var _ ports.Publisher = (*NATSPublisher)(nil)

// Connect dials NATS with a client name and unlimited reconnects.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name("regscanner"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// NewNATSPublisher builds a publisher. A nil logger discards output.
func NewNATSPublisher(conn MsgPublisher, cfg Config, logger *slog.Logger) *NATSPublisher {
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NATSPublisher{
		conn:       conn,
		subject:    cfg.Subject,
		batchSize:  cfg.BatchSize,
		propagator: otel.GetTextMapPropagator(),
		logger:     logger.With("component", "publisher"),
	}
}

// WithPropagator overrides the global text map propagator.
func (p *NATSPublisher) WithPropagator(prop propagation.TextMapPropagator) *NATSPublisher {
	p.propagator = prop
	return p
}

// PublishRun sends the records in batches and then the run summary. An
// empty run still produces its summary message.
func (p *NATSPublisher) PublishRun(ctx context.Context, run domain.RunSummary, records []domain.RegulatoryRecord) error {
	if p.conn == nil {
		return nil
	}

	batches := (len(records) + p.batchSize - 1) / p.batchSize
	for i := 0; i < batches; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := i * p.batchSize
		end := min(start+p.batchSize, len(records))
		batch := RecordBatch{RunID: run.RunID, Batch: i, Batches: batches, Records: records[start:end]}
		if err := p.publish(ctx, p.subject+".batch", run.RunID, batch); err != nil {
			return fmt.Errorf("publish batch %d/%d: %w", i+1, batches, err)
		}
	}

	if err := p.publish(ctx, p.subject+".run", run.RunID, run); err != nil {
		return fmt.Errorf("publish run summary: %w", err)
	}

	p.logger.Debug("run published", "run_id", run.RunID, "records", len(records), "batches", batches)
	return nil
}

func (p *NATSPublisher) publish(ctx context.Context, subject, runID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &nats.Msg{Subject: subject, Data: data, Header: nats.Header{}}
	msg.Header.Set(headerRunID, runID)
	p.propagator.Inject(ctx, (*headerCarrier)(msg))
	return p.conn.PublishMsg(msg)
}

// headerCarrier adapts nats.Msg headers for propagation.TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

