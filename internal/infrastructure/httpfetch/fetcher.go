// Package httpfetch downloads source listing pages under per-source rate limits.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
	"RegulatoryScanner/internal/ratelimit"
)

// Config tunes the fetcher.
type Config struct {
	Timeout   time.Duration // per request, default 30s
	MaxBytes  int64         // response cap, default 10 MiB
	UserAgent string
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 << 20
	}
	if c.UserAgent == "" {
		c.UserAgent = "RegulatoryScanner/1.0"
	}
}

// Fetcher issues rate-limited GET requests. It never retries.
type Fetcher struct {
	client  *http.Client
	limiter *ratelimit.Keyed
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.Fetcher = (*Fetcher)(nil)

// New wires a fetcher. A nil client gets an otel-instrumented transport,
// a nil limiter a wall-clock keyed limiter.
func New(cfg Config, limiter *ratelimit.Keyed, client *http.Client, logger *slog.Logger) *Fetcher {
	cfg.defaults()
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	if limiter == nil {
		limiter = ratelimit.NewKeyed(nil)
	}
	return &Fetcher{
		client:  client,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Fetch downloads page of src. Failures are *domain.FetchError, except
// cancellation of ctx itself, which is returned as ctx.Err().
func (f *Fetcher) Fetch(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
	pageURL, err := BuildPageURL(src, page)
	if err != nil {
		return domain.Payload{}, fmt.Errorf("source %s: %w", src.AuthorityCode, err)
	}

	if err := f.limiter.Wait(ctx, src.RateKey(), src.RateInterval()); err != nil {
		return domain.Payload{}, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.Payload{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", acceptHeader(src.ParserKind))

	f.debug("fetch page", "source", src.AuthorityCode, "page", page, "url", pageURL)

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.Payload{}, transportError(ctx, reqCtx, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return domain.Payload{}, &domain.FetchError{Kind: domain.FetchHTTPStatus, Code: resp.StatusCode, URL: pageURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return domain.Payload{}, transportError(ctx, reqCtx, pageURL, err)
	}
	if int64(len(body)) > f.cfg.MaxBytes {
		return domain.Payload{}, &domain.FetchError{Kind: domain.FetchBodyTooLarge, Code: int(f.cfg.MaxBytes), URL: pageURL}
	}

	return domain.Payload{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		URL:         pageURL,
		Page:        page,
		FetchedAt:   f.now().UTC(),
	}, nil
}

func transportError(parent, reqCtx context.Context, pageURL string, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return &domain.FetchError{Kind: domain.FetchTimeout, URL: pageURL, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &domain.FetchError{Kind: domain.FetchTimeout, URL: pageURL, Err: err}
	}
	return &domain.FetchError{Kind: domain.FetchConnectionRefused, URL: pageURL, Err: err}
}

func acceptHeader(kind domain.ParserKind) string {
	switch kind {
	case domain.ParserJSON:
		return "application/json"
	case domain.ParserXML:
		return "application/xml, text/xml;q=0.9, */*;q=0.5"
	default:
		return "text/html, application/xhtml+xml;q=0.9, */*;q=0.5"
	}
}

func (f *Fetcher) debug(msg string, args ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}
