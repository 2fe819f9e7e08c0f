// Package api serves the latest aggregated records over a read-only JSON API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000

	headerTotalCount = "X-Total-Count"
)

// Handler exposes a ports.RecordReader over HTTP.
type Handler struct {
	reader ports.RecordReader
	logger *slog.Logger
}

// NewHandler builds the API handler. A nil logger discards output.
func NewHandler(reader ports.RecordReader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{reader: reader, logger: logger.With("component", "api")}
}

// Routes returns the chi router with all endpoints registered.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/records", h.handleListRecords)
		r.Get("/records/{id}", h.handleGetRecord)
		r.Get("/runs/latest", h.handleLatestRun)
	})
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, hasRun := h.reader.LastRun()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "hasRun": hasRun})
}

// handleListRecords serves GET /api/v1/records.
func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), DefaultLimit, 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit: "+err.Error())
		return
	}
	limit = min(limit, MaxLimit)

	offset, err := intParam(q.Get("offset"), 0, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "offset: "+err.Error())
		return
	}

	f := filter{
		jurisdiction: strings.TrimSpace(q.Get("jurisdiction")),
		authority:    strings.TrimSpace(q.Get("authority")),
		sourceCode:   strings.TrimSpace(q.Get("sourceCode")),
		dataQuality:  strings.TrimSpace(q.Get("dataQuality")),
	}

	matched := make([]domain.RegulatoryRecord, 0)
	for _, rec := range h.reader.Records() {
		if f.match(rec) {
			matched = append(matched, rec)
		}
	}

	w.Header().Set(headerTotalCount, strconv.Itoa(len(matched)))
	start := min(offset, len(matched))
	end := min(start+limit, len(matched))
	writeJSON(w, http.StatusOK, matched[start:end])
}

// handleGetRecord serves GET /api/v1/records/{id}.
func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.reader.Record(id)
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleLatestRun serves GET /api/v1/runs/latest.
func (h *Handler) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.reader.LastRun()
	if !ok {
		writeError(w, http.StatusNotFound, "no run finished yet")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

type filter struct {
	jurisdiction string
	authority    string
	sourceCode   string
	dataQuality  string
}

func (f filter) match(rec domain.RegulatoryRecord) bool {
	return matchFold(f.jurisdiction, rec.Jurisdiction) &&
		matchFold(f.authority, rec.Authority) &&
		matchFold(f.sourceCode, rec.SourceCode) &&
		matchFold(f.dataQuality, string(rec.DataQuality))
}

func matchFold(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}

func intParam(raw string, def, lowest int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("must be an integer")
	}
	if v < lowest {
		return 0, errors.New("must be at least " + strconv.Itoa(lowest))
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Server runs the API on an http.Server.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer wraps the handler routes with otelhttp and binds them to addr.
func NewServer(addr string, h *Handler) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           otelhttp.NewHandler(h.Routes(), "regscanner.api"),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: h.logger,
	}
}

// Start listens in the background. Listen errors other than a clean
// shutdown are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Info("api listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", "error", err)
		}
	}()
}

// Shutdown stops accepting requests and drains active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
