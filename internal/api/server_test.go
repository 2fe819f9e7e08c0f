package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegulatoryScanner/internal/domain"
)

type staticReader struct {
	records []domain.RegulatoryRecord
	run     *domain.RunSummary
}

func (s staticReader) Records() []domain.RegulatoryRecord { return s.records }

func (s staticReader) Record(id string) (domain.RegulatoryRecord, bool) {
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return domain.RegulatoryRecord{}, false
}

func (s staticReader) LastRun() (domain.RunSummary, bool) {
	if s.run == nil {
		return domain.RunSummary{}, false
	}
	return *s.run, true
}

func fixtureReader(n int) staticReader {
	recs := make([]domain.RegulatoryRecord, n)
	for i := range recs {
		j, q := "US", domain.QualityHigh
		if i%2 == 1 {
			j, q = "EU", domain.QualityLow
		}
		recs[i] = domain.RegulatoryRecord{ID: fmt.Sprintf("rec-%04d", i), Jurisdiction: j, Authority: "AUTH-" + j, DataQuality: q}
	}
	return staticReader{records: recs, run: &domain.RunSummary{RunID: "run-1", TotalRecords: n}}
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestListRecordsDefaultsAndTotal(t *testing.T) {
	t.Parallel()

	h := NewHandler(fixtureReader(150), nil).Routes()
	rec := get(t, h, "/api/v1/records")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "150", rec.Header().Get("X-Total-Count"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []domain.RegulatoryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, DefaultLimit)
	assert.Equal(t, "rec-0000", got[0].ID)
}

func TestListRecordsCapsLimitAndPages(t *testing.T) {
	t.Parallel()

	h := NewHandler(fixtureReader(1200), nil).Routes()

	var got []domain.RegulatoryRecord
	rec := get(t, h, "/api/v1/records?limit=5000")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, MaxLimit)

	rec = get(t, h, "/api/v1/records?limit=10&offset=1195")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 5)
	assert.Equal(t, "rec-1195", got[0].ID)

	rec = get(t, h, "/api/v1/records?offset=9999")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestListRecordsFilters(t *testing.T) {
	t.Parallel()

	h := NewHandler(fixtureReader(10), nil).Routes()

	rec := get(t, h, "/api/v1/records?jurisdiction=eu")
	assert.Equal(t, "5", rec.Header().Get("X-Total-Count"))

	rec = get(t, h, "/api/v1/records?jurisdiction=US&dataQuality=low")
	assert.Equal(t, "0", rec.Header().Get("X-Total-Count"))

	rec = get(t, h, "/api/v1/records?authority=AUTH-US&dataQuality=high")
	assert.Equal(t, "5", rec.Header().Get("X-Total-Count"))
}

func TestListRecordsRejectsBadPaging(t *testing.T) {
	t.Parallel()

	h := NewHandler(fixtureReader(1), nil).Routes()
	for _, target := range []string{
		"/api/v1/records?limit=abc",
		"/api/v1/records?limit=0",
		"/api/v1/records?offset=-1",
	} {
		rec := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestGetRecordAndLatestRun(t *testing.T) {
	t.Parallel()

	h := NewHandler(fixtureReader(3), nil).Routes()

	rec := get(t, h, "/api/v1/records/rec-0002")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RegulatoryRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "rec-0002", got.ID)
	assert.Equal(t, "US", got.Jurisdiction)

	rec = get(t, h, "/api/v1/records/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/api/v1/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var run domain.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "run-1", run.RunID)
}

func TestLatestRunBeforeFirstRun(t *testing.T) {
	t.Parallel()

	h := NewHandler(staticReader{}, nil).Routes()
	assert.Equal(t, http.StatusNotFound, get(t, h, "/api/v1/runs/latest").Code)

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","hasRun":false}`, rec.Body.String())
}
