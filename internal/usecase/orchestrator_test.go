package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegulatoryScanner/internal/classify"
	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/fallback"
	"RegulatoryScanner/internal/infrastructure/httpfetch"
	"RegulatoryScanner/internal/infrastructure/parser"
	"RegulatoryScanner/internal/normalize"
	"RegulatoryScanner/internal/ports"
	"RegulatoryScanner/internal/scanner"
)

type fetchFunc func(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error)

func (f fetchFunc) Fetch(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
	return f(ctx, src, page)
}

func newOrchestrator(t *testing.T, fetcher ports.Fetcher, cfg OrchestratorConfig) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(OrchestratorDeps{
		Fetcher:    fetcher,
		Extractor:  scanner.NewRegistry(parser.NewHTMLTable(), parser.NewJSONRecords(), parser.NewXMLRecords()),
		Classifier: classify.NewDefault(),
		Normalizer: normalize.New(),
		Fallback:   fallback.New(nil),
	}, cfg)
	require.NoError(t, err)
	return o
}

func jsonSource(code, base string) domain.SourceDescriptor {
	return domain.SourceDescriptor{
		AuthorityCode:  code,
		Authority:      "FDA",
		Jurisdiction:   "US",
		Region:         "North America",
		BaseURL:        base,
		PageSize:       2,
		MaxPages:       5,
		ParserKind:     domain.ParserJSON,
		RecordKind:     domain.KindClearance,
		SubmissionType: "510(k)",
		Reliability:    0.9,
		FallbackCount:  3,
		Pagination:     domain.Pagination{Scheme: domain.PaginateOffset},
		RecordPath:     "results",
		FieldMap: map[string]string{
			domain.FieldNativeID:     "k_number",
			domain.FieldDeviceName:   "device_name",
			domain.FieldApplicant:    "applicant",
			domain.FieldProductCode:  "product_code",
			domain.FieldDecisionDate: "decision_date",
		},
	}
}

func htmlSource(code, base string) domain.SourceDescriptor {
	return domain.SourceDescriptor{
		AuthorityCode: code,
		Authority:     code,
		Jurisdiction:  "AU",
		BaseURL:       base,
		PageSize:      50,
		MaxPages:      1,
		ParserKind:    domain.ParserHTMLTable,
		Columns:       []string{domain.FieldNativeID, domain.FieldDeviceName, domain.FieldManufacturer},
		FallbackCount: 2,
	}
}

// openFDAServer serves total records in pages following skip/limit.
func openFDAServer(t *testing.T, total int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[`)
		for i := skip; i < skip+limit && i < total; i++ {
			if i > skip {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"k_number":"K24%04d","device_name":"Catheter, Intravascular","applicant":"Acme","product_code":"DXX","decision_date":"2024-03-%02d"}`, i, i%28+1)
		}
		fmt.Fprint(w, `]}`)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func failingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestRunAllNeverEmptyWhenEverySourceFails(t *testing.T) {
	t.Parallel()

	bad := failingServer(t, http.StatusInternalServerError)
	o := newOrchestrator(t, httpfetch.New(httpfetch.Config{}, nil, bad.Client(), nil), OrchestratorConfig{})

	res, err := o.Run(context.Background(), []domain.SourceDescriptor{
		htmlSource("TGA_ARTG", bad.URL),
		jsonSource("FDA_510K", bad.URL),
	})
	require.NoError(t, err)

	require.Len(t, res.Records, 5)
	for _, rec := range res.Records {
		assert.Equal(t, domain.QualityLow, rec.DataQuality)
		assert.Equal(t, domain.VerificationPending, rec.VerificationStatus)
		assert.True(t, rec.IsFallback())
		assert.GreaterOrEqual(t, rec.ConfidenceScore, 0.5)
		assert.LessOrEqual(t, rec.ConfidenceScore, 0.7)
	}
	for _, out := range res.Summary.Outcomes {
		assert.Equal(t, domain.StateFallback, out.State)
		assert.Contains(t, out.FallbackReason, "http status 500")
	}
	assert.Equal(t, 5, res.Summary.FallbackRecords)
}

func TestRunAllMixesRealAndFallbackRecords(t *testing.T) {
	t.Parallel()

	fda, hits := openFDAServer(t, 5)
	bad := failingServer(t, http.StatusServiceUnavailable)
	o := newOrchestrator(t, httpfetch.New(httpfetch.Config{}, nil, nil, nil), OrchestratorConfig{Workers: 2})

	fdaSrc := jsonSource("FDA_510K", fda.URL)
	fdaSrc.Priority = 1
	tgaSrc := htmlSource("TGA_ARTG", bad.URL)
	tgaSrc.Priority = 2

	records, err := o.RunAll(context.Background(), []domain.SourceDescriptor{tgaSrc, fdaSrc})
	require.NoError(t, err)

	// 5 rows over pages of 2: full, full, short.
	assert.Equal(t, int32(3), hits.Load())
	require.Len(t, records, 7)

	ids := map[string]bool{}
	for i, rec := range records {
		assert.False(t, ids[rec.ID], "duplicate id")
		ids[rec.ID] = true
		if i < 5 {
			assert.Equal(t, "FDA_510K", rec.SourceCode, "higher priority source first")
			assert.Equal(t, domain.QualityHigh, rec.DataQuality)
			assert.Equal(t, domain.VerificationVerified, rec.VerificationStatus)
			assert.Equal(t, domain.ClassII, rec.DeviceClass)
			assert.Equal(t, "Cardiology", rec.TherapeuticArea)
			assert.GreaterOrEqual(t, rec.ConfidenceScore, 0.9)
		} else {
			assert.Equal(t, "TGA_ARTG", rec.SourceCode)
			assert.True(t, rec.IsFallback())
		}
	}
	for i := 1; i < 5; i++ {
		assert.False(t, records[i].PublishedDate.After(records[i-1].PublishedDate), "published date descending")
	}
}

func TestRunAllCollapsesDuplicateNativeIDAcrossPages(t *testing.T) {
	t.Parallel()

	pages := map[string][]string{
		"0": {"K123456", "K240001"},
		"2": {"K240002", "K123456"},
		"4": {"K240003"},
	}
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"results":[`)
		for i, id := range pages[r.URL.Query().Get("skip")] {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"k_number":%q,"device_name":"Catheter, Intravascular","applicant":"Acme","product_code":"DXX","decision_date":"2024-03-0%d"}`, id, i+1)
		}
		fmt.Fprint(w, `]}`)
	}))
	t.Cleanup(server.Close)

	o := newOrchestrator(t, httpfetch.New(httpfetch.Config{}, nil, server.Client(), nil), OrchestratorConfig{})
	res, err := o.Run(context.Background(), []domain.SourceDescriptor{jsonSource("FDA_510K", server.URL)})
	require.NoError(t, err)

	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, 3, res.Summary.Outcomes[0].Pages)
	require.Len(t, res.Records, 4)

	want := normalize.RecordID("FDA_510K", "K123456")
	count := 0
	for _, rec := range res.Records {
		if rec.ID == want {
			count++
		}
		assert.False(t, rec.IsFallback())
	}
	assert.Equal(t, 1, count)
}

func TestRunAllIdsAreStableAcrossRuns(t *testing.T) {
	t.Parallel()

	fda, _ := openFDAServer(t, 3)
	o := newOrchestrator(t, httpfetch.New(httpfetch.Config{}, nil, nil, nil), OrchestratorConfig{})
	srcs := []domain.SourceDescriptor{jsonSource("FDA_510K", fda.URL)}

	first, err := o.RunAll(context.Background(), srcs)
	require.NoError(t, err)
	second, err := o.RunAll(context.Background(), srcs)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestRunAllStopsAtMaxPages(t *testing.T) {
	t.Parallel()

	fda, hits := openFDAServer(t, 100)
	src := jsonSource("FDA_510K", fda.URL)
	src.MaxPages = 3

	o := newOrchestrator(t, httpfetch.New(httpfetch.Config{}, nil, nil, nil), OrchestratorConfig{})
	res, err := o.Run(context.Background(), []domain.SourceDescriptor{src})
	require.NoError(t, err)

	assert.Equal(t, int32(3), hits.Load())
	assert.Len(t, res.Records, 6)
	assert.Equal(t, 3, res.Summary.Outcomes[0].Pages)
	assert.Equal(t, domain.StateDone, res.Summary.Outcomes[0].State)
}

func TestRunAllKeepsRowsCollectedBeforeAFailure(t *testing.T) {
	t.Parallel()

	body := `{"results":[
		{"k_number":"K1","device_name":"Stent","applicant":"Acme"},
		{"k_number":"K2","device_name":"Valve","applicant":"Acme"}]}`
	fetcher := fetchFunc(func(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
		if page == 0 {
			return domain.Payload{Body: []byte(body), Page: page}, nil
		}
		return domain.Payload{}, &domain.FetchError{Kind: domain.FetchHTTPStatus, Code: 502}
	})

	o := newOrchestrator(t, fetcher, OrchestratorConfig{})
	res, err := o.Run(context.Background(), []domain.SourceDescriptor{jsonSource("FDA_510K", "https://api.fda.gov/device/510k.json")})
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, domain.StateDone, res.Summary.Outcomes[0].State)
	for _, rec := range res.Records {
		assert.False(t, rec.IsFallback())
		assert.Equal(t, domain.ClassIII, rec.DeviceClass)
	}
}

func TestRunAllUnparseablePayloadFallsBack(t *testing.T) {
	t.Parallel()

	fetcher := fetchFunc(func(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
		return domain.Payload{Body: []byte(`<html><p>We moved!</p></html>`)}, nil
	})
	o := newOrchestrator(t, fetcher, OrchestratorConfig{})
	res, err := o.Run(context.Background(), []domain.SourceDescriptor{htmlSource("MHRA_PARD", "https://pard.mhra.gov.uk/")})
	require.NoError(t, err)

	require.Len(t, res.Records, 2)
	assert.Equal(t, domain.StateFallback, res.Summary.Outcomes[0].State)
	assert.Contains(t, res.Summary.Outcomes[0].FallbackReason, "unparseable_payload")
}

func TestRunAllBoundsConcurrency(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		current int
		peak    int
	)
	fetcher := fetchFunc(func(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
		mu.Lock()
		current++
		peak = max(peak, current)
		mu.Unlock()
		time.Sleep(15 * time.Millisecond)
		mu.Lock()
		current--
		mu.Unlock()
		return domain.Payload{}, &domain.FetchError{Kind: domain.FetchTimeout}
	})

	var srcs []domain.SourceDescriptor
	for i := 0; i < 9; i++ {
		srcs = append(srcs, htmlSource(fmt.Sprintf("SRC_%d", i), "https://example.org/"))
	}

	o := newOrchestrator(t, fetcher, OrchestratorConfig{Workers: 3})
	res, err := o.Run(context.Background(), srcs)
	require.NoError(t, err)

	assert.LessOrEqual(t, peak, 3)
	assert.Len(t, res.Summary.Outcomes, 9)
	assert.Len(t, res.Records, 18)
}

func TestRunAllCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
		calls.Add(1)
		return domain.Payload{}, ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(t, fetcher, OrchestratorConfig{})
	res, err := o.Run(ctx, []domain.SourceDescriptor{htmlSource("TGA_ARTG", "https://example.org/")})

	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Summary.Cancelled)
	assert.Empty(t, res.Records, "abandoned sources get no fallback")
	assert.Equal(t, domain.StateAbandoned, res.Summary.Outcomes[0].State)
	assert.Zero(t, calls.Load())
}

func TestRunAllCancelledMidRun(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := fetchFunc(func(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
		if src.AuthorityCode == "FAST" {
			return domain.Payload{Body: []byte(`<table><tr><td>1</td><td>Glove</td><td>Acme</td></tr></table>`)}, nil
		}
		cancel()
		<-ctx.Done()
		return domain.Payload{}, ctx.Err()
	})

	o := newOrchestrator(t, fetcher, OrchestratorConfig{Workers: 1})
	res, err := o.Run(ctx, []domain.SourceDescriptor{
		htmlSource("FAST", "https://example.org/"),
		htmlSource("SLOW", "https://example.org/"),
	})

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Records, 1, "finished source is kept")
	assert.Equal(t, "FAST", res.Records[0].SourceCode)
	assert.Equal(t, domain.StateDone, res.Summary.Outcomes[0].State)
	assert.Equal(t, domain.StateAbandoned, res.Summary.Outcomes[1].State)
}

func TestRunAllRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
		if calls.Add(1) == 1 {
			return domain.Payload{}, &domain.FetchError{Kind: domain.FetchHTTPStatus, Code: 503}
		}
		return domain.Payload{Body: []byte(`<table><tr><td>1</td><td>Glove</td><td>Acme</td></tr></table>`)}, nil
	})

	o := newOrchestrator(t, fetcher, OrchestratorConfig{Retries: 2, RetryInitial: time.Millisecond})
	res, err := o.Run(context.Background(), []domain.SourceDescriptor{htmlSource("TGA_ARTG", "https://example.org/")})
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, domain.StateDone, res.Summary.Outcomes[0].State)
}

func TestRunAllDoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	fetcher := fetchFunc(func(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
		calls.Add(1)
		return domain.Payload{}, &domain.FetchError{Kind: domain.FetchHTTPStatus, Code: 404}
	})

	o := newOrchestrator(t, fetcher, OrchestratorConfig{Retries: 3, RetryInitial: time.Millisecond})
	res, err := o.Run(context.Background(), []domain.SourceDescriptor{htmlSource("TGA_ARTG", "https://example.org/")})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, domain.StateFallback, res.Summary.Outcomes[0].State)
}

type rejectAll struct{}

func (rejectAll) Validate(domain.RegulatoryRecord) error { return errors.New("nope") }

func TestRunAllInvalidRecordsFallBack(t *testing.T) {
	t.Parallel()

	fetcher := fetchFunc(func(ctx context.Context, src domain.SourceDescriptor, page int) (domain.Payload, error) {
		return domain.Payload{Body: []byte(`<table><tr><td>1</td><td>Glove</td><td>Acme</td></tr></table>`)}, nil
	})
	o, err := NewOrchestrator(OrchestratorDeps{
		Fetcher:    fetcher,
		Extractor:  scanner.NewRegistry(parser.NewHTMLTable()),
		Classifier: classify.NewDefault(),
		Normalizer: normalize.New(),
		Fallback:   fallback.New(nil),
		Validator:  rejectAll{},
	}, OrchestratorConfig{})
	require.NoError(t, err)

	res, err := o.Run(context.Background(), []domain.SourceDescriptor{htmlSource("TGA_ARTG", "https://example.org/")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Summary.Outcomes[0].RowsInvalid)
	assert.Equal(t, domain.StateFallback, res.Summary.Outcomes[0].State)
	assert.Len(t, res.Records, 2)
}

func TestRunAllWithoutSources(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(t, fetchFunc(nil), OrchestratorConfig{})
	records, err := o.RunAll(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrNoSources)
	assert.Empty(t, records)
}

func TestNewOrchestratorRequiresStages(t *testing.T) {
	t.Parallel()

	_, err := NewOrchestrator(OrchestratorDeps{}, OrchestratorConfig{})
	assert.Error(t, err)
}
