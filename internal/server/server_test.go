package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/13maks37/sanctions-checker/internal/config"
	"github.com/13maks37/sanctions-checker/internal/db"
	"github.com/13maks37/sanctions-checker/internal/fetch"
	"github.com/13maks37/sanctions-checker/internal/pipeline"
	"github.com/13maks37/sanctions-checker/internal/server/ratelimit"
	"github.com/13maks37/sanctions-checker/internal/sources"
	"github.com/13maks37/sanctions-checker/internal/spreadsheet"
	"github.com/13maks37/sanctions-checker/internal/types"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// mockStore keeps runs in memory.
type mockStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]*db.Run
	err  error
}

func newMockStore() *mockStore {
	return &mockStore{runs: make(map[uuid.UUID]*db.Run)}
}

func (m *mockStore) SaveRun(_ context.Context, rep *types.ScreeningReport) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return uuid.Nil, m.err
	}
	id := uuid.New()
	m.runs[id] = &db.Run{ID: id, CreatedAt: rep.CreatedAt, Report: rep}
	return id, nil
}

func (m *mockStore) GetRun(_ context.Context, id uuid.UUID) (*db.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return run, nil
}

func (m *mockStore) ListRuns(_ context.Context, limit int) ([]db.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []db.RunSummary{}
	for _, r := range m.runs {
		out = append(out, db.RunSummary{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			Companies: len(r.Report.Companies),
			Flagged:   r.Report.FlaggedCount(),
			Sources:   r.Report.Sources,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) Close() error { return nil }

var testSources = []sources.Source{
	{Name: "OFAC", URL: "https://lists.example/sdn.csv", Format: sources.FormatCSV, Schema: sources.Column{Index: 1}, NormalizeCandidates: true},
	{Name: "UK", URL: "https://lists.example/uk.xml", Format: sources.FormatXML, Schema: sources.XMLText{}, NormalizeCandidates: true},
}

var testBodies = map[string]string{
	"OFAC": "36,\"ACME TRADING LTD\",-0-\n",
	"UK":   "<list><entry>Globex Corporation</entry></list>",
}

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()
	f := fetch.FetcherFunc(func(_ context.Context, src sources.Source) ([]byte, error) {
		body, ok := testBodies[src.Name]
		if !ok {
			return nil, errors.New("unreachable")
		}
		return []byte(body), nil
	})
	p, err := pipeline.New(f, pipeline.WithSources(testSources), pipeline.WithLogger(quietLogger))
	require.NoError(t, err)
	return p
}

type testServer struct {
	*Server
	store *mockStore
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *testServer {
	t.Helper()
	store := newMockStore()
	cfg := Config{
		Pipeline:  newTestPipeline(t),
		Store:     store,
		RateLimit: &ratelimit.Config{Enabled: false},
		UploadDir: t.TempDir(),
		Logger:    quietLogger,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &testServer{Server: s, store: store}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func workbook(t *testing.T, header string, names ...string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", header))
	for i, n := range names {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", cell, n))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/screen", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleHealth(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHandleSources(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/sources", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []SourceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "OFAC", got[0].Name)
	assert.Equal(t, "csv", got[0].Format)
	assert.Equal(t, "column(1)", got[0].Schema)
	assert.Equal(t, "UK", got[1].Name)
}

func TestHandleScreen_XLSX(t *testing.T) {
	ts := newTestServer(t)
	req := uploadRequest(t, "companies.xlsx", workbook(t, "Company", "Acme Trading (UK) Ltd", "Globex Corporation", "Best Co"))
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sanctions_companies_")
	runID := rec.Header().Get("X-Run-ID")
	require.NotEmpty(t, runID)

	f, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(spreadsheet.ResultsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Company", "OFAC", "UK", "Sanctions Info"}, rows[0])
	assert.Equal(t, []string{"Acme Trading (UK) Ltd", "Yes", "No", "Sanctions found in: OFAC"}, rows[1])
	assert.Equal(t, []string{"Globex Corporation", "No", "Yes", "Sanctions found in: UK"}, rows[2])
	assert.Equal(t, []string{"Best Co", "No", "No", "No sanctions found"}, rows[3])

	// The run is stored and the upload removed.
	_, err = ts.store.GetRun(context.Background(), uuid.MustParse(runID))
	assert.NoError(t, err)
	entries, err := os.ReadDir(ts.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleScreen_JSON(t *testing.T) {
	ts := newTestServer(t)
	req := uploadRequest(t, "companies.xlsx", workbook(t, " company ", "Acme Trading Ltd"))
	req.Header.Set("Accept", "text/html, application/json;q=0.9")
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ScreenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	require.NotNil(t, resp.Report)
	assert.Equal(t, []string{"OFAC", "UK"}, resp.Report.Sources)
	assert.Equal(t, 1, resp.Report.FlaggedCount())
}

func TestHandleScreen_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		req  *http.Request
		want string
	}{
		{
			name: "not multipart",
			req:  httptest.NewRequest(http.MethodPost, "/screen", strings.NewReader("hello")),
			want: "Invalid multipart form",
		},
		{
			name: "wrong extension",
			req:  uploadRequest(t, "companies.csv", []byte("Company\nAcme\n")),
			want: "only .xlsx workbooks are supported",
		},
		{
			name: "legacy workbook",
			req:  uploadRequest(t, "companies.xls", []byte("legacy binary")),
			want: "save legacy .xls files as .xlsx",
		},
		{
			name: "missing column",
			req:  uploadRequest(t, "companies.xlsx", workbook(t, "Name", "Acme")),
			want: "not found in sheet",
		},
		{
			name: "no names",
			req:  uploadRequest(t, "companies.xlsx", workbook(t, "Company")),
			want: "No company names",
		},
		{
			name: "not a workbook",
			req:  uploadRequest(t, "companies.xlsx", []byte("not a zip")),
			want: "failed to open workbook",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}

	entries, err := os.ReadDir(ts.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandleScreenNames(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/screen/names",
		strings.NewReader(`{"companies":["Acme Trading Ltd","Initech"]}`))
	rec := ts.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ScreenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Report.Companies, 2)
	assert.Equal(t, "Sanctions found in: OFAC", resp.Report.Summary["Acme Trading Ltd"])
	assert.Equal(t, "No sanctions found", resp.Report.Summary["Initech"])
	require.Len(t, resp.Report.Statuses, 2)
	assert.True(t, resp.Report.Statuses[0].Available)
}

func TestHandleScreenNames_Invalid(t *testing.T) {
	ts := newTestServer(t)
	for _, body := range []string{`not json`, `{}`, `{"companies":[]}`} {
		rec := ts.do(httptest.NewRequest(http.MethodPost, "/screen/names", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestHandleScreen_StoreFailureStillReports(t *testing.T) {
	ts := newTestServer(t)
	ts.store.err = errors.New("disk full")

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/screen/names", strings.NewReader(`{"companies":["Acme"]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Run-ID"))
}

func TestRunsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(httptest.NewRequest(http.MethodPost, "/screen/names", strings.NewReader(`{"companies":["Acme Trading Ltd"]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	runID := rec.Header().Get("X-Run-ID")

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs  []db.RunSummary `json:"runs"`
		Count int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, runID, list.Runs[0].ID.String())
	assert.Equal(t, 1, list.Runs[0].Flagged)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/runs/"+runID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var run db.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, runID, run.ID.String())

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/runs/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/runs/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/runs?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunsEndpoints_NoStore(t *testing.T) {
	ts := newTestServer(t, func(c *Config) { c.Store = nil })

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/runs", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodPost, "/screen/names", strings.NewReader(`{"companies":["Acme"]}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Run-ID"))
}

func TestAuth(t *testing.T) {
	jwtCfg := &config.JWTConfig{Secret: testSecret, ExpirationHours: 1}
	ts := newTestServer(t, func(c *Config) {
		c.JWT = jwtCfg
		c.AllowedUsers = []string{"alice"}
	})
	tokens := NewJWTService(jwtCfg)
	alice, err := tokens.GenerateToken("alice")
	require.NoError(t, err)
	bob, err := tokens.GenerateToken("bob")
	require.NoError(t, err)

	screen := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/screen/names", strings.NewReader(`{"companies":["Acme"]}`))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return ts.do(req).Code
	}
	assert.Equal(t, http.StatusUnauthorized, screen(""))
	assert.Equal(t, http.StatusUnauthorized, screen("garbage"))
	assert.Equal(t, http.StatusForbidden, screen(bob))
	assert.Equal(t, http.StatusOK, screen(alice))

	// Public endpoints stay open.
	assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/sources", nil)).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(httptest.NewRequest(http.MethodGet, "/runs", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, func(c *Config) {
		c.RateLimit = &ratelimit.Config{
			Enabled:         true,
			DefaultLimit:    100,
			DefaultWindow:   time.Minute,
			EndpointConfigs: []ratelimit.EndpointConfig{{Path: "/sources", Method: "GET", Limit: 2, Window: time.Hour}},
		}
	})

	for i := 0; i < 2; i++ {
		rec := ts.do(httptest.NewRequest(http.MethodGet, "/sources", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}
	rec := ts.do(httptest.NewRequest(http.MethodGet, "/sources", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")

	// Health is never limited.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, ts.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(httptest.NewRequest(http.MethodOptions, "/screen", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestNew_RequiresPipeline(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&ErrValidation{Field: "f", Message: "m"}, http.StatusBadRequest},
		{&spreadsheet.ColumnNotFoundError{Column: "Company", Sheet: "Sheet1"}, http.StatusBadRequest},
		{spreadsheet.ErrNoSheets, http.StatusBadRequest},
		{&sources.ConfigError{Message: "bad"}, http.StatusUnprocessableEntity},
		{db.ErrNotFound, http.StatusNotFound},
		{ErrNoStore, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
