package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pnlengine/internal/cache"
	"pnlengine/internal/engine"
	"pnlengine/internal/log"
	"pnlengine/internal/mapping"
	"pnlengine/internal/services"
	"pnlengine/internal/storage"
)

const testCSV = `Data de competência,Valor,Centro de Custo 1,Fornecedor/Cliente,Descrição
15/01/2024,"15.000,00",Google Play Net Revenue,GOOGLE BRASIL PAGAMENTOS LTDA,January payout
20/01/2024,"-1.200,00",Web Services Expenses,AWS,Hosting
05/02/2024,"8.000,00",Google Play Net Revenue,GOOGLE BRASIL PAGAMENTOS LTDA,February payout
`

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.DefaultConfig())
	matcher := mapping.NewMatcher(mapping.DefaultRules(), logger.Logger)
	resultCache := cache.NewLRUCache[*engine.Result](16, time.Minute)
	reports := services.NewReportService(repo, nil, matcher, resultCache, engine.Options{}, 3, logger)

	srv := NewServer(":0", reports, logger)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doRequest(t *testing.T, srv *Server, method, target string, body []byte, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	var reader = bytes.NewReader(body)
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func uploadBatch(t *testing.T, srv *Server) string {
	t.Helper()
	rec := doRequest(t, srv, http.MethodPost, "/api/upload", []byte(testCSV), "text/csv")
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var summary services.UploadSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return summary.BatchID
}

func TestUploadRawBody(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/upload", []byte(testCSV), "text/csv")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var summary services.UploadSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.Rows != 3 || summary.BatchID == "" {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestUploadMultipart(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "ledger.csv")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte(testCSV))
	mw.Close()

	rec := doRequest(t, srv, http.MethodPost, "/api/upload", buf.Bytes(), mw.FormDataContentType())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUploadRejectsBadSchema(t *testing.T) {
	srv := newTestServer(t)

	csv := "Data de competência,Nome\n15/01/2024,foo\n"
	rec := doRequest(t, srv, http.MethodPost, "/api/upload", []byte(csv), "text/csv")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUploadRejectsEmptyBody(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/api/upload", nil, "text/csv")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStatementEndpoint(t *testing.T) {
	srv := newTestServer(t)
	batchID := uploadBatch(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/pnl?batch="+batchID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var stmt struct {
		Headers []string `json:"headers"`
		Rows    []any    `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stmt); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stmt.Headers) != 2 || len(stmt.Rows) == 0 {
		t.Errorf("unexpected statement: headers=%v rows=%d", stmt.Headers, len(stmt.Rows))
	}
}

func TestStatementRangeFilter(t *testing.T) {
	srv := newTestServer(t)
	batchID := uploadBatch(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/pnl?batch="+batchID+"&from=2024-02", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "2024-02") || strings.Contains(rec.Body.String(), "2024-01") {
		t.Errorf("expected only 2024-02 in: %s", rec.Body.String())
	}
}

func TestStatementUnknownBatch(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/pnl?batch=missing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestStatementMissingBatchParam(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/pnl", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	srv := newTestServer(t)
	batchID := uploadBatch(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/dashboard?batch="+batchID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "kpis") {
		t.Errorf("expected kpis in dashboard body: %s", rec.Body.String())
	}
}

func TestForecastEndpoint(t *testing.T) {
	srv := newTestServer(t)
	batchID := uploadBatch(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/forecast?batch="+batchID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/forecast?batch="+batchID+"&months=99", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for out-of-range horizon", rec.Code)
	}
}

func TestDrillDownEndpoint(t *testing.T) {
	srv := newTestServer(t)
	batchID := uploadBatch(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/drilldown?batch="+batchID+"&line=25&month=2024-01", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Rows []services.DrillDownRow `json:"rows"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Rows) != 1 || resp.Rows[0].Amount != 15000 {
		t.Errorf("unexpected rows: %+v", resp.Rows)
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/drilldown?batch="+batchID, nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing line", rec.Code)
	}
}

func TestStatementPostAdHocOverrides(t *testing.T) {
	srv := newTestServer(t)
	batchID := uploadBatch(t, srv)

	body := []byte(`{"overrides": {"106": {"2024-01": 777.77}}}`)
	rec := doRequest(t, srv, http.MethodPost, "/api/pnl?batch="+batchID, body, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "777.77") {
		t.Errorf("expected ad-hoc override in statement: %s", rec.Body.String())
	}

	// The GET view is unaffected
	rec = doRequest(t, srv, http.MethodGet, "/api/pnl?batch="+batchID, nil, "")
	if strings.Contains(rec.Body.String(), "777.77") {
		t.Error("ad-hoc override should not persist")
	}
}

func TestOverridesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	batchID := uploadBatch(t, srv)

	body := []byte(`{"overrides": {"106": {"2024-01": 123456.78}}}`)
	rec := doRequest(t, srv, http.MethodPut, "/api/overrides?batch="+batchID, body, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, srv, http.MethodGet, "/api/overrides?batch="+batchID, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get overrides status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "123456.78") {
		t.Errorf("expected stored override in: %s", rec.Body.String())
	}

	// The overridden value surfaces in the statement
	rec = doRequest(t, srv, http.MethodGet, "/api/pnl?batch="+batchID, nil, "")
	if !strings.Contains(rec.Body.String(), "123456.78") {
		t.Errorf("expected override in statement: %s", rec.Body.String())
	}
}

func TestOverridesRejectsNonFinalLine(t *testing.T) {
	srv := newTestServer(t)
	batchID := uploadBatch(t, srv)

	body := []byte(`{"overrides": {"104": {"2024-01": 1}}}`)
	rec := doRequest(t, srv, http.MethodPut, "/api/overrides?batch="+batchID, body, "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400, body = %s", rec.Code, rec.Body.String())
	}
}

func TestBatchesEndpoint(t *testing.T) {
	srv := newTestServer(t)
	uploadBatch(t, srv)

	rec := doRequest(t, srv, http.MethodGet, "/api/batches", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "batches") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}

	rec = doRequest(t, srv, http.MethodGet, "/readyz", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}
}
