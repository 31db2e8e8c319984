package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"moomoney/internal/core"
	"moomoney/internal/ledger"
)

type memStore struct {
	m map[string][]byte
}

func (s *memStore) Load(_ context.Context, key string, v any) (bool, error) {
	b, ok := s.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

func (s *memStore) Save(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.m[key] = b
	return nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := &memStore{m: map[string][]byte{}}
	now := func() time.Time { return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) }
	tracker, err := ledger.NewTracker(context.Background(), store, ledger.WithClock(now))
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	return NewServer(":0", tracker, 8<<20)
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestOverviewEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/api/overview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	o := decodeResponse[ledger.Overview](t, rec)
	if o.MonthKey != "2025-03" {
		t.Errorf("month = %s, want 2025-03", o.MonthKey)
	}
	if o.Budget != ledger.DefaultBudget {
		t.Errorf("budget = %d, want default", o.Budget)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/expenses", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeResponse[core.Expense](t, rec)
	if created.ID != 2 {
		t.Fatalf("created id = %d, want 2 after the seeded row", created.ID)
	}

	rec = doJSON(t, s, http.MethodPatch, "/api/expenses/2", map[string]any{
		"item": "Beli Rumput", "amount": "Rp40.000",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}
	patched := decodeResponse[core.Expense](t, rec)
	if patched.Amount != 40000 {
		t.Errorf("amount = %d, want digit-stripped 40000", patched.Amount)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/expenses/2/smart-item", map[string]string{
		"text": "Beli Rumput 5 kg",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("smart item status = %d, body %s", rec.Code, rec.Body.String())
	}
	smart := decodeResponse[core.Expense](t, rec)
	if smart.Item != "Beli Rumput" || smart.Qty != 5 || smart.Unit != "kg" {
		t.Errorf("smart parse = %+v", smart)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/expenses/2", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/expenses/2", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete status = %d, want 404", rec.Code)
	}
}

func TestDateEditAcrossMonthIsHeld(t *testing.T) {
	s := newTestServer(t)

	// Seeded sample row has id 1 and today's date.
	rec := doJSON(t, s, http.MethodPut, "/api/expenses/1/date", map[string]string{
		"date": "2025-04-01",
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("cross-month edit status = %d, want 202", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/rollover/manual/confirm", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("manual confirm status = %d, body %s", rec.Code, rec.Body.String())
	}
	arch := decodeResponse[ledger.Archive](t, rec)
	if arch.ISODate != "2025-03" {
		t.Errorf("archived month = %s, want 2025-03", arch.ISODate)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/overview", nil)
	o := decodeResponse[ledger.Overview](t, rec)
	if o.MonthKey != "2025-04" {
		t.Errorf("month after manual rollover = %s, want 2025-04", o.MonthKey)
	}
}

func TestRolloverEndpointsWithoutDrift(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/rollover/check", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("check status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"drift":null`) {
		t.Errorf("check body = %s, want null drift", rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/api/rollover/confirm", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("confirm without drift = %d, want 409", rec.Code)
	}
}

func TestImportCSVEndpoint(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "import.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	fw.Write([]byte("Tanggal,Item,Jumlah\n2025-03-15,Beras,70.000\n2025-01-20,Listrik,150.000\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}
	report := decodeResponse[ledger.ImportReport](t, rec)
	if report.Appended != 1 || report.NewArchives != 1 {
		t.Errorf("report = %+v, want 1 appended + 1 new archive", report)
	}
}

func TestImportRejectsUnknownExtension(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "import.pdf")
	fw.Write([]byte("%PDF"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExportCSVEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/export?format=csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %s", ct)
	}
	if !strings.Contains(rec.Body.String(), "Tanggal,Item,Kategori") {
		t.Errorf("csv body missing header: %s", rec.Body.String())
	}
}

func TestSettingsEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/api/settings/cutoff-day", map[string]int{"day": 25})
	if rec.Code != http.StatusOK {
		t.Fatalf("cutoff status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"cutoff_day":25`) {
		t.Errorf("cutoff body = %s", rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPut, "/api/settings/theme", map[string]string{"theme": "neon"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid theme status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, s, http.MethodPut, "/api/settings/theme", map[string]string{"theme": "green"})
	if rec.Code != http.StatusOK {
		t.Errorf("theme status = %d", rec.Code)
	}
}

func TestArchiveEndpoints(t *testing.T) {
	s := newTestServer(t)

	// Manufacture an archive through import of an older month.
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "old.csv")
	fw.Write([]byte("Tanggal,Item,Jumlah\n2025-01-20,Listrik,150.000\n"))
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/archives", nil)
	archives := decodeResponse[[]ledger.Archive](t, rec)
	if len(archives) != 1 {
		t.Fatalf("archives = %d, want 1", len(archives))
	}
	id := archives[0].ID

	rec = doJSON(t, s, http.MethodPost, "/api/archives/"+itoa(id)+"/open", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("open status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/overview", nil)
	o := decodeResponse[ledger.Overview](t, rec)
	if !o.View.Archive || o.MonthKey != "2025-01" {
		t.Fatalf("viewed = %+v, want archive 2025-01", o.View)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/archives/close", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/archives/"+itoa(id), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodDelete, "/api/archives/"+itoa(id), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("double delete status = %d, want 404", rec.Code)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
