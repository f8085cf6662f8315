package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/constants"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/common"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/entity"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/export"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/pipeline"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/quality"
	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/store"
)

// fakeStore serves canned documents for the read-side handlers.
type fakeStore struct {
	docs       map[string]*store.StoredDocument
	lastFilter store.SearchFilter
}

func (f *fakeStore) SaveDocument(_ context.Context, doc *store.StoredDocument) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (*store.StoredDocument, error) {
	if doc, ok := f.docs[id]; ok {
		return doc, nil
	}
	return nil, common.NewAppError("DOCUMENT_NOT_FOUND", "not found", common.ErrNotFound)
}

func (f *fakeStore) ListDocuments(context.Context, int, int) ([]store.StoredDocument, error) {
	out := []store.StoredDocument{}
	for _, d := range f.docs {
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeStore) SearchDocuments(_ context.Context, filter store.SearchFilter) ([]store.StoredDocument, error) {
	f.lastFilter = filter
	out := []store.StoredDocument{}
	for _, d := range f.docs {
		if filter.Query != "" && !strings.Contains(d.Filename, filter.Query) {
			continue
		}
		if filter.MinQuality > 0 && d.QualityScore < filter.MinQuality {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, status constants.ProcessingState, progress int, message string) error {
	if doc, ok := f.docs[id]; ok {
		doc.Status, doc.Progress, doc.Message = status, progress, message
		return nil
	}
	return errors.New("not found")
}

func (f *fakeStore) DeleteDocument(_ context.Context, id string) error {
	if _, ok := f.docs[id]; !ok {
		return common.NewAppError("DOCUMENT_NOT_FOUND", "not found", common.ErrNotFound)
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeStore) Stats(context.Context) (*store.Stats, error) {
	return &store.Stats{TotalDocuments: len(f.docs)}, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func completedDocument(id string) *store.StoredDocument {
	return &store.StoredDocument{
		ID:       id,
		Filename: "report.pdf",
		Status:   constants.StateCompleted,
		Progress: 100,
		Result: &entity.ExtractionResult{
			Filename:   "report.pdf",
			DocumentID: id,
			Statements: []entity.FinancialStatement{{
				StatementType: "profit_loss",
				CompanyName:   "ACME PTY LTD",
				Currency:      "AUD",
				Rounding:      "thousands",
				LineItems: []entity.LineItem{{
					Label:      "Revenue",
					Values:     map[string]float64{"2024": 315.4},
					Confidence: 1.0,
				}},
			}},
			Status: constants.ExtractionCompleted,
			Errors: []string{},
		},
	}
}

func newTestServer(t *testing.T, fs *fakeStore) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &common.Config{
		Server: common.ServerConfig{
			Addr:        ":0",
			CORSOrigins: []string{"http://localhost:8000"},
		},
		LLM:   common.LLMConfig{MockMode: true},
		Paths: common.PathsConfig{UploadDir: t.TempDir(), OutputDir: t.TempDir()},
	}

	var ds store.DocumentStore
	if fs != nil {
		ds = fs
	}
	tracker := pipeline.NewTracker(nil, logger)
	coordinator := pipeline.NewCoordinator(nil, nil, quality.NewValidator(logger), tracker, ds, cfg.Paths.OutputDir, 1, logger)
	srv := NewServer(coordinator, ds, export.NewXLSXExporter(logger), cfg, logger)
	return srv, srv.Router()
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t, &fakeStore{docs: map[string]*store.StoredDocument{}})
	w := doRequest(router, http.MethodGet, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["mock_mode"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestStatusUnknownID(t *testing.T) {
	_, router := newTestServer(t, &fakeStore{docs: map[string]*store.StoredDocument{}})
	if w := doRequest(router, http.MethodGet, "/api/status/nope"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStatusFromTracker(t *testing.T) {
	srv, router := newTestServer(t, nil)
	srv.coordinator.Tracker().Set(context.Background(), entity.ProcessingStatus{
		DocumentID: "d1",
		Filename:   "report.pdf",
		Status:     constants.StateProcessing,
		Progress:   30,
		Message:    "Extracting financial data...",
	})

	w := doRequest(router, http.MethodGet, "/api/status/d1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got entity.ProcessingStatus
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Progress != 30 || got.Status != constants.StateProcessing {
		t.Errorf("body = %+v", got)
	}
}

func TestResultsStillProcessing(t *testing.T) {
	srv, router := newTestServer(t, nil)
	srv.coordinator.Tracker().Set(context.Background(), entity.ProcessingStatus{
		DocumentID: "d1",
		Status:     constants.StateProcessing,
		Progress:   70,
	})

	if w := doRequest(router, http.MethodGet, "/api/results/d1"); w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202 while processing", w.Code)
	}
}

func TestResultsFromStore(t *testing.T) {
	fs := &fakeStore{docs: map[string]*store.StoredDocument{"d1": completedDocument("d1")}}
	_, router := newTestServer(t, fs)

	w := doRequest(router, http.MethodGet, "/api/results/d1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got entity.ExtractionResult
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Statements) != 1 || got.Statements[0].CompanyName != "ACME PTY LTD" {
		t.Errorf("result = %+v", got)
	}
}

func TestListDocuments(t *testing.T) {
	fs := &fakeStore{docs: map[string]*store.StoredDocument{"d1": completedDocument("d1")}}
	_, router := newTestServer(t, fs)

	w := doRequest(router, http.MethodGet, "/api/documents")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestListDocumentsFilters(t *testing.T) {
	fs := &fakeStore{docs: map[string]*store.StoredDocument{"d1": completedDocument("d1")}}
	fs.docs["d1"].QualityScore = 0.9
	_, router := newTestServer(t, fs)

	w := doRequest(router, http.MethodGet, "/api/documents?currency=AUD&statement_type=profit_loss&min_quality=0.5")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	want := store.SearchFilter{Currency: "AUD", StatementType: "profit_loss", MinQuality: 0.5}
	if fs.lastFilter != want {
		t.Errorf("filter = %+v, want %+v", fs.lastFilter, want)
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestListDocumentsRejectsBadMinQuality(t *testing.T) {
	_, router := newTestServer(t, &fakeStore{docs: map[string]*store.StoredDocument{}})
	if w := doRequest(router, http.MethodGet, "/api/documents?min_quality=two"); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestExportXLSX(t *testing.T) {
	fs := &fakeStore{docs: map[string]*store.StoredDocument{"d1": completedDocument("d1")}}
	_, router := newTestServer(t, fs)

	w := doRequest(router, http.MethodGet, "/api/export/d1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("content type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "report_extracted.xlsx") {
		t.Errorf("content disposition = %q", cd)
	}
}

func TestExportNoResults(t *testing.T) {
	_, router := newTestServer(t, &fakeStore{docs: map[string]*store.StoredDocument{}})
	if w := doRequest(router, http.MethodGet, "/api/export/nope"); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteDocument(t *testing.T) {
	fs := &fakeStore{docs: map[string]*store.StoredDocument{"d1": completedDocument("d1")}}
	_, router := newTestServer(t, fs)

	if w := doRequest(router, http.MethodDelete, "/api/documents/d1"); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if _, ok := fs.docs["d1"]; ok {
		t.Error("document survived delete")
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	_, router := newTestServer(t, &fakeStore{docs: map[string]*store.StoredDocument{}})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("no file here"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
