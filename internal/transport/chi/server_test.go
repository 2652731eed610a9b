package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/sd031/ai-document-helper/internal/domain"
	"github.com/sd031/ai-document-helper/internal/metrics"
	"github.com/sd031/ai-document-helper/internal/storage"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	m.Run()
}

func decodeBody(t *testing.T, body string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("decode response %q: %v", body, err)
	}
}

func TestRoot(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	decodeBody(t, rec.Body.String(), &resp)
	if resp["service"] != "ai-document-helper" {
		t.Errorf("service = %q", resp["service"])
	}
	if resp["version"] == "" {
		t.Error("version is empty")
	}
}

func TestHealth_AllOK(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/health", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	for _, name := range []string{"database", "embedding", "generation"} {
		if resp.Checks[name] != "ok" {
			t.Errorf("check %s = %q, want ok", name, resp.Checks[name])
		}
	}
}

func TestHealth_Degraded(t *testing.T) {
	r, d := newTestRouter(t)
	d.db.err = errors.New("connection refused")

	rec := doRequest(t, r, http.MethodGet, "/health", nil, "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var resp struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
	if resp.Checks["database"] != "error" {
		t.Errorf("database check = %q, want error", resp.Checks["database"])
	}
}

func TestUpload_HappyPath(t *testing.T) {
	r, _ := newTestRouter(t)

	body, contentType := multipartUpload(t, "report.pdf", "pdf bytes here")
	rec := doRequest(t, r, http.MethodPost, "/upload", body, contentType)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Filename string `json:"filename"`
		Chunks   int    `json:"chunks_indexed"`
		Size     int64  `json:"size_bytes"`
	}
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Filename != "report.pdf" {
		t.Errorf("filename = %q", resp.Filename)
	}
	if resp.Chunks != 2 {
		t.Errorf("chunks_indexed = %d, want 2", resp.Chunks)
	}
	if resp.Size != int64(len("pdf bytes here")) {
		t.Errorf("size_bytes = %d", resp.Size)
	}
}

func TestUpload_UnsupportedExtension(t *testing.T) {
	r, _ := newTestRouter(t)

	body, contentType := multipartUpload(t, "archive.zip", "zip bytes")
	rec := doRequest(t, r, http.MethodPost, "/upload", body, contentType)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Code != codeUnsupportedFileType {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/upload",
		strings.NewReader("not multipart"), "text/plain")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_ExtractionFailure(t *testing.T) {
	r, d := newTestRouter(t)
	d.extractor.err = domain.ErrExtraction

	body, contentType := multipartUpload(t, "broken.pdf", "x")
	rec := doRequest(t, r, http.MethodPost, "/upload", body, contentType)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Code != codeExtractionFailed {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestUpload_IndexUnavailable(t *testing.T) {
	r, d := newTestRouter(t)
	d.index.upsertErr = errors.New("redis down")

	body, contentType := multipartUpload(t, "report.pdf", "x")
	rec := doRequest(t, r, http.MethodPost, "/upload", body, contentType)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Code != codeIndexUnavailable {
		t.Errorf("code = %q", resp.Code)
	}
	// The client never sees the raw store error.
	if strings.Contains(resp.Message, "redis") {
		t.Errorf("message leaks internals: %q", resp.Message)
	}
}

func TestQuery_HappyPath(t *testing.T) {
	r, d := newTestRouter(t)
	d.index.contexts = []domain.RetrievedContext{
		{Text: "quarterly revenue grew", Source: "report.pdf", Score: 0.91234, ChunkIndex: 0},
	}

	rec := doRequest(t, r, http.MethodPost, "/query",
		strings.NewReader(`{"question":"What grew?"}`), "application/json")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp domain.QueryResult
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Answer != "The report covers Q3." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("sources = %d, want 1", len(resp.Sources))
	}
	if resp.Sources[0].RelevanceScore != 0.912 {
		t.Errorf("relevance_score = %v, want 0.912", resp.Sources[0].RelevanceScore)
	}
}

func TestQuery_TopKOverride(t *testing.T) {
	r, d := newTestRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/query",
		strings.NewReader(`{"question":"What grew?","top_k":5}`), "application/json")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if d.index.lastK != 5 {
		t.Errorf("search ran with k=%d, want the request's 5", d.index.lastK)
	}
}

func TestQuery_TopKDefaultsFromConfig(t *testing.T) {
	r, d := newTestRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/query",
		strings.NewReader(`{"question":"What grew?"}`), "application/json")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if d.index.lastK != 3 {
		t.Errorf("search ran with k=%d, want the configured 3", d.index.lastK)
	}
}

func TestQuery_RejectsNonPositiveTopK(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, body := range []string{
		`{"question":"q","top_k":0}`,
		`{"question":"q","top_k":-2}`,
	} {
		rec := doRequest(t, r, http.MethodPost, "/query",
			strings.NewReader(body), "application/json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestQuery_EmptyQuestion(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/query",
		strings.NewReader(`{"question":""}`), "application/json")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQuery_InvalidJSON(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodPost, "/query",
		strings.NewReader("{broken"), "application/json")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestQuery_GenerationDownStill200(t *testing.T) {
	r, d := newTestRouter(t)
	d.index.contexts = []domain.RetrievedContext{
		{Text: "some text", Source: "report.pdf", Score: 0.8},
	}
	d.generator.err = domain.ErrGenerationUnavailable

	rec := doRequest(t, r, http.MethodPost, "/query",
		strings.NewReader(`{"question":"anything"}`), "application/json")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp domain.QueryResult
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Answer != "Sorry, the AI service is currently unavailable." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Errorf("sources = %d, want 1", len(resp.Sources))
	}
}

func TestListDocuments(t *testing.T) {
	r, d := newTestRouter(t)
	d.files.listed = []storage.FileInfo{
		{Name: "a.pdf", Size: 10},
		{Name: "b.txt", Size: 20},
	}

	rec := doRequest(t, r, http.MethodGet, "/documents", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Documents []storage.FileInfo `json:"documents"`
		Count     int                `json:"count"`
	}
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Count != 2 || len(resp.Documents) != 2 {
		t.Errorf("count = %d, documents = %d", resp.Count, len(resp.Documents))
	}
	if resp.Documents[0].Name != "a.pdf" {
		t.Errorf("first document = %q", resp.Documents[0].Name)
	}
}

func TestDeleteDocument(t *testing.T) {
	r, d := newTestRouter(t)
	d.files.exists = true
	d.index.deleted = 4

	rec := doRequest(t, r, http.MethodDelete, "/documents/report.pdf", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Filename      string `json:"filename"`
		PointsDeleted int    `json:"chunks_deleted"`
	}
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Filename != "report.pdf" {
		t.Errorf("filename = %q", resp.Filename)
	}
	if resp.PointsDeleted != 4 {
		t.Errorf("chunks_deleted = %d, want 4", resp.PointsDeleted)
	}
	if len(d.files.deleted) != 1 || d.files.deleted[0] != "report.pdf" {
		t.Errorf("stored file not removed: %v", d.files.deleted)
	}
}

func TestDeleteDocument_NotFound(t *testing.T) {
	r, d := newTestRouter(t)
	d.files.exists = false

	rec := doRequest(t, r, http.MethodDelete, "/documents/ghost.pdf", nil, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp errorResponse
	decodeBody(t, rec.Body.String(), &resp)
	if resp.Code != codeDocumentNotFound {
		t.Errorf("code = %q", resp.Code)
	}
}

func TestStats(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/stats", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp domain.IndexStats
	decodeBody(t, rec.Body.String(), &resp)
	if resp.TotalPoints != 5 || resp.VectorDimension != 384 || resp.CollectionName != "documents" {
		t.Errorf("stats = %+v", resp)
	}
}

func TestStats_StoreDownStill200(t *testing.T) {
	r, d := newTestRouter(t)
	d.index.statsErr = errors.New("store down")

	rec := doRequest(t, r, http.MethodGet, "/stats", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp domain.IndexStats
	decodeBody(t, rec.Body.String(), &resp)
	if resp.TotalPoints != 0 {
		t.Errorf("total_documents = %d, want 0", resp.TotalPoints)
	}
	if resp.VectorDimension != 384 {
		t.Errorf("vector_dimension = %d, want configured 384", resp.VectorDimension)
	}
}

func TestMetrics(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doRequest(t, r, http.MethodGet, "/metrics", nil, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "dochelper_") {
		t.Error("metrics output missing dochelper namespace")
	}
}
