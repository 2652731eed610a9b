package chi

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sd031/ai-document-helper/internal/domain"
	"github.com/sd031/ai-document-helper/internal/storage"
	healthuc "github.com/sd031/ai-document-helper/internal/usecase/health"
	ingestuc "github.com/sd031/ai-document-helper/internal/usecase/ingest"
	queryuc "github.com/sd031/ai-document-helper/internal/usecase/query"
	statsuc "github.com/sd031/ai-document-helper/internal/usecase/stats"
)

// Fakes for the usecase contracts. Each field overrides one behavior; the
// zero value answers happily.

type fakeFiles struct {
	saveErr error
	exists  bool
	listed  []storage.FileInfo
	deleted []string
}

func (f *fakeFiles) Save(filename string, src io.Reader) (string, int64, error) {
	if f.saveErr != nil {
		return "", 0, f.saveErr
	}
	n, _ := io.Copy(io.Discard, src)
	return "/tmp/" + filename, n, nil
}

func (f *fakeFiles) Delete(filename string) error {
	f.deleted = append(f.deleted, filename)
	return nil
}

func (f *fakeFiles) Exists(string) bool { return f.exists }

func (f *fakeFiles) List() ([]storage.FileInfo, error) { return f.listed, nil }

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(string) (string, error) { return f.text, f.err }

type fakeChunker struct {
	chunks []domain.Chunk
}

func (f *fakeChunker) Chunk(string) []domain.Chunk { return f.chunks }

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{0.1, 0.2, 0.3}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: 7 * len(texts)}, nil
}

type fakeIndex struct {
	upsertErr error
	searchErr error
	contexts  []domain.RetrievedContext
	deleted   int
	stats     domain.IndexStats
	statsErr  error
	lastK     int
}

func (f *fakeIndex) Upsert(context.Context, []domain.IndexedPoint) error { return f.upsertErr }

func (f *fakeIndex) DeleteBySource(context.Context, string) (int, error) { return f.deleted, nil }

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int) ([]domain.RetrievedContext, error) {
	f.lastK = k
	return f.contexts, f.searchErr
}

func (f *fakeIndex) Stats(context.Context) (domain.IndexStats, error) {
	return f.stats, f.statsErr
}

type fakeGenerator struct {
	answer string
	err    error
}

func (f *fakeGenerator) Generate(context.Context, string) (string, error) {
	return f.answer, f.err
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(context.Context) error { return f.err }

type fakeChecker struct{ err error }

func (f *fakeChecker) HealthCheck(context.Context) error { return f.err }

// testDeps bundles the fakes behind a fully wired router.
type testDeps struct {
	files     *fakeFiles
	extractor *fakeExtractor
	index     *fakeIndex
	generator *fakeGenerator
	db        *fakePinger
	embHealth *fakeChecker
	genHealth *fakeChecker
}

func newTestRouter(t *testing.T) (http.Handler, *testDeps) {
	t.Helper()

	d := &testDeps{
		files: &fakeFiles{},
		extractor: &fakeExtractor{
			text: "some extracted document text",
		},
		index:     &fakeIndex{stats: domain.IndexStats{TotalPoints: 5, VectorDimension: 384, CollectionName: "documents"}},
		generator: &fakeGenerator{answer: "The report covers Q3."},
		db:        &fakePinger{},
		embHealth: &fakeChecker{},
		genHealth: &fakeChecker{},
	}

	chunks := []domain.Chunk{
		{ID: 0, Text: "some extracted", StartWord: 0, EndWord: 2},
		{ID: 1, Text: "document text", StartWord: 2, EndWord: 4},
	}

	embedder := &fakeEmbedder{}
	ingestSvc := ingestuc.New(
		d.files, d.extractor, &fakeChunker{chunks: chunks}, embedder, d.index,
		[]string{".pdf", ".txt", ".docx", ".md"},
	)
	querySvc := queryuc.New(embedder, d.index, d.generator, 3)
	statsSvc := statsuc.New(d.index, 384, "documents")
	healthSvc := healthuc.New(d.db, d.embHealth, d.genHealth)

	srv := NewServer(ingestSvc, querySvc, statsSvc, healthSvc, 1<<20, zap.NewNop())
	r := chirouter.NewRouter()
	srv.Register(r)
	return r, d
}

// multipartUpload builds a multipart request body with a single file field.
func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(uploadFormField, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func doRequest(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
