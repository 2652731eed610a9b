package ingest

import (
	"context"
	"io"
	"testing"

	"github.com/sd031/ai-document-helper/internal/domain"
	"github.com/sd031/ai-document-helper/internal/storage"
)

type mockFiles struct {
	saveFn   func(filename string, src io.Reader) (string, int64, error)
	deleteFn func(filename string) error
	existsFn func(filename string) bool
	listFn   func() ([]storage.FileInfo, error)

	deleted []string
}

func (m *mockFiles) Save(filename string, src io.Reader) (string, int64, error) {
	if m.saveFn != nil {
		return m.saveFn(filename, src)
	}
	return "/uploads/" + filename, 11, nil
}

func (m *mockFiles) Delete(filename string) error {
	m.deleted = append(m.deleted, filename)
	if m.deleteFn != nil {
		return m.deleteFn(filename)
	}
	return nil
}

func (m *mockFiles) Exists(filename string) bool {
	if m.existsFn != nil {
		return m.existsFn(filename)
	}
	return true
}

func (m *mockFiles) List() ([]storage.FileInfo, error) {
	if m.listFn != nil {
		return m.listFn()
	}
	return nil, nil
}

type mockExtractor struct {
	text string
	err  error
}

func (m *mockExtractor) Extract(_ string) (string, error) {
	return m.text, m.err
}

type mockChunker struct {
	chunks []domain.Chunk
}

func (m *mockChunker) Chunk(_ string) []domain.Chunk {
	return m.chunks
}

type mockEmbedder struct {
	result domain.BatchEmbeddingResult
	err    error
	texts  []string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.texts = texts
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	if m.result.Embeddings != nil {
		return m.result, nil
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{0.1, 0.2}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

type mockIndex struct {
	upsertFn func(ctx context.Context, points []domain.IndexedPoint) error
	deleteFn func(ctx context.Context, source string) (int, error)

	upserted []domain.IndexedPoint
}

func (m *mockIndex) Upsert(ctx context.Context, points []domain.IndexedPoint) error {
	m.upserted = points
	if m.upsertFn != nil {
		return m.upsertFn(ctx, points)
	}
	return nil
}

func (m *mockIndex) DeleteBySource(ctx context.Context, source string) (int, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, source)
	}
	return 0, nil
}

type testDeps struct {
	files     *mockFiles
	extractor *mockExtractor
	chunker   *mockChunker
	embedder  *mockEmbedder
	index     *mockIndex
}

func newTestService(t *testing.T) (*Service, *testDeps) {
	t.Helper()
	deps := &testDeps{
		files:     &mockFiles{},
		extractor: &mockExtractor{text: "some document text"},
		chunker: &mockChunker{chunks: []domain.Chunk{
			{ID: 0, Text: "some document", StartWord: 0, EndWord: 2},
			{ID: 1, Text: "document text", StartWord: 1, EndWord: 3},
		}},
		embedder: &mockEmbedder{},
		index:    &mockIndex{},
	}
	svc := New(deps.files, deps.extractor, deps.chunker, deps.embedder, deps.index,
		[]string{".pdf", ".txt", ".docx", ".md"})
	return svc, deps
}
