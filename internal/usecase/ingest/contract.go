package ingest

import (
	"context"
	"io"

	"github.com/sd031/ai-document-helper/internal/domain"
	"github.com/sd031/ai-document-helper/internal/storage"
)

// Files is the uploaded-document storage contract.
type Files interface {
	Save(filename string, src io.Reader) (path string, size int64, err error)
	Delete(filename string) error
	Exists(filename string) bool
	List() ([]storage.FileInfo, error)
}

// Extractor turns a stored file into raw text.
type Extractor interface {
	Extract(path string) (string, error)
}

// Chunker splits raw text into overlapping word windows.
type Chunker interface {
	Chunk(text string) []domain.Chunk
}

// Embedder vectorizes chunk texts in a single batch call.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index writes and removes points in the vector index.
type Index interface {
	Upsert(ctx context.Context, points []domain.IndexedPoint) error
	DeleteBySource(ctx context.Context, source string) (int, error)
}
