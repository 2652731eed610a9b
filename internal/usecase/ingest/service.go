// Package ingest owns the document pipeline: store the upload, extract its
// text, chunk, embed the chunk batch, and write points to the vector index.
// A document is indexed entirely or not at all.
package ingest

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sd031/ai-document-helper/internal/domain"
	"github.com/sd031/ai-document-helper/internal/logger"
	"github.com/sd031/ai-document-helper/internal/metrics"
	"github.com/sd031/ai-document-helper/internal/storage"
)

// UploadResult reports what a successful upload produced.
type UploadResult struct {
	Filename string `json:"filename"`
	Chunks   int    `json:"chunks_indexed"`
	Size     int64  `json:"size_bytes"`
}

// RemoveResult reports what a deletion removed.
type RemoveResult struct {
	Filename      string `json:"filename"`
	PointsDeleted int    `json:"chunks_deleted"`
}

// Service handles document ingestion and removal.
type Service struct {
	files     Files
	extractor Extractor
	chunker   Chunker
	embedder  Embedder
	index     Index
	allowed   []string
}

// New creates an ingestion service. allowedExts is the upload allow-list,
// lowercase with leading dot.
func New(files Files, ex Extractor, ch Chunker, emb Embedder, idx Index, allowedExts []string) *Service {
	return &Service{
		files:     files,
		extractor: ex,
		chunker:   ch,
		embedder:  emb,
		index:     idx,
		allowed:   allowedExts,
	}
}

// Upload runs the full ingestion pipeline for one document. On any failure
// after the file hits disk, the stored file is removed again so the document
// listing never shows documents that are not in the index.
func (s *Service) Upload(ctx context.Context, filename string, src io.Reader) (UploadResult, error) {
	log := logger.FromContext(ctx)

	if !s.extensionAllowed(filename) {
		return UploadResult{}, fmt.Errorf("%s: %w", filepath.Ext(filename), domain.ErrUnsupportedFileType)
	}

	path, size, err := s.files.Save(filename, src)
	if err != nil {
		return UploadResult{}, fmt.Errorf("save upload: %w", err)
	}

	chunks, err := s.indexDocument(ctx, filename, path)
	if err != nil {
		if delErr := s.files.Delete(filename); delErr != nil {
			log.Warn("Failed to clean up unindexed upload",
				zap.String("filename", filename), zap.Error(delErr))
		}
		return UploadResult{}, err
	}

	log.Info("Document ingested",
		zap.String("filename", filename),
		zap.Int("chunks", chunks),
		zap.Int64("size_bytes", size))

	return UploadResult{Filename: filename, Chunks: chunks, Size: size}, nil
}

func (s *Service) indexDocument(ctx context.Context, filename, path string) (int, error) {
	text, err := s.extractor.Extract(path)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", filename, err)
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batch, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(batch.Embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks: %w",
			len(batch.Embeddings), len(chunks), domain.ErrEmbeddingProvider)
	}

	// Points carry the chunker's emission order into the index.
	points := make([]domain.IndexedPoint, len(chunks))
	for i, c := range chunks {
		points[i] = domain.IndexedPoint{
			ID:         uuid.NewString(),
			Vector:     batch.Embeddings[i],
			Text:       c.Text,
			Source:     filename,
			ChunkIndex: c.ID,
			StartWord:  c.StartWord,
			EndWord:    c.EndWord,
		}
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("%w: index %s: %w", domain.ErrIndexUnavailable, filename, err)
	}

	metrics.ChunksIndexedTotal.Add(float64(len(points)))
	return len(points), nil
}

// Remove deletes a stored document and all of its points in the index.
func (s *Service) Remove(ctx context.Context, filename string) (RemoveResult, error) {
	if !s.files.Exists(filename) {
		return RemoveResult{}, fmt.Errorf("%s: %w", filename, domain.ErrDocumentNotFound)
	}

	deleted, err := s.index.DeleteBySource(ctx, filename)
	if err != nil {
		return RemoveResult{}, fmt.Errorf("%w: delete points for %s: %w",
			domain.ErrIndexUnavailable, filename, err)
	}

	if err := s.files.Delete(filename); err != nil {
		return RemoveResult{}, fmt.Errorf("delete file %s: %w", filename, err)
	}

	logger.FromContext(ctx).Info("Document removed",
		zap.String("filename", filename),
		zap.Int("points_deleted", deleted))

	return RemoveResult{Filename: filename, PointsDeleted: deleted}, nil
}

// List returns the stored documents.
func (s *Service) List(_ context.Context) ([]storage.FileInfo, error) {
	files, err := s.files.List()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return files, nil
}

func (s *Service) extensionAllowed(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range s.allowed {
		if ext == a {
			return true
		}
	}
	return false
}
