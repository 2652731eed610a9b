package domain

import "errors"

var (
	// ErrChunkConfig signals invalid chunking parameters (overlap >= size, size <= 0).
	ErrChunkConfig = errors.New("invalid chunking configuration")
	// ErrDimensionMismatch signals that the collection exists with a different vector dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrUnsupportedFileType signals an upload with a file extension outside the allow-list.
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrExtraction signals an unreadable or corrupt document.
	ErrExtraction = errors.New("document extraction failed")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrIndexUnavailable signals a vector store failure during ingestion.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrGenerationUnavailable signals a non-success status from the generation service.
	ErrGenerationUnavailable = errors.New("generation service unavailable")
	// ErrDocumentNotFound signals a missing uploaded document.
	ErrDocumentNotFound = errors.New("document not found")
)
