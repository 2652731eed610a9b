package query

import (
	"context"

	"github.com/sd031/ai-document-helper/internal/domain"
)

// Embedder vectorizes the question text.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index runs KNN retrieval over indexed chunks.
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievedContext, error)
}

// Generator produces the answer text from the assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
