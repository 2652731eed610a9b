package stats

import (
	"context"

	"github.com/sd031/ai-document-helper/internal/domain"
)

// Index reads counters from the vector index.
type Index interface {
	Stats(ctx context.Context) (domain.IndexStats, error)
}
