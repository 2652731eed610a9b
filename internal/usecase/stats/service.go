// Package stats reports informational counters about the vector index.
package stats

import (
	"context"

	"go.uber.org/zap"

	"github.com/sd031/ai-document-helper/internal/domain"
	"github.com/sd031/ai-document-helper/internal/logger"
)

// Service handles index statistics.
type Service struct {
	index      Index
	dimension  int
	collection string
}

// New creates a stats service. dimension and collection back the degraded
// response when the index cannot be reached.
func New(index Index, dimension int, collection string) *Service {
	return &Service{index: index, dimension: dimension, collection: collection}
}

// Stats returns index counters. Stats are informational: a store failure
// degrades to a zero point count with the configured dimension and collection
// name rather than an error.
func (s *Service) Stats(ctx context.Context) domain.IndexStats {
	stats, err := s.index.Stats(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("Index stats unavailable, reporting zero count", zap.Error(err))
		return domain.IndexStats{
			TotalPoints:     0,
			VectorDimension: s.dimension,
			CollectionName:  s.collection,
		}
	}
	return stats
}
