// Package index is the vector index adapter: one collection of embedded
// document chunks stored as Redis hashes behind an FT HNSW index.
package index

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sd031/ai-document-helper/internal/db"
	"github.com/sd031/ai-document-helper/internal/domain"
)

// deletePageSize bounds a single FT.SEARCH page while collecting keys for
// source-level deletion.
const deletePageSize = 1000

// store is the consumer interface for the vector index (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchList(ctx context.Context, index, query string, offset, limit int, fields []string) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements the vector index contract over a db store.
type Repo struct {
	store      store
	prefix     string
	collection string
	dim        int
	hnsw       HNSWConfig
}

// New creates a vector index repository for a single named collection.
func New(s store, prefix, collection string, dim int) *Repo {
	return &Repo{
		store:      s,
		prefix:     prefix,
		collection: collection,
		dim:        dim,
		hnsw:       HNSWConfig{M: 16, EFConstruct: 200},
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Ensure makes the collection ready for use: creates metadata and the FT index
// on first run, verifies the stored vector dimension on every subsequent run.
// A dimension conflict returns domain.ErrDimensionMismatch; the caller is
// expected to treat that as fatal rather than touch data written under a
// different embedding model.
func (r *Repo) Ensure(ctx context.Context) error {
	metaKey := r.metaKey()

	meta, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("hgetall collection meta: %w", err)
	}

	if len(meta) > 0 {
		stored, err := strconv.Atoi(meta["vector_dim"])
		if err != nil {
			return fmt.Errorf("collection %s: bad vector_dim %q: %w", r.collection, meta["vector_dim"], err)
		}
		if stored != r.dim {
			return fmt.Errorf("collection %s: stored dimension %d, configured %d: %w",
				r.collection, stored, r.dim, domain.ErrDimensionMismatch)
		}
	} else {
		fields := map[string]string{
			"name":       r.collection,
			"vector_dim": strconv.Itoa(r.dim),
			"created_at": strconv.FormatInt(time.Now().UnixMilli(), 10),
		}
		if err := r.store.HSet(ctx, metaKey, fields); err != nil {
			return fmt.Errorf("hset collection meta: %w", err)
		}
	}

	def := &db.IndexDefinition{
		Name:        r.indexName(),
		StorageType: db.StorageHash,
		Prefixes:    []string{r.pointPrefix()},
		Fields: []db.IndexField{
			{Name: fieldSource, Type: db.IndexFieldTag},
			{Name: fieldChunkIndex, Type: db.IndexFieldNumeric},
			{
				Name:              fieldVector,
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.dim,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.hnsw.M,
				VectorEFConstruct: r.hnsw.EFConstruct,
			},
		},
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	return nil
}

// Upsert stores the given points. HSETs are pipelined in slice order, so a
// document's chunks land in emission order; a failure anywhere means the
// batch did not complete and the caller should treat the document as not
// indexed.
func (r *Repo) Upsert(ctx context.Context, points []domain.IndexedPoint) error {
	if len(points) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(points))
	for i, p := range points {
		if len(p.Vector) != r.dim {
			return fmt.Errorf("point %s: vector dimension %d, expected %d: %w",
				p.ID, len(p.Vector), r.dim, domain.ErrDimensionMismatch)
		}
		items[i] = db.HashSetItem{
			Key:    r.pointKey(p.ID),
			Fields: buildPointFields(p),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search runs a KNN query and returns up to k contexts in descending
// similarity order.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]domain.RetrievedContext, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(),
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldText, fieldSource, fieldChunkIndex, "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	contexts := make([]domain.RetrievedContext, 0, len(result.Entries))
	for _, e := range result.Entries {
		contexts = append(contexts, parseContext(e.Fields, e.Score))
	}

	sort.SliceStable(contexts, func(i, j int) bool {
		return contexts[i].Score > contexts[j].Score
	})

	return contexts, nil
}

// Stats returns the point count alongside the configured dimension and
// collection name.
func (r *Repo) Stats(ctx context.Context) (domain.IndexStats, error) {
	count, err := r.store.SearchCount(ctx, r.indexName(), "*")
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("count points: %w", err)
	}
	return domain.IndexStats{
		TotalPoints:     count,
		VectorDimension: r.dim,
		CollectionName:  r.collection,
	}, nil
}

// DeleteBySource removes every point belonging to the given source document
// and reports how many were deleted. An unknown source deletes nothing.
func (r *Repo) DeleteBySource(ctx context.Context, source string) (int, error) {
	query := db.TagQuery(fieldSource, source)

	deleted := 0
	for {
		page, err := r.store.SearchList(ctx, r.indexName(), query, 0, deletePageSize, []string{fieldSource})
		if err != nil {
			return deleted, fmt.Errorf("list points for %s: %w", source, err)
		}
		if len(page.Entries) == 0 {
			return deleted, nil
		}

		keys := make([]string, len(page.Entries))
		for i, e := range page.Entries {
			keys[i] = e.Key
		}
		if err := r.store.Del(ctx, keys...); err != nil {
			return deleted, fmt.Errorf("delete points for %s: %w", source, err)
		}
		deleted += len(keys)

		if len(page.Entries) < deletePageSize {
			return deleted, nil
		}
	}
}

// Redis key patterns: dochelper:collection:{name}, dochelper:{name}:idx, dochelper:{name}:{id}

func (r *Repo) metaKey() string {
	return fmt.Sprintf("%scollection:%s", r.prefix, r.collection)
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", r.prefix, r.collection)
}

func (r *Repo) pointPrefix() string {
	return fmt.Sprintf("%s%s:", r.prefix, r.collection)
}

func (r *Repo) pointKey(id string) string {
	return r.pointPrefix() + id
}
