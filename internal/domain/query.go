package domain

import "math"

// ExcerptLimit is the maximum excerpt length in a query source entry.
const ExcerptLimit = 200

// RetrievedContext is a single ranked passage returned by the retriever.
// Score is cosine similarity in [0, 1]; results are ordered descending.
type RetrievedContext struct {
	Text       string
	Source     string
	Score      float64
	ChunkIndex int
}

// Source attributes part of an answer to an uploaded document.
type Source struct {
	Source         string  `json:"source"`
	RelevanceScore float64 `json:"relevance_score"`
	Excerpt        string  `json:"excerpt"`
}

// QueryResult is the outcome of a question against the indexed documents.
// Answer is always populated — generation failures map to fallback strings.
type QueryResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// SourceFromContext builds a Source entry: score rounded to 3 decimal places,
// excerpt truncated to ExcerptLimit characters with a trailing ellipsis marker.
// The limit counts characters, not bytes, so multibyte text is never cut
// mid-rune.
func SourceFromContext(ctx RetrievedContext) Source {
	excerpt := ctx.Text
	if runes := []rune(excerpt); len(runes) > ExcerptLimit {
		excerpt = string(runes[:ExcerptLimit]) + "..."
	}
	return Source{
		Source:         ctx.Source,
		RelevanceScore: math.Round(ctx.Score*1000) / 1000,
		Excerpt:        excerpt,
	}
}

// IndexStats reports informational counters about the vector index.
type IndexStats struct {
	TotalPoints     int    `json:"total_documents"`
	VectorDimension int    `json:"vector_dimension"`
	CollectionName  string `json:"collection_name"`
}
