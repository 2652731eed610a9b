package domain

// Chunk is a bounded, overlapping slice of a document's word sequence — the unit
// of retrieval. Chunks are produced deterministically and never mutated.
//
// ID is the 0-based emission order within a document. StartWord strictly
// increases chunk to chunk; EndWord is clamped to the document's word count, so
// the final chunk of a document may span fewer than chunk_size words.
type Chunk struct {
	ID        int
	Text      string
	StartWord int
	EndWord   int
}

// IndexedPoint is a single (vector, payload) pair owned by the vector index.
// Points are created on ingestion, never updated, and removed only by
// source-level deletion.
type IndexedPoint struct {
	ID         string
	Vector     []float32
	Text       string
	Source     string
	ChunkIndex int
	StartWord  int
	EndWord    int
}
