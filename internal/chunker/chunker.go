// Package chunker splits extracted document text into overlapping word-bounded
// segments with positional metadata.
package chunker

import (
	"fmt"
	"strings"

	"github.com/sd031/ai-document-helper/internal/domain"
)

// Default window parameters, matching the reference deployment.
const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

// Chunker emits fixed-size overlapping word windows over a text.
type Chunker struct {
	size    int
	overlap int
}

// New validates the window parameters and creates a Chunker.
// overlap >= size would produce a non-advancing window, so it is rejected here,
// before any document is processed.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", size, domain.ErrChunkConfig)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d: %w", overlap, domain.ErrChunkConfig)
	}
	if overlap >= size {
		return nil, fmt.Errorf(
			"chunk overlap %d must be smaller than chunk size %d: %w",
			overlap, size, domain.ErrChunkConfig,
		)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the configured window size in words.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap in words.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text on whitespace and emits windows of up to size words,
// advancing the window start by size-overlap words. Consecutive chunks share
// overlap words; the final chunk may be shorter. A trailing window that would
// carry only words already covered by the previous chunk is not emitted.
// Empty or whitespace-only text yields no chunks. The output is deterministic
// for a given text.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	chunks := make([]domain.Chunk, 0, (len(words)+stride-1)/stride)

	for start := 0; start == 0 || start < len(words)-c.overlap; start += stride {
		end := start + c.size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, domain.Chunk{
			ID:        len(chunks),
			Text:      strings.Join(words[start:end], " "),
			StartWord: start,
			EndWord:   end,
		})
	}

	return chunks
}
