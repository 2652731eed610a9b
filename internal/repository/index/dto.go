package index

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/sd031/ai-document-helper/internal/domain"
)

// Hash field names for indexed points. The FT schema in repo.go and the RETURN
// list in Search must stay in sync with these.
const (
	fieldVector     = "vector"
	fieldText       = "text"
	fieldSource     = "source"
	fieldChunkIndex = "chunk_index"
	fieldStartWord  = "start_word"
	fieldEndWord    = "end_word"
)

// buildPointFields converts an IndexedPoint into a flat map[string]string for HSET.
func buildPointFields(p domain.IndexedPoint) map[string]string {
	return map[string]string{
		fieldVector:     vectorToBytes(p.Vector),
		fieldText:       p.Text,
		fieldSource:     p.Source,
		fieldChunkIndex: strconv.Itoa(p.ChunkIndex),
		fieldStartWord:  strconv.Itoa(p.StartWord),
		fieldEndWord:    strconv.Itoa(p.EndWord),
	}
}

// parseContext converts a search entry's fields into a RetrievedContext.
func parseContext(fields map[string]string, score float64) domain.RetrievedContext {
	chunkIndex, _ := strconv.Atoi(fields[fieldChunkIndex])
	return domain.RetrievedContext{
		Text:       fields[fieldText],
		Source:     fields[fieldSource],
		Score:      score,
		ChunkIndex: chunkIndex,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
