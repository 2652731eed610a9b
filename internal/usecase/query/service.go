// Package query answers questions over the indexed documents: retrieve the
// top-k chunks by cosine similarity, then synthesize a grounded answer.
//
// The query path never fails outward. Retrieval trouble degrades to zero
// contexts, generation trouble degrades to a fixed fallback answer, and the
// source attributions are always derived from whatever contexts were
// retrieved.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sd031/ai-document-helper/internal/domain"
	"github.com/sd031/ai-document-helper/internal/logger"
)

// Answer strings returned when generation cannot produce a real answer.
const (
	answerNoContext   = "I couldn't find any relevant information in the documents to answer your question."
	answerEmpty       = "Sorry, I couldn't generate an answer."
	answerUnavailable = "Sorry, the AI service is currently unavailable."
	answerTimeout     = "Sorry, the request timed out. Please try again."
	answerErrorFmt    = "Sorry, an error occurred: %v"
)

const promptTemplate = `Based on the following context, answer the question. If the answer cannot be found in the context, say so.

Context:
%s

Question: %s

Answer:`

// Service handles question answering.
type Service struct {
	embedder  Embedder
	index     Index
	generator Generator
	topK      int
}

// New creates a query service. topK is the default number of contexts a
// question retrieves when the request does not carry its own.
func New(embedder Embedder, index Index, generator Generator, topK int) *Service {
	return &Service{
		embedder:  embedder,
		index:     index,
		generator: generator,
		topK:      topK,
	}
}

// Ask retrieves up to topK contexts for the question and synthesizes an
// answer. topK <= 0 falls back to the configured default. The returned
// QueryResult always has a populated Answer and one source entry per
// retrieved context, in rank order.
func (s *Service) Ask(ctx context.Context, question string, topK int) (domain.QueryResult, error) {
	if topK <= 0 {
		topK = s.topK
	}
	contexts := s.retrieve(ctx, question, topK)

	answer := s.synthesize(ctx, question, contexts)

	sources := make([]domain.Source, 0, len(contexts))
	for _, c := range contexts {
		sources = append(sources, domain.SourceFromContext(c))
	}

	return domain.QueryResult{Answer: answer, Sources: sources}, nil
}

// retrieve embeds the question and runs one KNN search. Any failure here is
// graceful degradation: log and answer from zero contexts rather than erroring
// the request.
func (s *Service) retrieve(ctx context.Context, question string, topK int) []domain.RetrievedContext {
	log := logger.FromContext(ctx)

	batch, err := s.embedder.BatchEmbed(ctx, []string{question})
	if err != nil {
		log.Warn("Question embedding failed, answering without context", zap.Error(err))
		return nil
	}
	if len(batch.Embeddings) != 1 {
		log.Warn("Question embedding returned unexpected batch size",
			zap.Int("vectors", len(batch.Embeddings)))
		return nil
	}

	contexts, err := s.index.Search(ctx, batch.Embeddings[0], topK)
	if err != nil {
		log.Warn("Context retrieval failed, answering without context", zap.Error(err))
		return nil
	}

	return contexts
}

// synthesize produces the answer text. Empty contexts short-circuit to the
// fixed no-context answer without calling the generator at all.
func (s *Service) synthesize(ctx context.Context, question string, contexts []domain.RetrievedContext) string {
	if len(contexts) == 0 {
		return answerNoContext
	}

	answer, err := s.generator.Generate(ctx, buildPrompt(question, contexts))
	if err != nil {
		return fallbackAnswer(err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return answerEmpty
	}
	return answer
}

// buildPrompt assembles the grounded prompt: each context labeled with its
// source document, blocks separated by blank lines.
func buildPrompt(question string, contexts []domain.RetrievedContext) string {
	blocks := make([]string, len(contexts))
	for i, c := range contexts {
		blocks[i] = fmt.Sprintf("[Source: %s]\n%s", c.Source, c.Text)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(blocks, "\n\n"), question)
}

// fallbackAnswer maps a generation error to its fixed user-facing string.
func fallbackAnswer(err error) string {
	switch {
	case errors.Is(err, domain.ErrGenerationUnavailable):
		return answerUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return answerTimeout
	default:
		return fmt.Sprintf(answerErrorFmt, err)
	}
}
