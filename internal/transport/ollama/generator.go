// Package ollama is a minimal client for the Ollama native API: non-streaming
// /api/generate for answers and /api/tags as the health probe.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sd031/ai-document-helper/internal/domain"
	"github.com/sd031/ai-document-helper/internal/metrics"
)

// Generator calls the Ollama generate API.
type Generator struct {
	baseURL string
	model   string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// Config holds the generation provider settings.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewGenerator creates an Ollama generation client. Each Generate call is
// bounded by cfg.Timeout; the underlying http.Client carries no timeout of
// its own so the per-request context stays the single source of truth.
func NewGenerator(cfg *Config) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		timeout: timeout,
		client:  &http.Client{},
		logger:  cfg.Logger,
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate implements domain.Generator: one non-streaming completion call.
// Returns domain.ErrGenerationUnavailable on a non-success status; a timeout
// surfaces as the context error so callers can tell the cases apart.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  g.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := g.client.Do(req)

	duration := time.Since(start)

	if err != nil {
		status := "error"
		if ctx.Err() != nil {
			status = "timeout"
			err = ctx.Err()
		}
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, status).Inc()
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "unavailable").Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Warn("Generation service returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return "", fmt.Errorf("generate status %d: %w", resp.StatusCode, domain.ErrGenerationUnavailable)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("decode generate response: %w", err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	return parsed.Response, nil
}

// HealthCheck probes /api/tags, the cheapest liveness endpoint Ollama has.
func (g *Generator) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("build tags request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("tags request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tags status %d: %w", resp.StatusCode, domain.ErrGenerationUnavailable)
	}
	return nil
}
