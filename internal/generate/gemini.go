package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hyperjump/rirekisho/internal/config"
)

// GeminiGenerator drafts answers through the Gemini API. On transient provider
// failure it retries exactly once against the configured fallback model; a
// timeout is surfaced as a failure, never retried.
type GeminiGenerator struct {
	client        *genai.Client
	model         string
	fallbackModel string
	timeout       time.Duration
	logger        *zap.Logger
}

// Option configures a GeminiGenerator.
type Option func(*GeminiGenerator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *GeminiGenerator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGeminiGenerator creates a generator from the Gemini config section. The
// API key is read from the environment variable the config names.
func NewGeminiGenerator(ctx context.Context, apiKey string, cfg *config.GeminiConfig, opts ...Option) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	g := &GeminiGenerator{
		client:        client,
		model:         cfg.Model,
		fallbackModel: cfg.FallbackModel,
		timeout:       time.Duration(cfg.TimeoutSeconds) * time.Second,
		logger:        zap.NewNop(),
	}
	if g.timeout <= 0 {
		g.timeout = 60 * time.Second
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate sends the prompt to the primary model, falling back once.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	model := g.model
	var result *Result

	backoff := retry.WithMaxRetries(1, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, callErr := g.callModel(ctx, model, prompt)
		if callErr != nil {
			if ctx.Err() != nil {
				// Timed out or cancelled; retrying cannot help.
				return callErr
			}
			if g.fallbackModel != "" && model != g.fallbackModel {
				g.logger.Warn("generation failed, retrying on fallback model",
					zap.String("model", model),
					zap.String("fallback", g.fallbackModel),
					zap.Error(callErr))
				model = g.fallbackModel
				return retry.RetryableError(callErr)
			}
			return callErr
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (g *GeminiGenerator) callModel(ctx context.Context, model, prompt string) (*Result, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return nil, errors.New("gemini api returned empty response")
	}

	result := &Result{Text: text, Model: model}
	if resp.UsageMetadata != nil {
		result.PromptTokens = resp.UsageMetadata.PromptTokenCount
		result.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	return result, nil
}
