// Package generate invokes the LLM that drafts answers. The pipeline treats it
// as a black box returning text plus usage and timing metrics.
package generate

import (
	"context"
	"sync"
	"time"
)

// Result is one generation outcome.
type Result struct {
	Text         string
	Model        string
	PromptTokens int32
	OutputTokens int32
	Duration     time.Duration
}

// Generator produces a draft answer from an assembled prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Result, error)
}

// MockGenerator is a canned generator for tests. It records every prompt it
// receives and returns Text or Err.
type MockGenerator struct {
	Text string
	Err  error

	mu      sync.Mutex
	prompts []string
}

// Generate returns the canned result after recording the prompt.
func (g *MockGenerator) Generate(ctx context.Context, prompt string) (*Result, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()

	if g.Err != nil {
		return nil, g.Err
	}
	return &Result{
		Text:         g.Text,
		Model:        "mock",
		PromptTokens: int32(len(prompt) / 4),
		OutputTokens: int32(len(g.Text) / 4),
	}, nil
}

// Prompts returns the prompts seen so far.
func (g *MockGenerator) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.prompts))
	copy(out, g.prompts)
	return out
}
