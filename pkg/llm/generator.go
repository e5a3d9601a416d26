// Package llm provides the answer-generation interface and shared types for
// the text generation providers under pkg/llm/.
package llm

import (
	"context"
	"errors"
)

// ErrGeneration is returned when the generative model call fails.
var ErrGeneration = errors.New("text generation failed")

// Options control a single generation call. The generator is stateless; no
// conversation history is retained between calls.
type Options struct {
	// MaxTokens caps the generated output length.
	MaxTokens uint

	// Temperature controls sampling randomness.
	Temperature float64
}

// Generator produces a completion for a fully-assembled prompt.
type Generator interface {
	// Generate invokes the model with the prompt and returns the raw
	// generated text.
	Generate(ctx context.Context, prompt string, opts Options) (string, error)

	// Close releases any resources held by the generator.
	Close() error
}
