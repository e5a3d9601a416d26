package testutils

import (
	"context"
	"fmt"

	"github.com/papernoteco/folio/pkg/llm"
)

// MockGenerator is a test generator that records its prompts
type MockGenerator struct {
	// Answer is returned from every Generate call.
	Answer string

	// Err, when set, is returned instead.
	Err error

	// Prompts collects every prompt passed to Generate.
	Prompts []string

	// Opts collects the options of every Generate call.
	Opts []llm.Options
}

func NewMockGenerator(answer string) *MockGenerator {
	return &MockGenerator{Answer: answer}
}

func (m *MockGenerator) Generate(_ context.Context, prompt string, opts llm.Options) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	m.Opts = append(m.Opts, opts)
	if m.Err != nil {
		return "", fmt.Errorf("mock generation failure: %w", m.Err)
	}
	return m.Answer, nil
}

func (m *MockGenerator) Close() error {
	return nil
}
