// Package huggingface implements pkg/llm's Generator on the Hugging Face
// serverless inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papernoteco/folio/pkg/llm"
)

const (
	// DefaultBaseURL is the Hugging Face inference API endpoint.
	DefaultBaseURL = "https://api-inference.huggingface.co"

	// DefaultModel is the default instruction-tuned generation model.
	DefaultModel = "mistralai/Mistral-7B-Instruct-v0.3"
)

// Generator wraps the Hugging Face text-generation inference API.
type Generator struct {
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

// Config holds configuration for the Hugging Face generator.
type Config struct {
	// BaseURL is the inference API URL. Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model is the hosted model id (e.g. "mistralai/Mistral-7B-Instruct-v0.3").
	// Defaults to DefaultModel if empty.
	Model string

	// APIKey is the Hugging Face access token. Required.
	APIKey string
}

// generateRequest is the request body for the text-generation task.
type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxNewTokens   uint    `json:"max_new_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	ReturnFullText bool    `json:"return_full_text"`
}

// generateResponse is a single candidate in the text-generation response.
type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// NewGenerator creates a generator backed by the Hugging Face inference API.
func NewGenerator(cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Hugging Face API key is required", llm.ErrGeneration)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL: baseURL,
		model:   model,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}, nil
}

// Generate invokes the model with the prompt and returns the generated text.
func (g *Generator) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	reqBody := generateRequest{
		Inputs: prompt,
		Parameters: generateParameters{
			MaxNewTokens:   opts.MaxTokens,
			Temperature:    opts.Temperature,
			ReturnFullText: false,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", llm.ErrGeneration, err)
	}

	url := fmt.Sprintf("%s/models/%s", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", llm.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", llm.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: hugging face returned status %d: %s", llm.ErrGeneration, resp.StatusCode, string(body))
	}

	var candidates []generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", llm.ErrGeneration, err)
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", llm.ErrGeneration)
	}

	return candidates[0].GeneratedText, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// Ensure Generator implements llm.Generator
var _ llm.Generator = (*Generator)(nil)
