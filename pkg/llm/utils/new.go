// Package llmutils is the generation provider utility package
package llmutils

import (
	"fmt"

	"github.com/papernoteco/folio/pkg/llm"
	"github.com/papernoteco/folio/pkg/llm/huggingface"
	"github.com/papernoteco/folio/pkg/llm/ollama"
	"github.com/papernoteco/folio/pkg/llm/openai"
)

type NewGeneratorOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
}

func NewGenerator(o *NewGeneratorOpts) (llm.Generator, error) {
	switch o.ProviderType {
	case "huggingface":
		return huggingface.NewGenerator(huggingface.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
			APIKey:  o.APIKey,
		})
	case "ollama":
		return ollama.NewGenerator(ollama.Config{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		return openai.NewGenerator(openai.Config{
			APIKey: o.APIKey,
			Model:  o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", o.ProviderType)
	}
}
