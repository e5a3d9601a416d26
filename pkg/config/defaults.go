package config

const (
	defaultAPIListen = ":5001"
	defaultTempDir   = ""

	defaultClientAPITarget = "http://localhost:5001"

	defaultVectorProvider   = "qdrant"
	defaultVectorTarget     = "localhost:6334"
	defaultVectorCollection = "folio"

	defaultEmbeddingProvider   = "ollama"
	defaultEmbeddingTarget     = "http://localhost:11434"
	defaultEmbeddingModel      = "all-minilm"
	defaultEmbeddingDimensions = 384

	defaultLLMProvider    = "huggingface"
	defaultLLMTarget      = "https://api-inference.huggingface.co"
	defaultLLMModel       = "mistralai/Mistral-7B-Instruct-v0.3"
	defaultLLMMaxTokens   = 500
	defaultLLMTemperature = 0.7
)

// defaultCORSOrigins are the browser origins allowed by default: the local
// Vite and CRA dev servers of the notes frontend.
var defaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
}

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen:      defaultAPIListen,
			CORSOrigins: append([]string(nil), defaultCORSOrigins...),
			TempDir:     defaultTempDir,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
		},
		Embedding: EmbeddingConfig{
			Provider:   defaultEmbeddingProvider,
			Target:     defaultEmbeddingTarget,
			Model:      defaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		LLM: LLMConfig{
			Provider:    defaultLLMProvider,
			Target:      defaultLLMTarget,
			Model:       defaultLLMModel,
			MaxTokens:   defaultLLMMaxTokens,
			Temperature: defaultLLMTemperature,
		},
	}
}
