// Package embeddings
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding is returned when embedding generation fails.
var ErrEmbedding = errors.New("embedding failed")

// Embedder provides text embedding capabilities.
//
// Implementations are expected to be deterministic for a fixed model:
// embedding the same text twice yields the same vector. The vector dimension
// is fixed per model; every record in a vector index must share it.
type Embedder interface {
	// Embed converts a batch of texts into vector embeddings, one vector
	// per input text, order preserved.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
