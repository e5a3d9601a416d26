// Package rag implements the retrieval-augmented question answering
// pipeline: ingesting PDF text into the vector index and answering
// questions against a single document's indexed chunks.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/chunk"
	"github.com/papernoteco/folio/pkg/embeddings"
	"github.com/papernoteco/folio/pkg/llm"
	"github.com/papernoteco/folio/pkg/vector"
)

const (
	// DefaultTopK is the number of chunks retrieved per question.
	DefaultTopK = 5

	// DefaultMaxTokens caps the generated answer length.
	DefaultMaxTokens = 500

	// DefaultTemperature is the generation sampling temperature.
	DefaultTemperature = 0.7
)

// ErrNoMatches is returned when a question retrieves no relevant chunks
// from an indexed PDF.
var ErrNoMatches = errors.New("no relevant content found")

// NotFoundError is returned when a question targets a PDF id that has no
// records in the index. Known carries the ids that are indexed so callers
// can surface them.
type NotFoundError struct {
	PDFID string
	Known []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no data found for pdf %q, indexed pdfs: %v", e.PDFID, e.Known)
}

// Pipeline wires chunking, embedding, vector search, and generation into
// the two top-level operations: Ingest and Answer.
type Pipeline struct {
	index     *vector.Index
	embedder  embeddings.Embedder
	generator llm.Generator
	logger    *zap.Logger

	topK int
	opts llm.Options
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTopK overrides the number of chunks retrieved per question.
func WithTopK(k int) Option {
	return func(p *Pipeline) {
		if k > 0 {
			p.topK = k
		}
	}
}

// WithGeneration overrides the answer generation options.
func WithGeneration(opts llm.Options) Option {
	return func(p *Pipeline) {
		if opts.MaxTokens > 0 {
			p.opts.MaxTokens = opts.MaxTokens
		}
		if opts.Temperature > 0 {
			p.opts.Temperature = opts.Temperature
		}
	}
}

// NewPipeline creates a Pipeline over the given index, embedder, and
// generator.
func NewPipeline(index *vector.Index, embedder embeddings.Embedder, generator llm.Generator, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		index:     index,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
		topK:      DefaultTopK,
		opts: llm.Options{
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Ingest chunks text, embeds every chunk in one batch, and replaces the
// PDF's record set in the index. Re-ingesting an id replaces its previous
// content entirely. Returns the number of chunks indexed.
func (p *Pipeline) Ingest(ctx context.Context, pdfID, text string) (int, error) {
	sentences, err := chunk.Split(text)
	if err != nil {
		return 0, fmt.Errorf("chunking pdf %q: %w", pdfID, err)
	}

	vectors, err := p.embedder.Embed(ctx, sentences)
	if err != nil {
		return 0, fmt.Errorf("embedding %d chunks of pdf %q: %w", len(sentences), pdfID, err)
	}
	if len(vectors) != len(sentences) {
		return 0, fmt.Errorf("%w: got %d vectors for %d chunks",
			embeddings.ErrEmbedding, len(vectors), len(sentences))
	}

	records := make([]vector.Record, len(sentences))
	for i, sentence := range sentences {
		records[i] = vector.Record{
			ID:       fmt.Sprintf("%s_%d", pdfID, i),
			Vector:   vectors[i],
			Sentence: sentence,
			PDFID:    pdfID,
		}
	}

	if err := p.index.Replace(ctx, pdfID, records); err != nil {
		return 0, fmt.Errorf("indexing pdf %q: %w", pdfID, err)
	}

	p.logger.Info("ingested pdf",
		zap.String("pdf_id", pdfID),
		zap.Int("chunks", len(records)),
	)

	return len(records), nil
}

// Retrieve embeds the question and returns the text of its topK nearest
// chunks within one PDF, ordered by descending similarity. Returns a
// NotFoundError when the PDF is not indexed and ErrNoMatches when the
// search comes back empty.
func (p *Pipeline) Retrieve(ctx context.Context, pdfID, question string) ([]string, error) {
	vectors, err := p.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one question",
			embeddings.ErrEmbedding, len(vectors))
	}

	known, err := p.index.Documents(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing indexed pdfs: %w", err)
	}
	found := false
	for _, id := range known {
		if id == pdfID {
			found = true
			break
		}
	}
	if !found {
		return nil, &NotFoundError{PDFID: pdfID, Known: known}
	}

	matches, err := p.index.Search(ctx, vectors[0], p.topK, pdfID)
	if err != nil {
		return nil, fmt.Errorf("searching pdf %q: %w", pdfID, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: pdf %q", ErrNoMatches, pdfID)
	}

	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Sentence
	}

	p.logger.Debug("retrieved context",
		zap.String("pdf_id", pdfID),
		zap.Int("chunks", len(texts)),
	)

	return texts, nil
}

// Answer retrieves the question's relevant chunks and generates an answer
// grounded in them. The returned answer is whitespace-trimmed.
func (p *Pipeline) Answer(ctx context.Context, pdfID, question string) (string, error) {
	texts, err := p.Retrieve(ctx, pdfID, question)
	if err != nil {
		return "", err
	}

	prompt := BuildPrompt(texts, question)

	answer, err := p.generator.Generate(ctx, prompt, p.opts)
	if err != nil {
		return "", fmt.Errorf("generating answer: %w", err)
	}

	p.logger.Info("answered question",
		zap.String("pdf_id", pdfID),
		zap.Int("context_chunks", len(texts)),
	)

	return strings.TrimSpace(answer), nil
}

// BuildPrompt assembles the generation prompt from the retrieved chunk
// texts and the question. Chunks are joined in retrieval order so the most
// relevant context comes first.
func BuildPrompt(texts []string, question string) string {
	var b strings.Builder
	b.WriteString("Based on the following context:\n")
	b.WriteString(strings.Join(texts, ". "))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nProvide a clear answer based on the information in the context. ")
	b.WriteString("If the answer cannot be determined from the context, say so and answer from general knowledge.")
	return b.String()
}
