// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for folio chunk embeddings.
	DefaultCollectionName = "folio"

	// metadata keys attached to every stored embedding.
	metaSentence = "sentence"
	metaPDFID    = "pdf_id"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL        string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	logger         *zap.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// CollectionName is the name of the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// MaxRetries bounds the startup connection attempts. Defaults to 3.
	MaxRetries int

	// RetryDelay is the initial delay between connection attempts.
	// Defaults to 2s.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff between connection attempts.
	// Defaults to 16s.
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver. The collection is resolved
// (or created) eagerly so a misconfigured or unreachable store fails at
// startup rather than on the first request; transient connection failures
// are retried with capped exponential backoff.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	collectionName := c.CollectionName
	if collectionName == "" {
		collectionName = DefaultCollectionName
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := c.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 2 * time.Second
	}
	maxRetryDelay := c.MaxRetryDelay
	if maxRetryDelay <= 0 {
		maxRetryDelay = 16 * time.Second
	}

	d := &Driver{
		baseURL:        c.URL,
		collectionName: collectionName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}

	var collectionID string
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		collectionID, err = d.getOrCreateCollection(context.Background())
		if err == nil {
			break
		}

		if attempt == maxRetries {
			return nil, fmt.Errorf("%w: connecting to chroma after %d attempts: %v",
				vector.ErrConnection, maxRetries, err)
		}

		delay := min(retryDelay<<(attempt-1), maxRetryDelay)
		logger.Warn("chroma not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	d.collectionID = collectionID

	logger.Info("connected to Chroma",
		zap.String("url", c.URL),
		zap.String("collection", collectionName),
		zap.String("collection_id", collectionID),
	)

	return d, nil
}

// getOrCreateCollection gets an existing collection or creates a new one.
func (d *Driver) getOrCreateCollection(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s", d.baseURL, d.collectionName)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var collection chromaCollection
		if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
			return "", fmt.Errorf("decoding collection response: %w", err)
		}
		return collection.ID, nil
	}

	// Collection doesn't exist, create it. The HNSW space must be cosine;
	// Chroma defaults to l2, which ranks unnormalized embeddings differently.
	createURL := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections", d.baseURL)
	createBody := chromaCreateRequest{
		Name: d.collectionName,
		Configuration: &chromaConfiguration{
			HNSW: &chromaHNSWConfig{Space: "cosine"},
		},
	}
	jsonBody, err := json.Marshal(createBody)
	if err != nil {
		return "", fmt.Errorf("marshaling create request: %w", err)
	}

	req, err = http.NewRequestWithContext(ctx, "POST", createURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("creating create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err = d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending create request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to create collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}

	return collection.ID, nil
}

// post sends a JSON body to a collection sub-endpoint and decodes the
// response into out when out is non-nil.
func (d *Driver) post(ctx context.Context, action string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", action, err)
	}

	url := fmt.Sprintf("%s/api/v2/tenants/default_tenant/databases/default_database/collections/%s/%s", d.baseURL, d.collectionID, action)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending %s request: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s failed: status %d: %s", action, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", action, err)
	}
	return nil
}

// Upsert inserts records, replacing any existing record with the same ID.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	metadatas := make([]map[string]any, len(records))

	for i, r := range records {
		ids[i] = r.ID
		embeddings[i] = r.Vector
		metadatas[i] = map[string]any{
			metaSentence: r.Sentence,
			metaPDFID:    r.PDFID,
		}
	}

	err := d.post(ctx, "upsert", chromaAddRequest{
		IDs:        ids,
		Embeddings: embeddings,
		Metadatas:  metadatas,
	}, nil)
	if err != nil {
		return err
	}

	d.logger.Debug("upserted records to chroma",
		zap.Int("count", len(records)),
	)

	return nil
}

// DeleteDocument removes every record whose pdf_id metadata matches.
func (d *Driver) DeleteDocument(ctx context.Context, pdfID string) error {
	err := d.post(ctx, "delete", chromaDeleteRequest{
		Where: map[string]any{metaPDFID: pdfID},
	}, nil)
	if err != nil {
		return err
	}

	d.logger.Debug("deleted document records from chroma",
		zap.String("pdf_id", pdfID),
	)

	return nil
}

// Query returns up to topK records nearest to vec, optionally restricted to
// one PDF via a metadata equality filter.
func (d *Driver) Query(ctx context.Context, vec []float32, topK int, pdfID string) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	reqBody := chromaQueryRequest{
		QueryEmbeddings: [][]float32{vec},
		NResults:        topK,
		Include:         []string{"metadatas", "distances"},
	}
	if pdfID != "" {
		reqBody.Where = map[string]any{metaPDFID: pdfID}
	}

	var queryResp chromaQueryResponse
	if err := d.post(ctx, "query", reqBody, &queryResp); err != nil {
		return nil, err
	}

	var matches []vector.Match

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return matches, nil
	}

	ids := queryResp.IDs[0]
	distances := queryResp.Distances[0]

	var metadatas []map[string]any
	if len(queryResp.Metadatas) > 0 {
		metadatas = queryResp.Metadatas[0]
	}

	for i, id := range ids {
		m := vector.Match{ID: id}

		if i < len(metadatas) && metadatas[i] != nil {
			m.Sentence, _ = metadatas[i][metaSentence].(string)
			m.PDFID, _ = metadatas[i][metaPDFID].(string)
		}

		// Cosine distance is 1 - cosine similarity.
		if i < len(distances) {
			m.Score = 1.0 - distances[i]
		}

		matches = append(matches, m)
	}

	d.logger.Debug("queried chroma",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// ListDocuments enumerates the distinct pdf_id values present in the collection.
func (d *Driver) ListDocuments(ctx context.Context) ([]string, error) {
	var getResp chromaGetResponse
	err := d.post(ctx, "get", chromaGetRequest{
		Include: []string{"metadatas"},
	}, &getResp)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, md := range getResp.Metadatas {
		if md == nil {
			continue
		}
		if pdfID, ok := md[metaPDFID].(string); ok && !seen[pdfID] {
			seen[pdfID] = true
			ids = append(ids, pdfID)
		}
	}
	return ids, nil
}

// Peek returns up to limit of a PDF's records without similarity ranking.
func (d *Driver) Peek(ctx context.Context, pdfID string, limit int) ([]vector.Match, error) {
	var getResp chromaGetResponse
	err := d.post(ctx, "get", chromaGetRequest{
		Where:   map[string]any{metaPDFID: pdfID},
		Limit:   limit,
		Include: []string{"metadatas"},
	}, &getResp)
	if err != nil {
		return nil, err
	}

	matches := make([]vector.Match, 0, len(getResp.IDs))
	for i, id := range getResp.IDs {
		m := vector.Match{ID: id}
		if i < len(getResp.Metadatas) && getResp.Metadatas[i] != nil {
			m.Sentence, _ = getResp.Metadatas[i][metaSentence].(string)
			m.PDFID, _ = getResp.Metadatas[i][metaPDFID].(string)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
