// Package qdrant provides a Qdrant vector database driver implementation.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/vector"
)

const (
	// DefaultCollectionName is the default collection for folio chunk embeddings.
	DefaultCollectionName = "folio"

	// payload keys attached to every stored point.
	payloadID       = "id"
	payloadSentence = "sentence"
	payloadPDFID    = "pdf_id"

	// scrollPageSize is the page size for enumeration scans; ListDocuments
	// follows the scroll offset across pages.
	scrollPageSize = 10000
)

// Driver implements vector.Driver using Qdrant's gRPC API.
//
// Qdrant point ids must be UUIDs or integers, so each record id is mapped to
// a deterministic UUIDv5 and the external id travels in the payload. The
// mapping is stable: re-upserting the same record id overwrites the same point.
type Driver struct {
	client     *qdrant.Client
	collection string
	logger     *zap.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Host is the Qdrant gRPC host. Required.
	Host string

	// Port is the Qdrant gRPC port. Defaults to 6334.
	Port int

	// CollectionName is the collection to use.
	// Defaults to DefaultCollectionName if empty.
	CollectionName string

	// Dimensions is the embedding vector size, fixed for the lifetime of
	// the collection. Required when the collection does not exist yet.
	Dimensions uint

	// MaxRetries bounds the startup connection attempts. Defaults to 3.
	MaxRetries int

	// RetryDelay is the initial delay between connection attempts.
	// Defaults to 2s.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff between connection attempts.
	// Defaults to 16s.
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Qdrant vector driver. The collection is verified
// (or created with cosine distance) eagerly so an unreachable store fails at
// startup; transient connection failures are retried with capped backoff.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	port := c.Port
	if port == 0 {
		port = 6334
	}
	collection := c.CollectionName
	if collection == "" {
		collection = DefaultCollectionName
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

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: c.Host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: collection,
		logger:     logger,
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = d.ensureCollection(context.Background(), c.Dimensions)
		if err == nil {
			break
		}

		if attempt == maxRetries {
			return nil, fmt.Errorf("%w: connecting to qdrant after %d attempts: %v",
				vector.ErrConnection, maxRetries, err)
		}

		delay := min(retryDelay<<(attempt-1), maxRetryDelay)
		logger.Warn("qdrant not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}

	logger.Info("connected to Qdrant",
		zap.String("host", c.Host),
		zap.Int("port", port),
		zap.String("collection", collection),
	)

	return d, nil
}

// ensureCollection creates the collection with cosine distance when missing.
func (d *Driver) ensureCollection(ctx context.Context, dimensions uint) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("checking collection: %w", err)
	}
	if exists {
		return nil
	}

	err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %q: %w", d.collection, err)
	}
	return nil
}

// pointID derives the stable UUIDv5 point id for a record id.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String()
}

// documentFilter restricts an operation to one PDF's points.
func documentFilter(pdfID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(payloadPDFID, pdfID),
		},
	}
}

// Upsert inserts records, replacing any existing record with the same ID.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				payloadID:       r.ID,
				payloadSentence: r.Sentence,
				payloadPDFID:    r.PDFID,
			}),
		}
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	d.logger.Debug("upserted records to qdrant",
		zap.Int("count", len(records)),
	)

	return nil
}

// DeleteDocument removes every point whose pdf_id payload matches.
func (d *Driver) DeleteDocument(ctx context.Context, pdfID string) error {
	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelectorFilter(documentFilter(pdfID)),
	})
	if err != nil {
		return fmt.Errorf("deleting points for pdf %q: %w", pdfID, err)
	}

	d.logger.Debug("deleted document records from qdrant",
		zap.String("pdf_id", pdfID),
	)

	return nil
}

// Query returns up to topK points nearest to vec, optionally restricted to
// one PDF via a payload filter.
func (d *Driver) Query(ctx context.Context, vec []float32, topK int, pdfID string) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	req := &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if pdfID != "" {
		req.Filter = documentFilter(pdfID)
	}

	points, err := d.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	matches := make([]vector.Match, 0, len(points))
	for _, p := range points {
		matches = append(matches, vector.Match{
			ID:       p.Payload[payloadID].GetStringValue(),
			Score:    p.Score,
			Sentence: p.Payload[payloadSentence].GetStringValue(),
			PDFID:    p.Payload[payloadPDFID].GetStringValue(),
		})
	}

	d.logger.Debug("queried qdrant",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// ListDocuments enumerates the distinct pdf_id values present in the
// collection by scrolling the payload index page by page.
func (d *Driver) ListDocuments(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	ids := make([]string, 0)

	req := &qdrant.ScrollPoints{
		CollectionName: d.collection,
		Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
		WithPayload:    qdrant.NewWithPayloadInclude(payloadPDFID),
	}
	for {
		// The convenience Scroll wrapper drops the next-page offset, so
		// pagination goes through the points client directly.
		resp, err := d.client.GetPointsClient().Scroll(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("scrolling points: %w", err)
		}

		for _, p := range resp.GetResult() {
			pdfID := p.Payload[payloadPDFID].GetStringValue()
			if pdfID != "" && !seen[pdfID] {
				seen[pdfID] = true
				ids = append(ids, pdfID)
			}
		}

		next := resp.GetNextPageOffset()
		if next == nil {
			return ids, nil
		}
		req.Offset = next
	}
}

// Peek returns up to limit of a PDF's points without similarity ranking.
func (d *Driver) Peek(ctx context.Context, pdfID string, limit int) ([]vector.Match, error) {
	if limit <= 0 {
		limit = 10
	}

	points, err := d.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: d.collection,
		Filter:         documentFilter(pdfID),
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("scrolling points for pdf %q: %w", pdfID, err)
	}

	matches := make([]vector.Match, 0, len(points))
	for _, p := range points {
		matches = append(matches, vector.Match{
			ID:       p.Payload[payloadID].GetStringValue(),
			Sentence: p.Payload[payloadSentence].GetStringValue(),
			PDFID:    p.Payload[payloadPDFID].GetStringValue(),
		})
	}
	return matches, nil
}

// Close releases the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
