package vector

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultBatchSize is the number of records written per upsert batch.
	DefaultBatchSize = 50

	// DefaultMaxRetries is the per-batch retry budget.
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the initial delay between retry attempts.
	DefaultRetryDelay = 2 * time.Second

	// DefaultMaxRetryDelay caps the exponential backoff.
	DefaultMaxRetryDelay = 16 * time.Second
)

// WritePolicy controls batching and retry behavior for index writes.
// The zero value is replaced by the defaults above.
type WritePolicy struct {
	BatchSize     int
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// DefaultWritePolicy returns the standard write policy.
func DefaultWritePolicy() WritePolicy {
	return WritePolicy{
		BatchSize:     DefaultBatchSize,
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
	}
}

func (p WritePolicy) withDefaults() WritePolicy {
	if p.BatchSize <= 0 {
		p.BatchSize = DefaultBatchSize
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = DefaultMaxRetries
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.MaxRetryDelay <= 0 {
		p.MaxRetryDelay = DefaultMaxRetryDelay
	}
	return p
}

// backoff returns the delay before retry attempt n (1-based): exponential
// growth capped at MaxRetryDelay, with up to 25% random jitter added so
// concurrent writers don't retry in lockstep.
func (p WritePolicy) backoff(attempt int) time.Duration {
	d := p.RetryDelay << (attempt - 1)
	if d > p.MaxRetryDelay || d <= 0 {
		d = p.MaxRetryDelay
	}
	return d + time.Duration(rand.Int63n(int64(d)/4+1))
}

// Index wraps a Driver with the document replace protocol: whole-document
// replacement, fixed-size batched writes with bounded retry, and
// per-document serialization of concurrent replaces.
//
// Serialization closes the race where two simultaneous uploads of the same
// PDF interleave their delete and insert phases. The transient window during
// a single replace, where a concurrent query observes a partially-populated
// document, remains.
type Index struct {
	driver Driver
	policy WritePolicy
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIndex creates an Index over the given driver.
func NewIndex(driver Driver, policy WritePolicy, logger *zap.Logger) *Index {
	return &Index{
		driver: driver,
		policy: policy.withDefaults(),
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// docLock returns the mutex serializing replace operations for one PDF id.
func (ix *Index) docLock(pdfID string) *sync.Mutex {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	l, ok := ix.locks[pdfID]
	if !ok {
		l = &sync.Mutex{}
		ix.locks[pdfID] = l
	}
	return l
}

// Replace atomically-in-intent swaps a PDF's record set: it deletes every
// existing record for the id, then inserts records in fixed-size batches.
// A delete failure is logged and not surfaced, matching the idempotent
// no-op contract for PDFs with no existing records. A batch that fails all
// its retry attempts aborts the operation with ErrWrite; batches committed
// before the failure are not rolled back, so the PDF may be left partially
// indexed until the next successful upload of the same id.
func (ix *Index) Replace(ctx context.Context, pdfID string, records []Record) error {
	l := ix.docLock(pdfID)
	l.Lock()
	defer l.Unlock()

	if err := ix.driver.DeleteDocument(ctx, pdfID); err != nil {
		ix.logger.Warn("deleting existing records",
			zap.String("pdf_id", pdfID),
			zap.Error(err),
		)
	}

	for start := 0; start < len(records); start += ix.policy.BatchSize {
		end := min(start+ix.policy.BatchSize, len(records))

		batch := records[start:end]
		if err := ix.upsertWithRetry(ctx, batch); err != nil {
			return fmt.Errorf("%w: batch %d of pdf %q: %v",
				ErrWrite, start/ix.policy.BatchSize+1, pdfID, err)
		}

		ix.logger.Debug("upserted batch",
			zap.String("pdf_id", pdfID),
			zap.Int("batch", start/ix.policy.BatchSize+1),
			zap.Int("records", len(batch)),
		)
	}

	ix.logger.Info("replaced document records",
		zap.String("pdf_id", pdfID),
		zap.Int("records", len(records)),
	)

	return nil
}

// upsertWithRetry writes one batch, retrying transient failures with capped
// exponential backoff.
func (ix *Index) upsertWithRetry(ctx context.Context, batch []Record) error {
	var lastErr error

	for attempt := 1; attempt <= ix.policy.MaxRetries; attempt++ {
		lastErr = ix.driver.Upsert(ctx, batch)
		if lastErr == nil {
			return nil
		}

		if attempt == ix.policy.MaxRetries {
			break
		}

		delay := ix.policy.backoff(attempt)
		ix.logger.Warn("batch upsert failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", ix.policy.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("after %d attempts: %w", ix.policy.MaxRetries, lastErr)
}

// Search returns the topK nearest matches for vec within one PDF.
func (ix *Index) Search(ctx context.Context, vec []float32, topK int, pdfID string) ([]Match, error) {
	return ix.driver.Query(ctx, vec, topK, pdfID)
}

// Documents enumerates the distinct PDF ids present in the index.
func (ix *Index) Documents(ctx context.Context) ([]string, error) {
	return ix.driver.ListDocuments(ctx)
}

// Peek returns up to limit of a PDF's records without similarity ranking.
func (ix *Index) Peek(ctx context.Context, pdfID string, limit int) ([]Match, error) {
	return ix.driver.Peek(ctx, pdfID, limit)
}

// Close releases the underlying driver.
func (ix *Index) Close() error {
	return ix.driver.Close()
}
