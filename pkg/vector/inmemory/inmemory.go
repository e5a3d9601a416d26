// Package inmemory provides a brute-force in-memory vector driver for
// development and tests.
package inmemory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/papernoteco/folio/pkg/vector"
)

// Driver implements vector.Driver with an in-process map and exhaustive
// cosine scan. Not suitable for large corpora; it exists so the service can
// run without an external store and so pipeline tests have a real index.
type Driver struct {
	mu      sync.RWMutex
	records map[string]vector.Record
	order   []string
}

// NewDriver creates an empty in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		records: make(map[string]vector.Record),
	}
}

// Upsert inserts records, replacing any existing record with the same ID.
func (d *Driver) Upsert(_ context.Context, records []vector.Record) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, r := range records {
		if _, exists := d.records[r.ID]; !exists {
			d.order = append(d.order, r.ID)
		}
		d.records[r.ID] = r
	}
	return nil
}

// DeleteDocument removes every record whose PDFID matches.
func (d *Driver) DeleteDocument(_ context.Context, pdfID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := d.order[:0]
	for _, id := range d.order {
		if d.records[id].PDFID == pdfID {
			delete(d.records, id)
			continue
		}
		kept = append(kept, id)
	}
	d.order = kept
	return nil
}

// Query returns up to topK records nearest to vec by cosine similarity.
func (d *Driver) Query(_ context.Context, vec []float32, topK int, pdfID string) ([]vector.Match, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	matches := make([]vector.Match, 0, len(d.records))
	for _, id := range d.order {
		r := d.records[id]
		if pdfID != "" && r.PDFID != pdfID {
			continue
		}
		matches = append(matches, vector.Match{
			ID:       r.ID,
			Score:    cosine(vec, r.Vector),
			Sentence: r.Sentence,
			PDFID:    r.PDFID,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// ListDocuments enumerates the distinct PDF ids present in the store.
func (d *Driver) ListDocuments(_ context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	seen := make(map[string]bool)
	ids := make([]string, 0)
	for _, id := range d.order {
		pdfID := d.records[id].PDFID
		if !seen[pdfID] {
			seen[pdfID] = true
			ids = append(ids, pdfID)
		}
	}
	return ids, nil
}

// Peek returns up to limit of a PDF's records in insertion order.
func (d *Driver) Peek(_ context.Context, pdfID string, limit int) ([]vector.Match, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	matches := make([]vector.Match, 0, limit)
	for _, id := range d.order {
		r := d.records[id]
		if r.PDFID != pdfID {
			continue
		}
		matches = append(matches, vector.Match{
			ID:       r.ID,
			Sentence: r.Sentence,
			PDFID:    r.PDFID,
		})
		if limit > 0 && len(matches) == limit {
			break
		}
	}
	return matches, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return nil
}

// cosine computes the cosine similarity of two vectors. Mismatched or
// zero-magnitude vectors score zero.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
