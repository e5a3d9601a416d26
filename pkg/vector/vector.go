// Package vector provides interfaces and implementations for storing and
// searching document chunk embeddings, partitioned by PDF id.
package vector

import (
	"context"
	"errors"
)

var (
	// ErrWrite is returned when a batch insert fails after exhausting its
	// retry budget. Batches committed before the failure stay committed.
	ErrWrite = errors.New("vector store write failed")

	// ErrConnection is returned when the vector store cannot be reached.
	ErrConnection = errors.New("vector store connection failed")
)

// Record is the persisted unit: one embedded sentence chunk of a PDF.
type Record struct {
	// ID is unique within the store, formed as "{pdfID}_{chunkIndex}".
	ID string

	// Vector is the embedding of Sentence. Its dimension is fixed for the
	// lifetime of the index and shared by all records.
	Vector []float32

	// Sentence is the chunk text the vector was computed from.
	Sentence string

	// PDFID is the partition key. A PDF exists in the index exactly when at
	// least one record carries its id.
	PDFID string
}

// Match is a similarity query result.
type Match struct {
	ID       string  `json:"id"`
	Score    float32 `json:"score"`
	Sentence string  `json:"sentence"`
	PDFID    string  `json:"pdf_id"`
}

// Driver is the raw storage contract implemented by each vector store
// backend. Replace semantics, batching, and retries live above the driver
// in Index.
type Driver interface {
	// Upsert inserts records, replacing any existing record with the same ID.
	Upsert(ctx context.Context, records []Record) error

	// DeleteDocument removes every record whose PDFID matches. Deleting a
	// PDF with no records is a no-op, not an error.
	DeleteDocument(ctx context.Context, pdfID string) error

	// Query returns up to topK records nearest to vec by cosine similarity,
	// ordered by descending score. A non-empty pdfID restricts the search
	// to that PDF's records.
	Query(ctx context.Context, vec []float32, topK int, pdfID string) ([]Match, error)

	// ListDocuments enumerates the distinct PDF ids present in the store.
	ListDocuments(ctx context.Context) ([]string, error)

	// Peek returns up to limit of a PDF's records in storage order, without
	// similarity ranking. Used for debugging and existence inspection.
	Peek(ctx context.Context, pdfID string, limit int) ([]Match, error)

	// Close releases any resources held by the driver.
	Close() error
}
