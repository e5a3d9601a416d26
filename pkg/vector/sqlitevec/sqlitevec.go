// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/vector"
)

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver creates a new SQLite vector driver backed by sqlite-vec.
func NewDriver(c Config, logger *zap.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("sqlite-vec embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", vector.ErrConnection, err)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite-vec not available: %v", vector.ErrConnection, err)
	}

	// vec0 virtual tables use integer rowids, so string record ids and
	// their metadata live in a mapping table keyed by the same rowid.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_chunks (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			chunk_id TEXT NOT NULL UNIQUE,
			pdf_id TEXT NOT NULL,
			sentence TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunks table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_vec_chunks_pdf ON vec_chunks(pdf_id)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating pdf index: %w", err)
	}

	// Create the vec0 virtual table for vector storage and KNN queries.
	// Matches rank by cosine distance, and the pdf_id partition key lets
	// KNN queries constrain to one document exactly.
	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_embeddings USING vec0(
			pdf_id text partition key,
			embedding float[%d] distance_metric=cosine
		)`,
		c.Dimensions,
	)
	if _, err := db.Exec(createVec); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating vec0 table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return &Driver{
		db:     db,
		logger: logger,
	}, nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Upsert inserts records, replacing any existing record with the same ID.
func (d *Driver) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		embBlob := serializeFloat32(r.Vector)

		var existingRowID int64
		err = tx.QueryRowContext(ctx,
			`SELECT rowid FROM vec_chunks WHERE chunk_id = ?`, r.ID,
		).Scan(&existingRowID)

		switch err {
		case nil:
			if _, err := tx.ExecContext(ctx,
				`UPDATE vec_chunks SET pdf_id = ?, sentence = ? WHERE rowid = ?`,
				r.PDFID, r.Sentence, existingRowID,
			); err != nil {
				return fmt.Errorf("updating chunk %s: %w", r.ID, err)
			}

			// vec0 does not support UPDATE, so replace via DELETE + INSERT.
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM vec_embeddings WHERE rowid = ?`, existingRowID,
			); err != nil {
				return fmt.Errorf("deleting old embedding for chunk %s: %w", r.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, pdf_id, embedding) VALUES (?, ?, ?)`,
				existingRowID, r.PDFID, embBlob,
			); err != nil {
				return fmt.Errorf("re-inserting embedding for chunk %s: %w", r.ID, err)
			}
		case sql.ErrNoRows:
			result, err := tx.ExecContext(ctx,
				`INSERT INTO vec_chunks(chunk_id, pdf_id, sentence) VALUES (?, ?, ?)`,
				r.ID, r.PDFID, r.Sentence,
			)
			if err != nil {
				return fmt.Errorf("inserting chunk %s: %w", r.ID, err)
			}

			rowID, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting rowid for chunk %s: %w", r.ID, err)
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO vec_embeddings(rowid, pdf_id, embedding) VALUES (?, ?, ?)`,
				rowID, r.PDFID, embBlob,
			); err != nil {
				return fmt.Errorf("inserting embedding for chunk %s: %w", r.ID, err)
			}
		default:
			return fmt.Errorf("checking for existing chunk %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("upserted records to sqlite-vec",
		zap.Int("count", len(records)),
	)

	return nil
}

// DeleteDocument removes every record whose pdf_id matches.
func (d *Driver) DeleteDocument(ctx context.Context, pdfID string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT rowid FROM vec_chunks WHERE pdf_id = ?`, pdfID,
	)
	if err != nil {
		return fmt.Errorf("querying rowids for deletion: %w", err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning rowid: %w", err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rowids: %w", err)
	}

	for _, rowID := range rowIDs {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM vec_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			return fmt.Errorf("deleting embedding rowid %d: %w", rowID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM vec_chunks WHERE pdf_id = ?`, pdfID,
	); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	d.logger.Debug("deleted document records from sqlite-vec",
		zap.String("pdf_id", pdfID),
		zap.Int("count", len(rowIDs)),
	)

	return nil
}

// Query returns up to topK records nearest to vec by cosine distance. When
// pdfID is set the KNN scan is constrained to that document's partition, so
// the filter is exact rather than a post-filter over global neighbors.
func (d *Driver) Query(ctx context.Context, vec []float32, topK int, pdfID string) ([]vector.Match, error) {
	if topK <= 0 {
		topK = 10
	}

	queryBlob := serializeFloat32(vec)

	query := `
		SELECT
			c.chunk_id,
			c.pdf_id,
			c.sentence,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`
	args := []any{queryBlob, topK}
	if pdfID != "" {
		query = `
		SELECT
			c.chunk_id,
			c.pdf_id,
			c.sentence,
			ve.distance
		FROM vec_embeddings ve
		INNER JOIN vec_chunks c ON c.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
			AND ve.pdf_id = ?
		ORDER BY ve.distance
	`
		args = append(args, pdfID)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []vector.Match
	for rows.Next() {
		var chunkID, chunkPDFID, sentence string
		var distance float64
		if err := rows.Scan(&chunkID, &chunkPDFID, &sentence, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		matches = append(matches, vector.Match{
			ID:       chunkID,
			PDFID:    chunkPDFID,
			Sentence: sentence,
			// Cosine distance is 1 - cosine similarity.
			Score: float32(1.0 - distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	d.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(matches)),
	)

	return matches, nil
}

// ListDocuments enumerates the distinct pdf_id values present in the store.
func (d *Driver) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT DISTINCT pdf_id FROM vec_chunks ORDER BY pdf_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var pdfID string
		if err := rows.Scan(&pdfID); err != nil {
			return nil, fmt.Errorf("scanning pdf id: %w", err)
		}
		ids = append(ids, pdfID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return ids, nil
}

// Peek returns up to limit of a PDF's records without similarity ranking.
func (d *Driver) Peek(ctx context.Context, pdfID string, limit int) ([]vector.Match, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT chunk_id, pdf_id, sentence
		FROM vec_chunks
		WHERE pdf_id = ?
		ORDER BY rowid
		LIMIT ?
	`, pdfID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]vector.Match, 0, limit)
	for rows.Next() {
		var m vector.Match
		if err := rows.Scan(&m.ID, &m.PDFID, &m.Sentence); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return matches, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
