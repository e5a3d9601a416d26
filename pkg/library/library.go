// Package library keeps the catalog of uploaded PDFs: filenames, notes,
// favorites, and access times. The vector index holds the searchable
// content; the library holds everything about a PDF that is not a vector.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a PDF id has no library entry.
var ErrNotFound = errors.New("pdf not in library")

// Entry is one cataloged PDF.
type Entry struct {
	PDFID        string    `json:"pdf_id"`
	Filename     string    `json:"filename"`
	Notes        string    `json:"notes"`
	Favorite     bool      `json:"favorite"`
	UploadedAt   time.Time `json:"uploaded_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

// Library is a SQLite-backed PDF catalog.
type Library struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens (or creates) the library database at dbPath. Use ":memory:"
// for an in-memory database.
func New(dbPath string, logger *zap.Logger) (*Library, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS pdfs (
			pdf_id TEXT PRIMARY KEY,
			filename TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			favorite INTEGER NOT NULL DEFAULT 0,
			uploaded_at TIMESTAMP NOT NULL,
			last_accessed TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating pdfs table: %w", err)
	}

	logger.Info("library opened",
		zap.String("db_path", dbPath),
	)

	return &Library{db: db, logger: logger}, nil
}

// Record registers an upload: it creates the entry if missing, otherwise
// updates the filename and upload time while keeping notes and favorite.
func (l *Library) Record(ctx context.Context, pdfID, filename string) error {
	now := time.Now().UTC()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO pdfs (pdf_id, filename, uploaded_at, last_accessed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(pdf_id) DO UPDATE SET
			filename = excluded.filename,
			uploaded_at = excluded.uploaded_at,
			last_accessed = excluded.last_accessed
	`, pdfID, filename, now, now)
	if err != nil {
		return fmt.Errorf("recording pdf %q: %w", pdfID, err)
	}

	l.logger.Debug("recorded pdf upload",
		zap.String("pdf_id", pdfID),
		zap.String("filename", filename),
	)

	return nil
}

// Touch bumps a PDF's last access time. Unknown ids are ignored so asking
// about a PDF indexed before the library existed does not fail.
func (l *Library) Touch(ctx context.Context, pdfID string) error {
	_, err := l.db.ExecContext(ctx,
		`UPDATE pdfs SET last_accessed = ? WHERE pdf_id = ?`,
		time.Now().UTC(), pdfID,
	)
	if err != nil {
		return fmt.Errorf("touching pdf %q: %w", pdfID, err)
	}
	return nil
}

// Get returns one PDF's entry.
func (l *Library) Get(ctx context.Context, pdfID string) (Entry, error) {
	var e Entry
	err := l.db.QueryRowContext(ctx, `
		SELECT pdf_id, filename, notes, favorite, uploaded_at, last_accessed
		FROM pdfs WHERE pdf_id = ?
	`, pdfID).Scan(&e.PDFID, &e.Filename, &e.Notes, &e.Favorite, &e.UploadedAt, &e.LastAccessed)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %q", ErrNotFound, pdfID)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("getting pdf %q: %w", pdfID, err)
	}
	return e, nil
}

// SaveNotes replaces a PDF's notes.
func (l *Library) SaveNotes(ctx context.Context, pdfID, notes string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE pdfs SET notes = ? WHERE pdf_id = ?`,
		notes, pdfID,
	)
	if err != nil {
		return fmt.Errorf("saving notes for pdf %q: %w", pdfID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking notes update for pdf %q: %w", pdfID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, pdfID)
	}
	return nil
}

// ToggleFavorite flips a PDF's favorite flag and returns the new value.
func (l *Library) ToggleFavorite(ctx context.Context, pdfID string) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`UPDATE pdfs SET favorite = NOT favorite WHERE pdf_id = ?`,
		pdfID,
	)
	if err != nil {
		return false, fmt.Errorf("toggling favorite for pdf %q: %w", pdfID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking favorite update for pdf %q: %w", pdfID, err)
	}
	if n == 0 {
		return false, fmt.Errorf("%w: %q", ErrNotFound, pdfID)
	}

	var favorite bool
	err = l.db.QueryRowContext(ctx,
		`SELECT favorite FROM pdfs WHERE pdf_id = ?`, pdfID,
	).Scan(&favorite)
	if err != nil {
		return false, fmt.Errorf("reading favorite for pdf %q: %w", pdfID, err)
	}
	return favorite, nil
}

// Favorites lists favorited PDFs, most recently accessed first.
func (l *Library) Favorites(ctx context.Context) ([]Entry, error) {
	return l.list(ctx, `
		SELECT pdf_id, filename, notes, favorite, uploaded_at, last_accessed
		FROM pdfs WHERE favorite ORDER BY last_accessed DESC
	`)
}

// Recent lists up to limit PDFs by most recent access.
func (l *Library) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	return l.list(ctx, `
		SELECT pdf_id, filename, notes, favorite, uploaded_at, last_accessed
		FROM pdfs ORDER BY last_accessed DESC LIMIT ?
	`, limit)
}

func (l *Library) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pdfs: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.PDFID, &e.Filename, &e.Notes, &e.Favorite, &e.UploadedAt, &e.LastAccessed); err != nil {
			return nil, fmt.Errorf("scanning pdf entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pdf entries: %w", err)
	}
	return entries, nil
}

// Close releases the database connection.
func (l *Library) Close() error {
	return l.db.Close()
}
