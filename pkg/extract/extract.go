// Package extract provides interfaces for pulling raw text out of uploaded
// document files.
package extract

import "errors"

var (
	// ErrNoText is returned when a document yields no extractable text,
	// e.g. an image-only or protected PDF.
	ErrNoText = errors.New("no extractable text in document")

	// ErrUnreadable is returned when the document cannot be parsed at all.
	ErrUnreadable = errors.New("document could not be read")
)

// Extractor turns a document file on disk into raw text.
type Extractor interface {
	// Extract reads the file at path and returns its full text content.
	Extract(path string) (string, error)
}
