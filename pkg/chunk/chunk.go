// Package chunk splits extracted document text into the ordered sentence
// units that the vector index stores and retrieves.
package chunk

import (
	"errors"
	"strings"
)

// ErrEmptyContent is returned when the input text is blank or yields no
// non-empty chunks after splitting.
var ErrEmptyContent = errors.New("no usable text content")

// Split breaks text into an ordered sequence of non-empty sentence chunks.
// Text is split on sentence-terminating punctuation, each candidate is
// trimmed, and empty results are discarded. Chunk order is load-bearing:
// a chunk's position determines its record id in the vector store.
func Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyContent
	}

	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}

	if len(chunks) == 0 {
		return nil, ErrEmptyContent
	}

	return chunks, nil
}
