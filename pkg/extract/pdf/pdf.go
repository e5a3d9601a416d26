// Package pdf implements pkg/extract's Extractor for PDF files.
package pdf

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/extract"
)

// Extractor extracts plain text from PDF files page by page.
type Extractor struct {
	logger *zap.Logger
}

// NewExtractor creates a PDF text extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// Extract reads the PDF at path and returns the concatenated text of all
// pages. Pages that fail to decode are skipped; the document as a whole only
// fails when it cannot be opened or no page yields any text.
func (e *Extractor) Extract(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %v", extract.ErrUnreadable, path, err)
	}
	defer f.Close()

	var sb strings.Builder
	fonts := make(map[string]*pdf.Font)

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			e.logger.Warn("skipping unreadable page",
				zap.String("path", path),
				zap.Int("page", i),
				zap.Error(err),
			)
			continue
		}

		sb.WriteString(text)

		e.logger.Debug("extracted page",
			zap.Int("page", i),
			zap.Int("chars", len(text)),
		)
	}

	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", extract.ErrNoText, path)
	}

	e.logger.Debug("extracted document",
		zap.String("path", path),
		zap.Int("pages", reader.NumPage()),
		zap.Int("chars", len(text)),
	)

	return text, nil
}

// Ensure Extractor implements extract.Extractor
var _ extract.Extractor = (*Extractor)(nil)
