package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/chunk"
	"github.com/papernoteco/folio/pkg/extract"
	"github.com/papernoteco/folio/pkg/rag"
)

// handleUpload ingests a PDF: the file is parked in the temp dir, its text
// extracted, and its chunks embedded and indexed under the given id.
// Re-uploading an id replaces that PDF's indexed content.
func (s *Server) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("pdf_file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Missing PDF file or PDF ID"})
	}

	pdfID := strings.TrimSpace(c.FormValue("pdf_id"))
	if pdfID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Missing PDF file or PDF ID"})
	}

	tempDir := s.config.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		s.logger.Error("creating temp dir", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store uploaded file"})
	}

	tempPath := filepath.Join(tempDir, uuid.New().String()+".pdf")
	if err := c.SaveFile(fileHeader, tempPath); err != nil {
		s.logger.Error("saving uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to store uploaded file"})
	}
	defer os.Remove(tempPath)

	s.logger.Info("processing upload",
		zap.String("pdf_id", pdfID),
		zap.String("filename", fileHeader.Filename),
	)

	text, err := s.extractor.Extract(tempPath)
	if err != nil {
		if errors.Is(err, extract.ErrNoText) || errors.Is(err, extract.ErrUnreadable) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "Could not extract text from PDF. The file might be image-based or protected.",
			})
		}
		s.logger.Error("extracting pdf text",
			zap.String("pdf_id", pdfID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to process PDF"})
	}

	count, err := s.pipeline.Ingest(c.Context(), pdfID, text)
	if err != nil {
		if errors.Is(err, chunk.ErrEmptyContent) {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "No valid text found in PDF"})
		}
		s.logger.Error("ingesting pdf",
			zap.String("pdf_id", pdfID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to index PDF"})
	}

	// The catalog entry is best-effort; the index is the source of truth
	// for what is searchable.
	if err := s.library.Record(c.Context(), pdfID, fileHeader.Filename); err != nil {
		s.logger.Warn("recording pdf in library",
			zap.String("pdf_id", pdfID),
			zap.Error(err),
		)
	}

	return c.JSON(UploadResponse{
		Message: fmt.Sprintf("PDF processed and stored successfully! Indexed %d sentences.", count),
		PDFID:   pdfID,
	})
}

// handleAsk answers a question against one PDF's indexed content.
func (s *Server) handleAsk(c *fiber.Ctx) error {
	var req AskRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	req.PDFID = strings.TrimSpace(req.PDFID)
	req.Question = strings.TrimSpace(req.Question)
	if req.PDFID == "" || req.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "Missing PDF ID or question"})
	}

	answer, err := s.pipeline.Answer(c.Context(), req.PDFID, req.Question)
	if err != nil {
		var notFound *rag.NotFoundError
		switch {
		case errors.As(err, &notFound):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error: fmt.Sprintf("No data found for PDF ID: %q. Available PDF IDs: %v",
					notFound.PDFID, notFound.Known),
			})
		case errors.Is(err, rag.ErrNoMatches):
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Error: "No relevant content found in this PDF that answers your question. Try rephrasing or asking a different question.",
			})
		}
		s.logger.Error("answering question",
			zap.String("pdf_id", req.PDFID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to answer question"})
	}

	if err := s.library.Touch(c.Context(), req.PDFID); err != nil {
		s.logger.Warn("touching pdf in library",
			zap.String("pdf_id", req.PDFID),
			zap.Error(err),
		)
	}

	return c.JSON(AskResponse{
		Question: req.Question,
		Answer:   answer,
	})
}

// handleListPDFs enumerates the PDF ids present in the index.
func (s *Server) handleListPDFs(c *fiber.Ctx) error {
	ids, err := s.index.Documents(c.Context())
	if err != nil {
		s.logger.Error("listing pdfs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list PDFs"})
	}

	return c.JSON(ListPDFsResponse{PDFIDs: ids})
}

// handleDebugPDF samples a PDF's indexed records for inspection.
func (s *Server) handleDebugPDF(c *fiber.Ctx) error {
	pdfID := strings.TrimSpace(c.Params("pdf_id"))
	if pdfID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "pdf_id parameter required"})
	}

	matches, err := s.index.Peek(c.Context(), pdfID, 10)
	if err != nil {
		s.logger.Error("peeking pdf records",
			zap.String("pdf_id", pdfID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to inspect PDF"})
	}

	return c.JSON(DebugPDFResponse{
		PDFID:        pdfID,
		MatchesFound: len(matches),
		SampleData:   matches,
	})
}

// handleHealth reports whether the server and its vector store are reachable.
// Always answers 200; a degraded store shows up in the body.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	if _, err := s.index.Documents(c.Context()); err != nil {
		return c.JSON(HealthResponse{
			Status:          "degraded",
			StoreConnection: "Not Connected",
			Error:           err.Error(),
		})
	}

	return c.JSON(HealthResponse{
		Status:          "healthy",
		StoreConnection: "OK",
	})
}
