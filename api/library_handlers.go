package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/library"
)

// handleRecentPDFs lists cataloged PDFs by most recent access.
func (s *Server) handleRecentPDFs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)

	entries, err := s.library.Recent(c.Context(), limit)
	if err != nil {
		s.logger.Error("listing recent pdfs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list recent PDFs"})
	}

	return c.JSON(entries)
}

// handleFavoritePDFs lists favorited PDFs.
func (s *Server) handleFavoritePDFs(c *fiber.Ctx) error {
	entries, err := s.library.Favorites(c.Context())
	if err != nil {
		s.logger.Error("listing favorite pdfs", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list favorite PDFs"})
	}

	return c.JSON(entries)
}

// handleToggleFavorite flips a PDF's favorite flag.
func (s *Server) handleToggleFavorite(c *fiber.Ctx) error {
	pdfID := strings.TrimSpace(c.Params("pdf_id"))
	if pdfID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "pdf_id parameter required"})
	}

	favorite, err := s.library.ToggleFavorite(c.Context(), pdfID)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "PDF not found in library"})
		}
		s.logger.Error("toggling favorite",
			zap.String("pdf_id", pdfID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to update favorite"})
	}

	return c.JSON(FavoriteResponse{PDFID: pdfID, Favorite: favorite})
}

// handleGetNotes returns a PDF's library entry, including its notes.
func (s *Server) handleGetNotes(c *fiber.Ctx) error {
	pdfID := strings.TrimSpace(c.Params("pdf_id"))
	if pdfID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "pdf_id parameter required"})
	}

	entry, err := s.library.Get(c.Context(), pdfID)
	if err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "PDF not found in library"})
		}
		s.logger.Error("getting pdf entry",
			zap.String("pdf_id", pdfID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to get PDF"})
	}

	return c.JSON(entry)
}

// handleSaveNotes replaces a PDF's notes.
func (s *Server) handleSaveNotes(c *fiber.Ctx) error {
	pdfID := strings.TrimSpace(c.Params("pdf_id"))
	if pdfID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "pdf_id parameter required"})
	}

	var req NotesRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if err := s.library.SaveNotes(c.Context(), pdfID, req.Notes); err != nil {
		if errors.Is(err, library.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "PDF not found in library"})
		}
		s.logger.Error("saving notes",
			zap.String("pdf_id", pdfID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to save notes"})
	}

	entry, err := s.library.Get(c.Context(), pdfID)
	if err != nil {
		s.logger.Error("reading saved notes",
			zap.String("pdf_id", pdfID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to save notes"})
	}

	return c.JSON(entry)
}
