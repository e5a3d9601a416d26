package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/extract"
	"github.com/papernoteco/folio/pkg/library"
	"github.com/papernoteco/folio/pkg/rag"
	"github.com/papernoteco/folio/pkg/vector"
)

// Server is the API server for the folio document question answering system
type Server struct {
	config    Config
	pipeline  *rag.Pipeline
	extractor extract.Extractor
	index     *vector.Index
	library   *library.Library
	logger    *zap.Logger
	app       *fiber.App
}

// NewServer creates a new API server. The index is injected alongside the
// pipeline so inspection endpoints can read the store without going through
// retrieval.
func NewServer(config Config, pipeline *rag.Pipeline, extractor extract.Extractor, index *vector.Index, lib *library.Library, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             50 * 1024 * 1024,
	})

	if len(config.CORSOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(config.CORSOrigins, ","),
			AllowMethods: "GET,POST,PUT",
		}))
	}

	s := &Server{
		config:    config,
		pipeline:  pipeline,
		extractor: extractor,
		index:     index,
		library:   lib,
		logger:    logger,
		app:       app,
	}

	app.Post("/upload", s.handleUpload)
	app.Post("/ask", s.handleAsk)
	app.Get("/list_pdfs", s.handleListPDFs)
	app.Get("/debug_pdf/:pdf_id", s.handleDebugPDF)
	app.Get("/health", s.handleHealth)

	app.Get("/pdfs/recent", s.handleRecentPDFs)
	app.Get("/pdfs/favorites", s.handleFavoritePDFs)
	app.Put("/pdfs/:pdf_id/favorite", s.handleToggleFavorite)
	app.Get("/pdfs/:pdf_id/notes", s.handleGetNotes)
	app.Put("/pdfs/:pdf_id/notes", s.handleSaveNotes)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
