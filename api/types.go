package api

import "github.com/papernoteco/folio/pkg/vector"

// ErrorResponse is the JSON error envelope returned by every endpoint.
type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadResponse confirms a processed upload.
type UploadResponse struct {
	Message string `json:"message"`
	PDFID   string `json:"pdf_id"`
}

// AskRequest is the body of an /ask call.
type AskRequest struct {
	PDFID    string `json:"pdf_id"`
	Question string `json:"question"`
}

// AskResponse carries the generated answer.
type AskResponse struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ListPDFsResponse enumerates the indexed PDF ids.
type ListPDFsResponse struct {
	PDFIDs []string `json:"pdf_ids"`
}

// DebugPDFResponse samples a PDF's indexed records.
type DebugPDFResponse struct {
	PDFID        string         `json:"pdf_id"`
	MatchesFound int            `json:"matches_found"`
	SampleData   []vector.Match `json:"sample_data"`
}

// HealthResponse reports service and dependency status.
type HealthResponse struct {
	Status          string `json:"status"`
	StoreConnection string `json:"store_connection"`
	Error           string `json:"error,omitempty"`
}

// NotesRequest is the body of a notes update.
type NotesRequest struct {
	Notes string `json:"notes"`
}

// FavoriteResponse reports a PDF's favorite flag after a toggle.
type FavoriteResponse struct {
	PDFID    string `json:"pdf_id"`
	Favorite bool   `json:"favorite"`
}
