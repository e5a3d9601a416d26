// Package api provides the HTTP API server for uploading PDFs and asking
// questions against their indexed content.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":5001")
	ListenAddr string

	// CORSOrigins are the origins allowed to call the API from a browser.
	CORSOrigins []string

	// TempDir is where uploaded PDFs are written while being processed.
	// Defaults to the OS temp dir when empty.
	TempDir string
}
