// Package sqlitepath resolves the location of the folio library database.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"
)

// ResolveSQLitePath picks the library database path. Precedence: explicit
// override, FOLIO_SQLITE env var, the first existing candidate, then the
// default location under the home .folio directory (created on first open).
func ResolveSQLitePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if envPath := strings.TrimSpace(os.Getenv("FOLIO_SQLITE")); envPath != "" {
		return envPath, nil
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "folio.db", nil
	}

	dir := filepath.Join(home, ".folio")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "folio.db"), nil
}

func sqliteCandidates() []string {
	candidates := []string{
		"folio.db",
		filepath.Join(".folio", "folio.db"),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append([]string{
			filepath.Join(home, ".folio", "folio.db"),
		}, candidates...)
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append([]string{
			filepath.Join(xdgHome, "folio", "folio.db"),
		}, candidates...)
	}

	return candidates
}
