package testutils

// MockExtractor is a test extractor that maps file paths to fixed text
type MockExtractor struct {
	Texts map[string]string

	// Default is returned for paths without a configured text.
	Default string

	// Err, when set, is returned for every path.
	Err error
}

func NewMockExtractor() *MockExtractor {
	return &MockExtractor{
		Texts: make(map[string]string),
	}
}

func (m *MockExtractor) Extract(path string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if text, ok := m.Texts[path]; ok {
		return text, nil
	}
	return m.Default, nil
}
