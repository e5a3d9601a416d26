package pdf

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papernoteco/folio/pkg/extract"
	"github.com/papernoteco/folio/pkg/logger"
)

func TestPDFExtractor(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "PDF Extractor Suite")
}

var _ = Describe("Extractor", func() {
	var extractor *Extractor

	BeforeEach(func() {
		extractor = NewExtractor(logger.Nop())
	})

	It("returns ErrUnreadable for a missing file", func() {
		_, err := extractor.Extract(filepath.Join(GinkgoT().TempDir(), "missing.pdf"))
		Expect(err).To(MatchError(extract.ErrUnreadable))
	})

	It("returns ErrUnreadable for a file that is not a PDF", func() {
		path := filepath.Join(GinkgoT().TempDir(), "notes.pdf")
		Expect(os.WriteFile(path, []byte("plain text, not a pdf"), 0o644)).To(Succeed())

		_, err := extractor.Extract(path)
		Expect(err).To(MatchError(extract.ErrUnreadable))
	})
})
