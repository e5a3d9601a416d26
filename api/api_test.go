package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/library"
	"github.com/papernoteco/folio/pkg/rag"
	testutils "github.com/papernoteco/folio/pkg/utils/test"
	"github.com/papernoteco/folio/pkg/vector"
	"github.com/papernoteco/folio/pkg/vector/inmemory"
)

func TestAPI(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "API Suite")
}

var _ = Describe("Server", func() {
	var (
		server    *Server
		extractor *testutils.MockExtractor
		embedder  *testutils.MockEmbedder
		generator *testutils.MockGenerator
		tempDir   string
	)

	BeforeEach(func() {
		logger := zap.NewNop()
		tempDir = GinkgoT().TempDir()

		index := vector.NewIndex(inmemory.NewDriver(), vector.DefaultWritePolicy(), logger)

		embedder = testutils.NewMockEmbedder()
		embedder.Embeddings = map[string][]float32{
			"Cats sleep all day":  {1, 0, 0},
			"Dogs chase the mail": {0, 1, 0},
			"What do cats do":     {0.9, 0.1, 0},
		}
		generator = testutils.NewMockGenerator("They sleep all day.")
		extractor = testutils.NewMockExtractor()
		extractor.Default = "Cats sleep all day. Dogs chase the mail."

		lib, err := library.New(":memory:", logger)
		Expect(err).NotTo(HaveOccurred())

		pipeline := rag.NewPipeline(index, embedder, generator, logger)
		server = NewServer(Config{
			ListenAddr: ":0",
			TempDir:    tempDir,
		}, pipeline, extractor, index, lib, logger)
	})

	uploadRequest := func(pdfID, filename string) *http.Request {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)

		if filename != "" {
			part, err := writer.CreateFormFile("pdf_file", filename)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write([]byte("%PDF-1.4 fake"))
			Expect(err).NotTo(HaveOccurred())
		}
		if pdfID != "" {
			Expect(writer.WriteField("pdf_id", pdfID)).To(Succeed())
		}
		Expect(writer.Close()).To(Succeed())

		req := httptest.NewRequest(http.MethodPost, "/upload", &body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req
	}

	decode := func(resp *http.Response, out any) {
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, out)).To(Succeed())
	}

	upload := func(pdfID string) {
		resp, err := server.app.Test(uploadRequest(pdfID, "paper.pdf"), -1)
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	}

	Describe("POST /upload", func() {
		It("indexes the extracted sentences and confirms the id", func() {
			resp, err := server.app.Test(uploadRequest("paper-1", "attention.pdf"), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out UploadResponse
			decode(resp, &out)
			Expect(out.PDFID).To(Equal("paper-1"))
			Expect(out.Message).To(ContainSubstring("Indexed 2 sentences"))
		})

		It("trims whitespace from the pdf id", func() {
			resp, err := server.app.Test(uploadRequest("  paper-1  ", "a.pdf"), -1)
			Expect(err).NotTo(HaveOccurred())

			var out UploadResponse
			decode(resp, &out)
			Expect(out.PDFID).To(Equal("paper-1"))
		})

		It("rejects a request without a file", func() {
			resp, err := server.app.Test(uploadRequest("paper-1", ""), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a request without a pdf id", func() {
			resp, err := server.app.Test(uploadRequest("", "a.pdf"), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a PDF that yields no sentences", func() {
			extractor.Default = "   "
			resp, err := server.app.Test(uploadRequest("paper-1", "blank.pdf"), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

			var out ErrorResponse
			decode(resp, &out)
			Expect(out.Error).To(ContainSubstring("No valid text"))
		})

		It("records the upload in the library", func() {
			upload("paper-1")

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/pdfs/recent", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var entries []library.Entry
			decode(resp, &entries)
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].PDFID).To(Equal("paper-1"))
			Expect(entries[0].Filename).To(Equal("paper.pdf"))
		})
	})

	Describe("POST /ask", func() {
		askRequest := func(pdfID, question string) *http.Request {
			body, err := json.Marshal(AskRequest{PDFID: pdfID, Question: question})
			Expect(err).NotTo(HaveOccurred())
			req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			return req
		}

		It("answers a question against an uploaded pdf", func() {
			upload("paper-1")

			resp, err := server.app.Test(askRequest("paper-1", "What do cats do"), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out AskResponse
			decode(resp, &out)
			Expect(out.Question).To(Equal("What do cats do"))
			Expect(out.Answer).To(Equal("They sleep all day."))
		})

		It("rejects missing fields", func() {
			resp, err := server.app.Test(askRequest("", "question"), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects a whitespace-only question", func() {
			upload("paper-1")

			resp, err := server.app.Test(askRequest("paper-1", "   "), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("returns 404 with available ids for an unknown pdf", func() {
			upload("paper-1")

			resp, err := server.app.Test(askRequest("missing", "What do cats do"), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))

			var out ErrorResponse
			decode(resp, &out)
			Expect(out.Error).To(ContainSubstring("missing"))
			Expect(out.Error).To(ContainSubstring("paper-1"))
		})

		It("trims whitespace from the pdf id", func() {
			upload("paper-1")

			resp, err := server.app.Test(askRequest("  paper-1  ", "What do cats do"), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
		})
	})

	Describe("GET /list_pdfs", func() {
		It("returns an empty list for a fresh index", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/list_pdfs", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out ListPDFsResponse
			decode(resp, &out)
			Expect(out.PDFIDs).To(BeEmpty())
		})

		It("lists uploaded pdfs", func() {
			upload("paper-1")
			upload("paper-2")

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/list_pdfs", nil), -1)
			Expect(err).NotTo(HaveOccurred())

			var out ListPDFsResponse
			decode(resp, &out)
			Expect(out.PDFIDs).To(ConsistOf("paper-1", "paper-2"))
		})
	})

	Describe("GET /debug_pdf/:pdf_id", func() {
		It("samples a pdf's indexed records", func() {
			upload("paper-1")

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/debug_pdf/paper-1", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out DebugPDFResponse
			decode(resp, &out)
			Expect(out.PDFID).To(Equal("paper-1"))
			Expect(out.MatchesFound).To(Equal(2))
			Expect(out.SampleData[0].ID).To(Equal("paper-1_0"))
			Expect(out.SampleData[0].Sentence).To(Equal("Cats sleep all day"))
		})

		It("reports zero matches for an unknown pdf", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/debug_pdf/missing", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out DebugPDFResponse
			decode(resp, &out)
			Expect(out.MatchesFound).To(BeZero())
		})
	})

	Describe("GET /health", func() {
		It("reports healthy when the store is reachable", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out HealthResponse
			decode(resp, &out)
			Expect(out.Status).To(Equal("healthy"))
			Expect(out.StoreConnection).To(Equal("OK"))
		})
	})

	Describe("library endpoints", func() {
		BeforeEach(func() {
			upload("paper-1")
			upload("paper-2")
		})

		It("toggles and lists favorites", func() {
			req := httptest.NewRequest(http.MethodPut, "/pdfs/paper-2/favorite", nil)
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var fav FavoriteResponse
			decode(resp, &fav)
			Expect(fav.Favorite).To(BeTrue())

			resp, err = server.app.Test(httptest.NewRequest(http.MethodGet, "/pdfs/favorites", nil), -1)
			Expect(err).NotTo(HaveOccurred())

			var entries []library.Entry
			decode(resp, &entries)
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].PDFID).To(Equal("paper-2"))
		})

		It("saves and returns notes", func() {
			body, err := json.Marshal(NotesRequest{Notes: "key results in section 4"})
			Expect(err).NotTo(HaveOccurred())

			req := httptest.NewRequest(http.MethodPut, "/pdfs/paper-1/notes", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			resp, err = server.app.Test(httptest.NewRequest(http.MethodGet, "/pdfs/paper-1/notes", nil), -1)
			Expect(err).NotTo(HaveOccurred())

			var entry library.Entry
			decode(resp, &entry)
			Expect(entry.Notes).To(Equal("key results in section 4"))
		})

		It("returns 404 for notes on an unknown pdf", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/pdfs/missing/notes", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("limits recent results", func() {
			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/pdfs/recent?limit=1", nil), -1)
			Expect(err).NotTo(HaveOccurred())

			var entries []library.Entry
			decode(resp, &entries)
			Expect(entries).To(HaveLen(1))
		})
	})

	Describe("upload then ask round trip", func() {
		It("replaces content when the same id is re-uploaded", func() {
			upload("paper-1")

			extractor.Default = "Dogs chase the mail."
			upload("paper-1")

			resp, err := server.app.Test(httptest.NewRequest(http.MethodGet, "/debug_pdf/paper-1", nil), -1)
			Expect(err).NotTo(HaveOccurred())

			var out DebugPDFResponse
			decode(resp, &out)
			Expect(out.MatchesFound).To(Equal(1))
			Expect(out.SampleData[0].Sentence).To(Equal("Dogs chase the mail"))
		})
	})
})

var _ = Describe("ErrorResponse", func() {
	It("serializes to the error envelope", func() {
		b, err := json.Marshal(ErrorResponse{Error: "boom"})
		Expect(err).NotTo(HaveOccurred())
		Expect(string(b)).To(Equal(fmt.Sprintf("{%q:%q}", "error", "boom")))
	})
})
