package inmemory_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papernoteco/folio/pkg/vector"
	"github.com/papernoteco/folio/pkg/vector/inmemory"
)

func TestInMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "InMemory Suite")
}

var _ = Describe("Driver", func() {
	var driver *inmemory.Driver

	BeforeEach(func() {
		driver = inmemory.NewDriver()
	})

	seed := func() {
		err := driver.Upsert(context.Background(), []vector.Record{
			{ID: "a_0", Vector: []float32{1, 0}, Sentence: "cats sleep", PDFID: "a"},
			{ID: "a_1", Vector: []float32{0, 1}, Sentence: "dogs run", PDFID: "a"},
			{ID: "b_0", Vector: []float32{1, 1}, Sentence: "birds fly", PDFID: "b"},
		})
		Expect(err).NotTo(HaveOccurred())
	}

	Describe("Upsert", func() {
		It("replaces a record with the same id", func() {
			seed()
			err := driver.Upsert(context.Background(), []vector.Record{
				{ID: "a_0", Vector: []float32{0, 1}, Sentence: "updated", PDFID: "a"},
			})
			Expect(err).NotTo(HaveOccurred())

			matches, err := driver.Peek(context.Background(), "a", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].Sentence).To(Equal("updated"))
		})
	})

	Describe("Query", func() {
		It("ranks by cosine similarity", func() {
			seed()
			matches, err := driver.Query(context.Background(), []float32{1, 0}, 3, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(3))
			Expect(matches[0].ID).To(Equal("a_0"))
			Expect(matches[0].Score).To(BeNumerically("~", 1.0, 0.001))
		})

		It("restricts results to one PDF", func() {
			seed()
			matches, err := driver.Query(context.Background(), []float32{1, 0}, 3, "b")
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].PDFID).To(Equal("b"))
		})

		It("truncates to topK", func() {
			seed()
			matches, err := driver.Query(context.Background(), []float32{1, 0}, 1, "")
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
		})

		It("returns no matches for an unknown PDF", func() {
			seed()
			matches, err := driver.Query(context.Background(), []float32{1, 0}, 3, "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})
	})

	Describe("DeleteDocument", func() {
		It("removes only the matching PDF's records", func() {
			seed()
			Expect(driver.DeleteDocument(context.Background(), "a")).To(Succeed())

			ids, err := driver.ListDocuments(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{"b"}))
		})

		It("is a no-op for an unknown PDF", func() {
			seed()
			Expect(driver.DeleteDocument(context.Background(), "missing")).To(Succeed())

			ids, err := driver.ListDocuments(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(HaveLen(2))
		})
	})

	Describe("ListDocuments", func() {
		It("returns distinct PDF ids in insertion order", func() {
			seed()
			ids, err := driver.ListDocuments(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{"a", "b"}))
		})

		It("is empty for a fresh store", func() {
			ids, err := driver.ListDocuments(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(BeEmpty())
		})
	})

	Describe("Peek", func() {
		It("returns records in insertion order without scores", func() {
			seed()
			matches, err := driver.Peek(context.Background(), "a", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].ID).To(Equal("a_0"))
			Expect(matches[1].ID).To(Equal("a_1"))
		})

		It("honors the limit", func() {
			seed()
			matches, err := driver.Peek(context.Background(), "a", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*inmemory.Driver)(nil)
		})
	})
})
