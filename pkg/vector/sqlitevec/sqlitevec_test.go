package sqlitevec_test

import (
	"context"
	"fmt"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/vector"
	"github.com/papernoteco/folio/pkg/vector/sqlitevec"
)

func TestSQLiteVec(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLiteVec Suite")
}

var _ = Describe("Driver", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver).NotTo(BeNil())
			Expect(driver.Close()).To(Succeed())
		})

		It("should error when dimension not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath: ":memory:",
			}, logger)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})

	Describe("with an in-memory database", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			var err error
			driver, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		seed := func() {
			err := driver.Upsert(context.Background(), []vector.Record{
				{ID: "a_0", Vector: []float32{1, 0, 0, 0}, Sentence: "cats sleep", PDFID: "a"},
				{ID: "a_1", Vector: []float32{0, 1, 0, 0}, Sentence: "dogs run", PDFID: "a"},
				{ID: "b_0", Vector: []float32{0, 0, 1, 0}, Sentence: "birds fly", PDFID: "b"},
			})
			Expect(err).NotTo(HaveOccurred())
		}

		Describe("Upsert", func() {
			It("should do nothing when given no records", func() {
				err := driver.Upsert(context.Background(), []vector.Record{})
				Expect(err).NotTo(HaveOccurred())
			})

			It("should store records retrievable via Peek", func() {
				seed()
				matches, err := driver.Peek(context.Background(), "a", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(matches).To(HaveLen(2))
				Expect(matches[0].ID).To(Equal("a_0"))
				Expect(matches[0].Sentence).To(Equal("cats sleep"))
			})

			It("should update an existing record in place", func() {
				seed()
				err := driver.Upsert(context.Background(), []vector.Record{
					{ID: "a_0", Vector: []float32{0, 0, 0, 1}, Sentence: "updated", PDFID: "a"},
				})
				Expect(err).NotTo(HaveOccurred())

				matches, err := driver.Peek(context.Background(), "a", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(matches).To(HaveLen(2))
				Expect(matches[0].Sentence).To(Equal("updated"))
			})
		})

		Describe("Query", func() {
			It("should rank the nearest record first", func() {
				seed()
				matches, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 3, "")
				Expect(err).NotTo(HaveOccurred())
				Expect(matches).NotTo(BeEmpty())
				Expect(matches[0].ID).To(Equal("a_0"))
			})

			It("should restrict results to one PDF", func() {
				seed()
				matches, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 3, "b")
				Expect(err).NotTo(HaveOccurred())
				for _, m := range matches {
					Expect(m.PDFID).To(Equal("b"))
				}
			})

			It("should rank by cosine similarity, not euclidean distance", func() {
				// The long vector points exactly at the query, so cosine puts
				// it first even though its L2 distance is far larger.
				err := driver.Upsert(context.Background(), []vector.Record{
					{ID: "c_0", Vector: []float32{10, 0, 0, 0}, Sentence: "aligned", PDFID: "c"},
					{ID: "c_1", Vector: []float32{0.5, 0.5, 0, 0}, Sentence: "diagonal", PDFID: "c"},
				})
				Expect(err).NotTo(HaveOccurred())

				matches, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 2, "c")
				Expect(err).NotTo(HaveOccurred())
				Expect(matches).To(HaveLen(2))
				Expect(matches[0].ID).To(Equal("c_0"))
				Expect(matches[0].Score).To(BeNumerically("~", 1.0, 0.001))
				Expect(matches[1].ID).To(Equal("c_1"))
				Expect(matches[1].Score).To(BeNumerically("<", matches[0].Score))
			})

			It("should find a PDF's records even when another PDF dominates the neighborhood", func() {
				records := []vector.Record{
					{ID: "rare_0", Vector: []float32{0, 0, 0, 1}, Sentence: "far away", PDFID: "rare"},
				}
				for i := 0; i < 40; i++ {
					records = append(records, vector.Record{
						ID:       fmt.Sprintf("noise_%d", i),
						Vector:   []float32{1, float32(i) / 1000, 0, 0},
						Sentence: "near the query",
						PDFID:    "noise",
					})
				}
				Expect(driver.Upsert(context.Background(), records)).To(Succeed())

				matches, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 1, "rare")
				Expect(err).NotTo(HaveOccurred())
				Expect(matches).To(HaveLen(1))
				Expect(matches[0].ID).To(Equal("rare_0"))
			})
		})

		Describe("DeleteDocument", func() {
			It("should remove only the matching PDF's records", func() {
				seed()
				Expect(driver.DeleteDocument(context.Background(), "a")).To(Succeed())

				ids, err := driver.ListDocuments(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(ids).To(Equal([]string{"b"}))
			})

			It("should be a no-op for an unknown PDF", func() {
				seed()
				Expect(driver.DeleteDocument(context.Background(), "missing")).To(Succeed())

				ids, err := driver.ListDocuments(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(ids).To(HaveLen(2))
			})
		})

		Describe("ListDocuments", func() {
			It("should return distinct PDF ids", func() {
				seed()
				ids, err := driver.ListDocuments(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(ids).To(ConsistOf("a", "b"))
			})
		})
	})
})
