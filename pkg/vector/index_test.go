package vector_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/pkg/vector"
)

func TestVector(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Vector Suite")
}

// fakeDriver records calls and can be programmed to fail upserts.
type fakeDriver struct {
	mu sync.Mutex

	deleted      []string
	batches      [][]vector.Record
	failUpserts  int
	upsertCalls  int
	deleteErr    error
	queryMatches []vector.Match
}

func (f *fakeDriver) Upsert(_ context.Context, records []vector.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.upsertCalls++
	if f.failUpserts > 0 {
		f.failUpserts--
		return fmt.Errorf("transient store failure")
	}
	batch := make([]vector.Record, len(records))
	copy(batch, records)
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeDriver) DeleteDocument(_ context.Context, pdfID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, pdfID)
	return f.deleteErr
}

func (f *fakeDriver) Query(_ context.Context, _ []float32, _ int, _ string) ([]vector.Match, error) {
	return f.queryMatches, nil
}

func (f *fakeDriver) ListDocuments(_ context.Context) ([]string, error) {
	return []string{"paper-1"}, nil
}

func (f *fakeDriver) Peek(_ context.Context, _ string, _ int) ([]vector.Match, error) {
	return f.queryMatches, nil
}

func (f *fakeDriver) Close() error { return nil }

func makeRecords(pdfID string, n int) []vector.Record {
	records := make([]vector.Record, n)
	for i := range records {
		records[i] = vector.Record{
			ID:       fmt.Sprintf("%s_%d", pdfID, i),
			Vector:   []float32{float32(i), 1},
			Sentence: fmt.Sprintf("sentence %d", i),
			PDFID:    pdfID,
		}
	}
	return records
}

var _ = Describe("Index", func() {
	var (
		driver *fakeDriver
		policy vector.WritePolicy
		logger *zap.Logger
	)

	BeforeEach(func() {
		driver = &fakeDriver{}
		policy = vector.WritePolicy{
			BatchSize:     50,
			MaxRetries:    3,
			RetryDelay:    time.Millisecond,
			MaxRetryDelay: 5 * time.Millisecond,
		}
		logger = zap.NewNop()
	})

	Describe("Replace", func() {
		It("deletes existing records before inserting", func() {
			ix := vector.NewIndex(driver, policy, logger)

			err := ix.Replace(context.Background(), "paper-1", makeRecords("paper-1", 3))
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.deleted).To(Equal([]string{"paper-1"}))
			Expect(driver.batches).To(HaveLen(1))
			Expect(driver.batches[0]).To(HaveLen(3))
		})

		It("partitions records into fixed-size batches", func() {
			ix := vector.NewIndex(driver, policy, logger)

			err := ix.Replace(context.Background(), "paper-1", makeRecords("paper-1", 120))
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.batches).To(HaveLen(3))
			Expect(driver.batches[0]).To(HaveLen(50))
			Expect(driver.batches[1]).To(HaveLen(50))
			Expect(driver.batches[2]).To(HaveLen(20))
		})

		It("preserves record order across batches", func() {
			ix := vector.NewIndex(driver, policy, logger)

			err := ix.Replace(context.Background(), "paper-1", makeRecords("paper-1", 75))
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.batches[0][0].ID).To(Equal("paper-1_0"))
			Expect(driver.batches[0][49].ID).To(Equal("paper-1_49"))
			Expect(driver.batches[1][0].ID).To(Equal("paper-1_50"))
			Expect(driver.batches[1][24].ID).To(Equal("paper-1_74"))
		})

		It("ignores a failed delete for a PDF with no records", func() {
			driver.deleteErr = fmt.Errorf("nothing to delete")
			ix := vector.NewIndex(driver, policy, logger)

			err := ix.Replace(context.Background(), "paper-1", makeRecords("paper-1", 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.batches).To(HaveLen(1))
		})

		It("retries a transiently failing batch until it succeeds", func() {
			driver.failUpserts = 2
			ix := vector.NewIndex(driver, policy, logger)

			err := ix.Replace(context.Background(), "paper-1", makeRecords("paper-1", 10))
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.upsertCalls).To(Equal(3))
			Expect(driver.batches).To(HaveLen(1))
		})

		It("returns ErrWrite after exhausting the retry budget", func() {
			driver.failUpserts = 3
			ix := vector.NewIndex(driver, policy, logger)

			err := ix.Replace(context.Background(), "paper-1", makeRecords("paper-1", 10))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, vector.ErrWrite)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))
		})

		It("stops writing batches after one fails all its retries", func() {
			driver.failUpserts = 3
			ix := vector.NewIndex(driver, policy, logger)

			err := ix.Replace(context.Background(), "paper-1", makeRecords("paper-1", 120))
			Expect(err).To(HaveOccurred())
			Expect(driver.batches).To(BeEmpty())
			Expect(driver.upsertCalls).To(Equal(3))
		})

		It("aborts the retry wait when the context is canceled", func() {
			driver.failUpserts = 10
			policy.RetryDelay = time.Second
			policy.MaxRetryDelay = time.Second
			ix := vector.NewIndex(driver, policy, logger)

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(10 * time.Millisecond)
				cancel()
			}()

			err := ix.Replace(ctx, "paper-1", makeRecords("paper-1", 2))
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		})

		It("serializes concurrent replaces of the same PDF", func() {
			ix := vector.NewIndex(driver, policy, logger)

			var wg sync.WaitGroup
			for range 4 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := ix.Replace(context.Background(), "paper-1", makeRecords("paper-1", 60))
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			// Each replace contributes one delete and two batches. With the
			// per-document lock, deletes and batches never interleave, so
			// the call log groups into clean delete+insert rounds.
			Expect(driver.deleted).To(HaveLen(4))
			Expect(driver.batches).To(HaveLen(8))
		})
	})

	Describe("WritePolicy", func() {
		It("fills in defaults for zero values", func() {
			ix := vector.NewIndex(driver, vector.WritePolicy{}, logger)

			err := ix.Replace(context.Background(), "paper-1", makeRecords("paper-1", 60))
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.batches).To(HaveLen(2))
		})
	})

	Describe("Search", func() {
		It("delegates to the driver", func() {
			driver.queryMatches = []vector.Match{
				{ID: "paper-1_0", Score: 0.9, Sentence: "hello", PDFID: "paper-1"},
			}
			ix := vector.NewIndex(driver, policy, logger)

			matches, err := ix.Search(context.Background(), []float32{1, 0}, 5, "paper-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ID).To(Equal("paper-1_0"))
		})
	})

	Describe("Documents", func() {
		It("delegates to the driver", func() {
			ix := vector.NewIndex(driver, policy, logger)

			ids, err := ix.Documents(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(ids).To(Equal([]string{"paper-1"}))
		})
	})
})
