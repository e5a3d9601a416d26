package sqlitepath

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ResolveSQLitePath", func() {
	var (
		origHome    string
		origXDG     string
		origFolioSQ string
		origCwd     string
	)

	BeforeEach(func() {
		origHome = os.Getenv("HOME")
		origXDG = os.Getenv("XDG_DATA_HOME")
		origFolioSQ = os.Getenv("FOLIO_SQLITE")
		var err error
		origCwd, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(os.Setenv("HOME", origHome)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", origXDG)).To(Succeed())
		Expect(os.Setenv("FOLIO_SQLITE", origFolioSQ)).To(Succeed())
		Expect(os.Chdir(origCwd)).To(Succeed())
	})

	It("prefers an explicit override over everything else", func() {
		Expect(os.Setenv("FOLIO_SQLITE", "/tmp/env.db")).To(Succeed())

		path, err := ResolveSQLitePath("/tmp/override.db")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/override.db"))
	})

	It("prefers FOLIO_SQLITE when set", func() {
		Expect(os.Setenv("FOLIO_SQLITE", "/tmp/custom.db")).To(Succeed())

		path, err := ResolveSQLitePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/tmp/custom.db"))
	})

	It("resolves ~/.folio/folio.db when present", func() {
		homeDir, err := os.MkdirTemp("", "folio-home-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(homeDir)
		})

		tmpDir, err := os.MkdirTemp("", "folio-cwd-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(tmpDir)
		})

		Expect(os.Setenv("HOME", homeDir)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())
		Expect(os.Setenv("FOLIO_SQLITE", "")).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		dbPath := filepath.Join(homeDir, ".folio", "folio.db")
		Expect(os.MkdirAll(filepath.Dir(dbPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(dbPath, []byte("test"), 0o644)).To(Succeed())

		path, err := ResolveSQLitePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(dbPath))
	})

	It("prefers XDG_DATA_HOME over the home dotdir", func() {
		homeDir, err := os.MkdirTemp("", "folio-home-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(homeDir)
		})

		xdgDir, err := os.MkdirTemp("", "folio-xdg-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(xdgDir)
		})

		tmpDir, err := os.MkdirTemp("", "folio-cwd-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(tmpDir)
		})

		Expect(os.Setenv("HOME", homeDir)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", xdgDir)).To(Succeed())
		Expect(os.Setenv("FOLIO_SQLITE", "")).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		homePath := filepath.Join(homeDir, ".folio", "folio.db")
		Expect(os.MkdirAll(filepath.Dir(homePath), 0o755)).To(Succeed())
		Expect(os.WriteFile(homePath, []byte("test"), 0o644)).To(Succeed())

		xdgPath := filepath.Join(xdgDir, "folio", "folio.db")
		Expect(os.MkdirAll(filepath.Dir(xdgPath), 0o755)).To(Succeed())
		Expect(os.WriteFile(xdgPath, []byte("test"), 0o644)).To(Succeed())

		path, err := ResolveSQLitePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(xdgPath))
	})

	It("falls back to a creatable home default when nothing exists", func() {
		homeDir, err := os.MkdirTemp("", "folio-home-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(homeDir)
		})

		tmpDir, err := os.MkdirTemp("", "folio-cwd-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			_ = os.RemoveAll(tmpDir)
		})

		Expect(os.Setenv("HOME", homeDir)).To(Succeed())
		Expect(os.Setenv("XDG_DATA_HOME", "")).To(Succeed())
		Expect(os.Setenv("FOLIO_SQLITE", "")).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		path, err := ResolveSQLitePath("")
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal(filepath.Join(homeDir, ".folio", "folio.db")))

		// The dotdir is created so the first open succeeds.
		_, err = os.Stat(filepath.Join(homeDir, ".folio"))
		Expect(err).NotTo(HaveOccurred())
	})
})
