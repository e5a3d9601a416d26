package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papernoteco/folio/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Configer", func() {
	var tmpDir string
	var cfger *config.Configer

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "folio-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		cfger, err = config.NewConfiger(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns defaults when no config file exists", func() {
			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.API.Listen).To(Equal(":5001"))
			Expect(cfg.VectorStore.Provider).To(Equal("qdrant"))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(384)))
			Expect(cfg.LLM.MaxTokens).To(Equal(uint(500)))
			Expect(cfg.LLM.Temperature).To(Equal(0.7))
		})

		It("merges defaults into fields the file leaves unset", func() {
			path := filepath.Join(tmpDir, "config.toml")
			err := os.WriteFile(path, []byte("[api]\nlisten = \":9999\"\n"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.API.Listen).To(Equal(":9999"))
			Expect(cfg.Embedding.Model).To(Equal("all-minilm"))
			Expect(cfg.LLM.Provider).To(Equal("huggingface"))
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		It("round-trips a string key", func() {
			Expect(cfger.SetConfigValue("vector_store.target", "qdrant.internal:6334")).To(Succeed())

			got, err := cfger.GetConfigValue("vector_store.target")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("qdrant.internal:6334"))
		})

		It("round-trips embedding dimensions", func() {
			Expect(cfger.SetConfigValue("embedding.dimensions", "768")).To(Succeed())

			got, err := cfger.GetConfigValue("embedding.dimensions")
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal("768"))
		})

		It("parses comma-separated CORS origins", func() {
			Expect(cfger.SetConfigValue("api.cors_origins", "http://a.test, http://b.test")).To(Succeed())

			cfg, err := cfger.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.API.CORSOrigins).To(Equal([]string{"http://a.test", "http://b.test"}))
		})

		It("rejects unknown keys", func() {
			err := cfger.SetConfigValue("nope.nothing", "x")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))

			_, err = cfger.GetConfigValue("nope.nothing")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects a non-numeric value for llm.max_tokens", func() {
			err := cfger.SetConfigValue("llm.max_tokens", "lots")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ValidConfigKeys", func() {
		It("covers every registered key exactly once", func() {
			keys := config.ValidConfigKeys()
			seen := map[string]int{}
			for _, k := range keys {
				seen[k]++
				Expect(config.IsValidConfigKey(k)).To(BeTrue())
			}
			for k, n := range seen {
				Expect(n).To(Equal(1), "duplicate key %q", k)
			}
		})
	})
})

var _ = Describe("InitViper", func() {
	It("applies environment variables over file values", func() {
		tmpDir, err := os.MkdirTemp("", "folio-viper-test-*")
		Expect(err).NotTo(HaveOccurred())
		defer os.RemoveAll(tmpDir)

		path := filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(path, []byte("[embedding]\nmodel = \"from-file\"\n"), 0o600)).To(Succeed())

		os.Setenv("FOLIO_EMBEDDING_MODEL", "from-env")
		defer os.Unsetenv("FOLIO_EMBEDDING_MODEL")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("embedding.model")).To(Equal("from-env"))

		cfg := config.FromViper(v)
		Expect(cfg.Embedding.Model).To(Equal("from-env"))
		Expect(cfg.API.Listen).To(Equal(":5001"))
	})
})
