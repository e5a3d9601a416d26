// Package servecmder provides the serve command for running the folio server.
package servecmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papernoteco/folio/api"
	"github.com/papernoteco/folio/cmd/folio/sqlitepath"
	"github.com/papernoteco/folio/pkg/config"
	embeddingutils "github.com/papernoteco/folio/pkg/embeddings/utils"
	"github.com/papernoteco/folio/pkg/extract/pdf"
	"github.com/papernoteco/folio/pkg/library"
	"github.com/papernoteco/folio/pkg/llm"
	llmutils "github.com/papernoteco/folio/pkg/llm/utils"
	"github.com/papernoteco/folio/pkg/logger"
	"github.com/papernoteco/folio/pkg/rag"
	"github.com/papernoteco/folio/pkg/vector"
	vectorutils "github.com/papernoteco/folio/pkg/vector/utils"
)

type ServeCommander struct {
	listen         string
	sqlitePath     string
	vectorProvider string
	vectorTarget   string
	vectorColl     string
	embedProvider  string
	embedTarget    string
	embedModel     string
	embedDims      uint
	llmProvider    string
	llmTarget      string
	llmModel       string
	debug          bool
	logger         *zap.Logger
}

const serveLongDesc string = `Run the folio server.

The server exposes the upload and question answering API. It needs a vector
store for embeddings (qdrant by default), an embedding provider (ollama by
default), and an answer generation provider (huggingface by default).

Provider API keys are read from the environment:
  HF_API_KEY        Hugging Face inference API key
  OPENAI_API_KEY    OpenAI API key`

const serveShortDesc string = "Run the folio server"

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStoreColl,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMProv,
	config.FlagLLMTgt,
	config.FlagLLMModel,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}

			configDir, _ := cmd.Flags().GetString("config-dir")
			cfg, err := resolveConfig(cmd, configDir)
			if err != nil {
				return err
			}
			return cmder.run(cfg)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreColl, &cmder.vectorColl)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMProv, &cmder.llmProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMTgt, &cmder.llmTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &cmder.llmModel)

	return cmd
}

// resolveConfig materializes the effective config from the viper precedence
// chain: flags over env over config file over defaults.
func resolveConfig(cmd *cobra.Command, configDir string) (*config.Config, error) {
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("initializing config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, serveFlagKeys)
	return config.FromViper(v), nil
}

func (c *ServeCommander) run(cfg *config.Config) error {
	c.logger = logger.NewLogger(c.debug)
	defer c.logger.Sync()

	driver, err := vectorutils.NewVectorDriver(&vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       cfg.VectorStore.Target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating vector driver: %w", err)
	}

	index := vector.NewIndex(driver, vector.DefaultWritePolicy(), c.logger)
	defer index.Close()

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		Dimensions:   cfg.Embedding.Dimensions,
		APIKey:       os.Getenv("OPENAI_API_KEY"),
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	generator, err := llmutils.NewGenerator(&llmutils.NewGeneratorOpts{
		ProviderType: cfg.LLM.Provider,
		TargetURL:    cfg.LLM.Target,
		Model:        cfg.LLM.Model,
		APIKey:       generatorAPIKey(cfg.LLM.Provider),
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	defer generator.Close()

	dbPath, err := sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("resolving library path: %w", err)
	}
	lib, err := library.New(dbPath, c.logger)
	if err != nil {
		return fmt.Errorf("opening library: %w", err)
	}
	defer lib.Close()

	pipeline := rag.NewPipeline(index, embedder, generator, c.logger,
		rag.WithGeneration(llm.Options{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}),
	)

	server := api.NewServer(api.Config{
		ListenAddr:  cfg.API.Listen,
		CORSOrigins: cfg.API.CORSOrigins,
		TempDir:     cfg.API.TempDir,
	}, pipeline, pdf.NewExtractor(c.logger), index, lib, c.logger)

	c.logger.Info("starting folio",
		zap.String("listen", cfg.API.Listen),
		zap.String("vector_store", cfg.VectorStore.Provider),
		zap.String("embedding", cfg.Embedding.Provider),
		zap.String("llm", cfg.LLM.Provider),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

// generatorAPIKey picks the credential env var for the generation provider.
func generatorAPIKey(provider string) string {
	switch provider {
	case "huggingface":
		return os.Getenv("HF_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	default:
		return ""
	}
}
