package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/adapter"
	"github.com/m-mizutani/tidepool/pkg/repository"
	"github.com/m-mizutani/tidepool/pkg/retrieval"
	"github.com/m-mizutani/tidepool/pkg/usecase/agent"
	"github.com/m-mizutani/tidepool/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel string

	// Optional yaml file with retrieval parameters
	configFile string

	// Adapters
	geminiProject   string
	geminiLocation  string
	generativeModel string
	embeddingModel  string

	// Agent
	maxTurns int64

	// Retrieval
	docsDir       string
	chunkSize     int64
	topK          int64
	embedIndex    bool
	vectorWeight  float64
	keywordWeight float64
}

// fileConfig is the yaml shape of the optional config file. Explicit CLI
// flags win over file values.
type fileConfig struct {
	GenerativeModel string             `yaml:"generative_model"`
	EmbeddingModel  string             `yaml:"embedding_model"`
	ChunkSize       int                `yaml:"chunk_size"`
	TopK            int                `yaml:"top_k"`
	Weights         *retrieval.Weights `yaml:"weights"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("TIDEPOOL_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to yaml config file with retrieval parameters",
			Sources:     cli.EnvVars("TIDEPOOL_CONFIG"),
			Destination: &cfg.configFile,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "generative-model",
			Usage:       "Gemini model for generation",
			Sources:     cli.EnvVars("TIDEPOOL_GENERATIVE_MODEL"),
			Destination: &cfg.generativeModel,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Gemini model for embeddings",
			Sources:     cli.EnvVars("TIDEPOOL_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "max-turns",
			Usage:       "Maximum model/tool round trips per message",
			Value:       agent.DefaultMaxTurns,
			Sources:     cli.EnvVars("TIDEPOOL_MAX_TURNS"),
			Destination: &cfg.maxTurns,
		},
	}
}

// retrievalFlags returns flags controlling document loading and indexing
func retrievalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "docs",
			Aliases:     []string{"d"},
			Usage:       "Directory of *.txt documents to index",
			Sources:     cli.EnvVars("TIDEPOOL_DOCS_DIR"),
			Destination: &cfg.docsDir,
			Required:    true,
		},
		&cli.IntFlag{
			Name:        "chunk-size",
			Usage:       "Words per chunk",
			Value:       retrieval.DefaultChunkSize,
			Sources:     cli.EnvVars("TIDEPOOL_CHUNK_SIZE"),
			Destination: &cfg.chunkSize,
		},
		&cli.IntFlag{
			Name:        "top-k",
			Usage:       "Default number of chunks per retrieval",
			Value:       retrieval.DefaultTopK,
			Sources:     cli.EnvVars("TIDEPOOL_TOP_K"),
			Destination: &cfg.topK,
		},
		&cli.BoolFlag{
			Name:        "embed-index",
			Usage:       "Embed all chunks at startup to enable vector and hybrid modes",
			Sources:     cli.EnvVars("TIDEPOOL_EMBED_INDEX"),
			Destination: &cfg.embedIndex,
		},
		&cli.FloatFlag{
			Name:        "vector-weight",
			Usage:       "Hybrid score weight of vector similarity",
			Value:       retrieval.DefaultWeights.Vector,
			Sources:     cli.EnvVars("TIDEPOOL_VECTOR_WEIGHT"),
			Destination: &cfg.vectorWeight,
		},
		&cli.FloatFlag{
			Name:        "keyword-weight",
			Usage:       "Hybrid score weight of raw keyword count",
			Value:       retrieval.DefaultWeights.Keyword,
			Sources:     cli.EnvVars("TIDEPOOL_KEYWORD_WEIGHT"),
			Destination: &cfg.keywordWeight,
		},
	}
}

// setupLogger builds the logger from config and attaches it to the context
func (cfg *config) setupLogger(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// applyFile merges values from the yaml config file. Flags that were set
// explicitly on the command line keep their values.
func (cfg *config) applyFile(c *cli.Command) error {
	if cfg.configFile == "" {
		return nil
	}

	raw, err := os.ReadFile(cfg.configFile)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", cfg.configFile))
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", cfg.configFile))
	}

	if file.GenerativeModel != "" && !c.IsSet("generative-model") {
		cfg.generativeModel = file.GenerativeModel
	}
	if file.EmbeddingModel != "" && !c.IsSet("embedding-model") {
		cfg.embeddingModel = file.EmbeddingModel
	}
	if file.ChunkSize > 0 && !c.IsSet("chunk-size") {
		cfg.chunkSize = int64(file.ChunkSize)
	}
	if file.TopK > 0 && !c.IsSet("top-k") {
		cfg.topK = int64(file.TopK)
	}
	if file.Weights != nil {
		if !c.IsSet("vector-weight") {
			cfg.vectorWeight = file.Weights.Vector
		}
		if !c.IsSet("keyword-weight") {
			cfg.keywordWeight = file.Weights.Keyword
		}
	}

	return nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiProject == "" {
		return nil, goerr.New("gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	var opts []adapter.GeminiOption
	if cfg.generativeModel != "" {
		opts = append(opts, adapter.WithGenerativeModel(cfg.generativeModel))
	}
	if cfg.embeddingModel != "" {
		opts = append(opts, adapter.WithEmbeddingModel(cfg.embeddingModel))
	}

	gemini, err := adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini adapter")
	}
	return gemini, nil
}

// newRetriever loads the documents, chunks them, and builds the index. With
// embed-index enabled every chunk is embedded up front so vector and hybrid
// modes work; otherwise the index is keyword-only.
func (cfg *config) newRetriever(ctx context.Context, gemini adapter.Gemini) (*retrieval.Retriever, error) {
	docs, err := repository.NewDocStore(cfg.docsDir).Load(ctx)
	if err != nil {
		return nil, err
	}

	chunks := retrieval.ChunkDocuments(docs, int(cfg.chunkSize))
	logging.From(ctx).Info("indexed documents",
		"documents", len(docs), "chunks", len(chunks), "embed", cfg.embedIndex)

	var index *retrieval.Index
	if cfg.embedIndex {
		index, err = retrieval.BuildVectorIndex(ctx, gemini, chunks)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to build vector index")
		}
	} else {
		index = retrieval.NewIndex(chunks)
	}

	return retrieval.NewRetriever(index, gemini,
		retrieval.WithTopK(int(cfg.topK)),
		retrieval.WithWeights(retrieval.Weights{
			Vector:  cfg.vectorWeight,
			Keyword: cfg.keywordWeight,
		}),
	), nil
}
