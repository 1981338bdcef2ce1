package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/gamma-omg/mgmt-knowledge/chunker"
	"github.com/gamma-omg/mgmt-knowledge/corpus"
	"github.com/gamma-omg/mgmt-knowledge/ingest"
	"github.com/gamma-omg/mgmt-knowledge/llm"
	"github.com/gamma-omg/mgmt-knowledge/search"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type EmbeddingConfig struct {
	Model  string `yaml:"model"`
	ApiKey string `yaml:"api_key"`
}

type Config struct {
	LogFile    string `yaml:"log"`
	LogLevel   string `yaml:"log_level"`
	ServerAddr string `yaml:"server_addr"`
	MCPAddr    string `yaml:"mcp_addr"`
	Corpus     struct {
		Path          string `yaml:"path"`
		Namespace     string `yaml:"default_namespace"`
		Watch         bool   `yaml:"watch"`
		MergeEventsMs int    `yaml:"write_debounce_ms"`
	} `yaml:"corpus"`
	Search struct {
		Strategy       string  `yaml:"strategy"`
		MinVectorScore float64 `yaml:"min_vector_score"`
	} `yaml:"search"`
	AI struct {
		Provider     string `yaml:"provider"`
		Model        string `yaml:"model"`
		ApiKey       string `yaml:"api_key"`
		BaseURL      string `yaml:"base_url"`
		MaxTokens    int    `yaml:"max_tokens"`
		Retries      int    `yaml:"retries"`
		RetryDelayMs int    `yaml:"retry_delay_ms"`
	} `yaml:"ai"`
	Ingestion struct {
		MaterialsDir    string   `yaml:"materials_dir"`
		OutputDir       string   `yaml:"output_dir"`
		ChunkSizeMin    int      `yaml:"chunk_size_min"`
		ChunkSizeMax    int      `yaml:"chunk_size_max"`
		MaxChunksPerDoc int      `yaml:"max_chunks_per_doc"`
		MinWords        int      `yaml:"min_words"`
		WindowSize      int      `yaml:"window_size"`
		Workers         int      `yaml:"workers"`
		OutputFormats   []string `yaml:"output_formats"`
		CacheDir        string   `yaml:"cache_dir"`
		Gzip            bool     `yaml:"gzip"`
	} `yaml:"ingestion"`
	Chroma *struct {
		BaseURL          string           `yaml:"base_url"`
		CollectionPrefix string           `yaml:"collection_prefix"`
		Namespaces       []string         `yaml:"namespaces"`
		RequestSize      int              `yaml:"request_size"`
		Results          int              `yaml:"results"`
		OpenAI           *EmbeddingConfig `yaml:"open_ai"`
		Gemini           *EmbeddingConfig `yaml:"gemini"`
	} `yaml:"chroma"`
}

// readConfig loads .env, then the YAML file at cfgPath. A missing file is an
// error only when required is set; otherwise defaults and the environment
// are used alone.
func readConfig(cfgPath string, required bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("unable to load .env file: %w", err)
	}

	cfg := &Config{}
	cfgFile, err := os.Open(cfgPath)
	switch {
	case err == nil:
		defer cfgFile.Close()
		dec := yaml.NewDecoder(cfgFile)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config file: %w", err)
		}
	case required || !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("unable to open config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) applyEnv() {
	setFromEnv(&cfg.AI.Provider, "AI_PROVIDER")
	setFromEnv(&cfg.AI.Model, "AI_MODEL")
	setFromEnv(&cfg.Ingestion.MaterialsDir, "MATERIALS_DIR")
	setFromEnv(&cfg.Ingestion.OutputDir, "OUTPUT_DIR")
	setFromEnv(&cfg.LogLevel, "LOG_LEVEL")
	if port := os.Getenv("PORT"); port != "" {
		cfg.ServerAddr = ":" + port
	}

	if cfg.AI.ApiKey == "" {
		provider := llm.Provider(strings.ToLower(cfg.AI.Provider))
		if provider == "" {
			provider = llm.ProviderAnthropic
		}
		cfg.AI.ApiKey = os.Getenv(llm.APIKeyEnv[provider])
	}

	if cfg.Chroma != nil {
		if e := cfg.Chroma.OpenAI; e != nil && e.ApiKey == "" {
			e.ApiKey = os.Getenv(llm.APIKeyEnv[llm.ProviderOpenAI])
		}
		if e := cfg.Chroma.Gemini; e != nil && e.ApiKey == "" {
			e.ApiKey = os.Getenv(llm.APIKeyEnv[llm.ProviderGemini])
		}
	}
}

func setFromEnv(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (cfg *Config) applyDefaults() {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}
	if cfg.MCPAddr == "" {
		cfg.MCPAddr = "localhost:8081"
	}

	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "output/chromadb_data/chunks_data.json"
	}
	if cfg.Corpus.Namespace == "" {
		cfg.Corpus.Namespace = corpus.DefaultNamespace
	}
	if cfg.Corpus.MergeEventsMs <= 0 {
		cfg.Corpus.MergeEventsMs = 500
	}

	if cfg.Search.Strategy == "" {
		cfg.Search.Strategy = string(search.ModeHybrid)
	}

	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = string(llm.ProviderAnthropic)
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = chunker.DefaultMaxTokens
	}
	if cfg.AI.Retries <= 0 {
		cfg.AI.Retries = 3
	}
	if cfg.AI.RetryDelayMs <= 0 {
		cfg.AI.RetryDelayMs = 1000
	}

	in := &cfg.Ingestion
	if in.MaterialsDir == "" {
		in.MaterialsDir = "materials"
	}
	if in.OutputDir == "" {
		in.OutputDir = "output"
	}
	if in.ChunkSizeMin <= 0 {
		in.ChunkSizeMin = chunker.DefaultTarget.Min
	}
	if in.ChunkSizeMax <= 0 {
		in.ChunkSizeMax = chunker.DefaultTarget.Max
	}
	if in.MaxChunksPerDoc <= 0 {
		in.MaxChunksPerDoc = chunker.DefaultMaxChunks
	}
	if in.MinWords <= 0 {
		in.MinWords = chunker.DefaultMinWords
	}
	if in.WindowSize <= 0 {
		in.WindowSize = chunker.DefaultWindowSize
	}
	if len(in.OutputFormats) == 0 {
		in.OutputFormats = ingest.DefaultFormats
	}

	if cfg.Chroma != nil {
		if cfg.Chroma.BaseURL == "" {
			cfg.Chroma.BaseURL = "http://localhost:8000"
		}
		if len(cfg.Chroma.Namespaces) == 0 {
			cfg.Chroma.Namespaces = []string{cfg.Corpus.Namespace}
		}
	}
}

func (cfg *Config) validate() error {
	switch search.Mode(cfg.Search.Strategy) {
	case search.ModeKeyword, search.ModeVector, search.ModeHybrid:
	default:
		return fmt.Errorf("%w: %q", search.ErrUnknownMode, cfg.Search.Strategy)
	}

	if llm.DefaultModel(llm.Provider(cfg.AI.Provider)) == "" {
		return fmt.Errorf("%w: %q", llm.ErrUnknownProvider, cfg.AI.Provider)
	}

	if _, err := ingest.ParseFormats(cfg.Ingestion.OutputFormats); err != nil {
		return err
	}

	if cfg.Ingestion.ChunkSizeMin > cfg.Ingestion.ChunkSizeMax {
		return fmt.Errorf("chunk_size_min %d exceeds chunk_size_max %d",
			cfg.Ingestion.ChunkSizeMin, cfg.Ingestion.ChunkSizeMax)
	}

	if cfg.Chroma != nil && cfg.Chroma.OpenAI == nil && cfg.Chroma.Gemini == nil {
		return errors.New("chroma requires an open_ai or gemini embedding configuration")
	}

	return nil
}

func (cfg *Config) llmConfig() llm.Config {
	return llm.Config{
		Provider:   llm.Provider(cfg.AI.Provider),
		Model:      cfg.AI.Model,
		APIKey:     cfg.AI.ApiKey,
		BaseURL:    cfg.AI.BaseURL,
		Retries:    cfg.AI.Retries,
		RetryDelay: msDuration(cfg.AI.RetryDelayMs),
	}
}

func (cfg *Config) target() chunker.WordRange {
	return chunker.WordRange{Min: cfg.Ingestion.ChunkSizeMin, Max: cfg.Ingestion.ChunkSizeMax}
}
