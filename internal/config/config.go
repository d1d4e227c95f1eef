// Package config loads and validates the retrieval core's configuration:
// defaults, then a TOML file, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/ragcore/ragcore/internal/ragerr"
)

// ExecutionProviderPreference selects which inference execution provider
// the process should try to acquire at startup.
type ExecutionProviderPreference string

const (
	ExecutionProviderAuto ExecutionProviderPreference = "auto"
	ExecutionProviderCPU  ExecutionProviderPreference = "cpu"
	ExecutionProviderGPU  ExecutionProviderPreference = "gpu"
)

// Config is the complete recognized configuration surface for the
// retrieval core, all fields optional with defaults applied by Defaults.
type Config struct {
	EmbeddingModelPath string `toml:"embedding_model_path"`
	RerankerModelPath  string `toml:"reranker_model_path"`

	ChunkStorePath   string `toml:"chunk_store_path"`
	VectorIndexPath  string `toml:"vector_index_path"`
	LexicalIndexPath string `toml:"lexical_index_path"`

	LLMEndpoint           string  `toml:"llm_endpoint"`
	LLMModel              string  `toml:"llm_model"`
	Temperature           float64 `toml:"temperature"`
	TopP                  float64 `toml:"top_p"`
	MaxTokens             int     `toml:"max_tokens"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`

	EnableSemanticChunking bool `toml:"enable_semantic_chunking"`
	ChunkSize              int  `toml:"chunk_size"`
	ChunkOverlap           int  `toml:"chunk_overlap"`

	EmbeddingBatchSize int `toml:"embedding_batch_size"`
	EmbeddingDimension int `toml:"embedding_dimension"`

	EnableQueryExpansion bool `toml:"enable_query_expansion"`
	QueryExpansionCount  int  `toml:"query_expansion_count"`

	EnableHybridSearch bool    `toml:"enable_hybrid_search"`
	HybridAlpha        float64 `toml:"hybrid_alpha"`

	EnableReranking bool `toml:"enable_reranking"`
	RerankTopK      int  `toml:"rerank_top_k"`
	DefaultTopK     int  `toml:"default_top_k"`

	ExecutionProviderPreference ExecutionProviderPreference `toml:"execution_provider_preference"`
	GPUDeviceID                 int                          `toml:"gpu_device_id"`
}

// Defaults returns a Config populated with every spec-mandated default.
func Defaults() *Config {
	return &Config{
		ChunkStorePath:   "ragcore-chunks.db",
		VectorIndexPath:  "ragcore-vectors.bin",
		LexicalIndexPath: "ragcore-lexicon",

		Temperature:           0.1,
		TopP:                  0.9,
		MaxTokens:             500,
		RequestTimeoutSeconds: 180,

		EnableSemanticChunking: false,
		ChunkSize:              1600,
		ChunkOverlap:           200,

		EmbeddingBatchSize: 16,
		EmbeddingDimension: 384,

		EnableQueryExpansion: true,
		QueryExpansionCount:  3,

		EnableHybridSearch: true,
		HybridAlpha:        0.7,

		EnableReranking: true,
		RerankTopK:      20,
		DefaultTopK:     7,

		ExecutionProviderPreference: ExecutionProviderAuto,
		GPUDeviceID:                 0,
	}
}

// appName names the directory/file this config is stored under.
const appName = "ragcore"

// GetUserConfigPath returns the path to the user/global configuration
// file, following the XDG Base Directory specification.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", appName, "config.toml")
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load applies, in order of increasing precedence: hardcoded defaults, the
// user/global config file, a project config file (ragcore.toml in dir),
// then RAGCORE_* environment variables. The result is validated before
// being returned.
func Load(dir string) (*Config, error) {
	cfg := Defaults()

	if err := mergeFile(cfg, GetUserConfigPath()); err != nil {
		return nil, err
	}
	if err := mergeFile(cfg, filepath.Join(dir, "ragcore.toml")); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile decodes a TOML file over cfg if the file exists; a missing file
// is not an error.
func mergeFile(cfg *Config, path string) error {
	if !fileExists(path) {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ragerr.Configuration("ERR_CONFIG_READ", fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return ragerr.Configuration("ERR_CONFIG_PARSE", fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

// applyEnvOverrides applies RAGCORE_* environment variable overrides, the
// highest-precedence configuration source.
func (c *Config) applyEnvOverrides() {
	strVar(&c.EmbeddingModelPath, "RAGCORE_EMBEDDING_MODEL_PATH")
	strVar(&c.RerankerModelPath, "RAGCORE_RERANKER_MODEL_PATH")
	strVar(&c.ChunkStorePath, "RAGCORE_CHUNK_STORE_PATH")
	strVar(&c.VectorIndexPath, "RAGCORE_VECTOR_INDEX_PATH")
	strVar(&c.LexicalIndexPath, "RAGCORE_LEXICAL_INDEX_PATH")
	strVar(&c.LLMEndpoint, "RAGCORE_LLM_ENDPOINT")
	strVar(&c.LLMModel, "RAGCORE_LLM_MODEL")

	floatVar(&c.Temperature, "RAGCORE_TEMPERATURE")
	floatVar(&c.TopP, "RAGCORE_TOP_P")
	intVar(&c.MaxTokens, "RAGCORE_MAX_TOKENS")
	intVar(&c.RequestTimeoutSeconds, "RAGCORE_REQUEST_TIMEOUT_SECONDS")

	boolVar(&c.EnableSemanticChunking, "RAGCORE_ENABLE_SEMANTIC_CHUNKING")
	intVar(&c.ChunkSize, "RAGCORE_CHUNK_SIZE")
	intVar(&c.ChunkOverlap, "RAGCORE_CHUNK_OVERLAP")

	intVar(&c.EmbeddingBatchSize, "RAGCORE_EMBEDDING_BATCH_SIZE")
	intVar(&c.EmbeddingDimension, "RAGCORE_EMBEDDING_DIMENSION")

	boolVar(&c.EnableQueryExpansion, "RAGCORE_ENABLE_QUERY_EXPANSION")
	intVar(&c.QueryExpansionCount, "RAGCORE_QUERY_EXPANSION_COUNT")

	boolVar(&c.EnableHybridSearch, "RAGCORE_ENABLE_HYBRID_SEARCH")
	floatVar(&c.HybridAlpha, "RAGCORE_HYBRID_ALPHA")

	boolVar(&c.EnableReranking, "RAGCORE_ENABLE_RERANKING")
	intVar(&c.RerankTopK, "RAGCORE_RERANK_TOP_K")
	intVar(&c.DefaultTopK, "RAGCORE_DEFAULT_TOP_K")

	if v := os.Getenv("RAGCORE_EXECUTION_PROVIDER_PREFERENCE"); v != "" {
		c.ExecutionProviderPreference = ExecutionProviderPreference(strings.ToLower(v))
	}
	intVar(&c.GPUDeviceID, "RAGCORE_GPU_DEVICE_ID")
}

func strVar(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func boolVar(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func intVar(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func floatVar(dst *float64, env string) {
	if v := os.Getenv(env); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// Validate checks every invariant the spec places on the configuration
// surface. It collects every violation before returning so a caller sees
// the whole list in one pass instead of fixing and rerunning one at a time.
func (c *Config) Validate() error {
	var violations []string

	if c.ChunkSize <= 0 {
		violations = append(violations, fmt.Sprintf("chunk_size must be > 0, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap >= c.ChunkSize {
		violations = append(violations,
			fmt.Sprintf("chunk_overlap must be < chunk_size, got overlap=%d size=%d", c.ChunkOverlap, c.ChunkSize))
	}
	if c.QueryExpansionCount < 1 {
		violations = append(violations,
			fmt.Sprintf("query_expansion_count must be >= 1, got %d", c.QueryExpansionCount))
	}
	if c.HybridAlpha < 0 || c.HybridAlpha > 1 {
		violations = append(violations, fmt.Sprintf("hybrid_alpha must be in [0,1], got %f", c.HybridAlpha))
	}
	if c.DefaultTopK <= 0 {
		violations = append(violations, fmt.Sprintf("default_top_k must be > 0, got %d", c.DefaultTopK))
	}
	switch c.ExecutionProviderPreference {
	case ExecutionProviderAuto, ExecutionProviderCPU, ExecutionProviderGPU:
	default:
		violations = append(violations,
			fmt.Sprintf("execution_provider_preference must be auto, cpu, or gpu, got %q", c.ExecutionProviderPreference))
	}

	if len(violations) == 0 {
		return nil
	}
	return ragerr.Configuration("ERR_CONFIG_INVALID",
		fmt.Sprintf("%d configuration violation(s): %s", len(violations), strings.Join(violations, "; ")), nil)
}

// WriteTOML serializes the configuration to path.
func (c *Config) WriteTOML(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return ragerr.Configuration("ERR_CONFIG_MARSHAL", "failed to marshal config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ragerr.Configuration("ERR_CONFIG_WRITE", fmt.Sprintf("failed to write config file %s", path), err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
