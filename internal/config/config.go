package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// LLMConfig configures the chat-completion gateway. The API key is never
// read from the file; it comes from the environment.
type LLMConfig struct {
	BaseURL          string  `yaml:"base_url"`
	APIKeyEnv        string  `yaml:"api_key_env"`
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	TopP             float64 `yaml:"top_p"`
	MaxTokens        int     `yaml:"max_tokens"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
	TimeoutSecs      int     `yaml:"timeout_secs"`

	// APIKey is resolved from APIKeyEnv at load time.
	APIKey string `yaml:"-"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible
// embeddings endpoint.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	Workers     int    `yaml:"workers"`
}

// EmbedderConfig selects and configures the embedding provider.
type EmbedderConfig struct {
	Type      string                `yaml:"type"` // "openai" or "hashing"
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// RetrievalConfig bounds the kernel and the per-user stores.
type RetrievalConfig struct {
	TopK               int `yaml:"top_k"`
	SmartFullCeiling   int `yaml:"smart_full_ceiling"`
	AnalyticalSample   int `yaml:"analytical_sample"`
	CorpusMaxDocs      int `yaml:"corpus_max_docs"`
	StoreTTLSecs       int `yaml:"store_ttl_secs"`
	DefaultPageSize    int `yaml:"default_page_size"`
	ContextBudgetChars int `yaml:"context_budget_chars"`
	CacheTTLSecs       int `yaml:"cache_ttl_secs"`
}

// HistoryConfig points at the chat-history store. Empty URL disables it.
type HistoryConfig struct {
	URL string `yaml:"url"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedder  EmbedderConfig  `yaml:"embedder"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	History   HistoryConfig   `yaml:"history"`
	LogLevel  string          `yaml:"log_level"`
}

// Load reads a config from the given path, falling back to defaults when
// the file does not exist, then applies environment overrides. Load does not
// check the LLM API key; Validate rejects a configuration without one.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case errors.Is(err, os.ErrNotExist):
			// defaults
		default:
			return nil, err
		}
	}
	applyDefaults(cfg)
	applyEnv(cfg)
	return cfg, nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Addr: ":9000", AllowOrigins: []string{"*"}},
		LLM: LLMConfig{
			BaseURL:          "https://openrouter.ai/api/v1",
			APIKeyEnv:        "LLM_API_KEY",
			Model:            "meta-llama/llama-3.2-3b-instruct:free",
			Temperature:      0.8,
			TopP:             0.9,
			MaxTokens:        3000,
			FrequencyPenalty: 0.3,
			PresencePenalty:  0.3,
			TimeoutSecs:      60,
		},
		Embedder: EmbedderConfig{Type: "openai", Dimension: 384},
		Retrieval: RetrievalConfig{
			TopK:               50,
			SmartFullCeiling:   200,
			AnalyticalSample:   60,
			CorpusMaxDocs:      500000,
			StoreTTLSecs:       3600,
			DefaultPageSize:    20,
			ContextBudgetChars: 48000,
			CacheTTLSecs:       1800,
		},
		LogLevel: "info",
	}
}

func applyDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		cfg.Server.AllowOrigins = def.Server.AllowOrigins
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = def.LLM.TimeoutSecs
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = def.LLM.Temperature
	}
	if cfg.LLM.TopP == 0 {
		cfg.LLM.TopP = def.LLM.TopP
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = def.Embedder.Dimension
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		o := cfg.Embedder.OpenAI
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "LLM_API_KEY"
		}
		if o.Model == "" {
			o.Model = "sentence-transformers/all-MiniLM-L6-v2"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 30
		}
		if o.BatchSize == 0 {
			o.BatchSize = 64
		}
		if o.Workers == 0 {
			o.Workers = 4
		}
	}
	r, dr := &cfg.Retrieval, def.Retrieval
	if r.TopK == 0 {
		r.TopK = dr.TopK
	}
	if r.SmartFullCeiling == 0 {
		r.SmartFullCeiling = dr.SmartFullCeiling
	}
	if r.AnalyticalSample == 0 {
		r.AnalyticalSample = dr.AnalyticalSample
	}
	if r.CorpusMaxDocs == 0 {
		r.CorpusMaxDocs = dr.CorpusMaxDocs
	}
	if r.StoreTTLSecs == 0 {
		r.StoreTTLSecs = dr.StoreTTLSecs
	}
	if r.DefaultPageSize == 0 {
		r.DefaultPageSize = dr.DefaultPageSize
	}
	if r.ContextBudgetChars == 0 {
		r.ContextBudgetChars = dr.ContextBudgetChars
	}
	if r.CacheTTLSecs == 0 {
		r.CacheTTLSecs = dr.CacheTTLSecs
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
}

// applyEnv lets the documented environment variables override the file.
func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v, ok := envFloat("LLM_TEMPERATURE"); ok {
		cfg.LLM.Temperature = v
	}
	if v, ok := envInt("LLM_MAX_TOKENS"); ok {
		cfg.LLM.MaxTokens = v
	}
	if v, ok := envInt("LLM_TIMEOUT_SECONDS"); ok {
		cfg.LLM.TimeoutSecs = v
	}
	if v := os.Getenv("EMBEDDING_MODEL_ID"); v != "" && cfg.Embedder.OpenAI != nil {
		cfg.Embedder.OpenAI.Model = v
	}
	if v, ok := envInt("VECTOR_TOP_K"); ok {
		cfg.Retrieval.TopK = v
	}
	if v, ok := envInt("CORPUS_MAX_DOCS"); ok {
		cfg.Retrieval.CorpusMaxDocs = v
	}
	if v, ok := envInt("STORE_TTL_SECONDS"); ok {
		cfg.Retrieval.StoreTTLSecs = v
	}
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = splitTrim(v)
	}
	if v := os.Getenv("CHAT_HISTORY_URL"); v != "" {
		cfg.History.URL = v
	}
	cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
}

// Validate checks the parts that must be present before serving.
func (cfg *AppConfig) Validate() error {
	if cfg.LLM.APIKey == "" {
		return errors.New("missing LLM API key: set " + cfg.LLM.APIKeyEnv)
	}
	return nil
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
