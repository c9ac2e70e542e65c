// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultUserAgent identifies the crawler to the handbook's operators.
const DefaultUserAgent = "handbook-ingest-bot/1.0 (contact: ops@example.com)"

// DefaultSeeds are the handbook section roots crawled when no seeds are given.
var DefaultSeeds = []string{
	"https://about.gitlab.com/handbook/people-group/",
	"https://about.gitlab.com/handbook/finance/",
	"https://about.gitlab.com/handbook/security/",
	"https://about.gitlab.com/handbook/legal/",
}

// Config captures every knob for the ingestion pipeline, loaded via Viper
// from file, environment, or CLI flags.
type Config struct {
	Crawl   CrawlConfig   `mapstructure:"crawl"`
	Clean   CleanConfig   `mapstructure:"clean"`
	Chunk   ChunkConfig   `mapstructure:"chunk"`
	Embed   EmbedConfig   `mapstructure:"embed"`
	Status  StatusConfig  `mapstructure:"status"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// CrawlConfig governs the crawler core: scope, budget, concurrency, and
// politeness behavior.
type CrawlConfig struct {
	OutDir         string   `mapstructure:"out_dir"`
	MaxPages       int      `mapstructure:"max_pages"`
	Concurrency    int      `mapstructure:"concurrency"`
	TimeoutSeconds float64  `mapstructure:"timeout_seconds"`
	Retries        int      `mapstructure:"retries"`
	DelaySeconds   float64  `mapstructure:"delay_seconds"`
	JitterSeconds  float64  `mapstructure:"jitter_seconds"`
	UserAgent      string   `mapstructure:"user_agent"`
	Seeds          []string `mapstructure:"seeds"`
	AllowedHost    string   `mapstructure:"allowed_host"`
	AllowedPrefix  string   `mapstructure:"allowed_prefix"`
	Fetcher        string   `mapstructure:"fetcher"`
}

// CleanConfig points the cleaning stage at its input and output locations.
type CleanConfig struct {
	RawPagesDir string `mapstructure:"raw_pages_dir"`
	OutPath     string `mapstructure:"out_path"`
}

// ChunkConfig controls the heading-aware chunking stage.
type ChunkConfig struct {
	InPath       string `mapstructure:"in_path"`
	OutPath      string `mapstructure:"out_path"`
	MaxChars     int    `mapstructure:"max_chars"`
	OverlapChars int    `mapstructure:"overlap_chars"`
}

// EmbedConfig configures the embedding stage and its HTTP endpoint.
type EmbedConfig struct {
	InPath         string  `mapstructure:"in_path"`
	OutPath        string  `mapstructure:"out_path"`
	Endpoint       string  `mapstructure:"endpoint"`
	Model          string  `mapstructure:"model"`
	BatchSize      int     `mapstructure:"batch_size"`
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
	APIKeyEnv      string  `mapstructure:"api_key_env"`
}

// StatusConfig toggles the HTTP status/metrics server exposed during a crawl.
type StatusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from an optional config file plus environment
// overrides, applies defaults, and validates the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.out_dir", "data/raw")
	v.SetDefault("crawl.max_pages", 80)
	v.SetDefault("crawl.concurrency", 4)
	v.SetDefault("crawl.timeout_seconds", 10.0)
	v.SetDefault("crawl.retries", 2)
	v.SetDefault("crawl.delay_seconds", 0.7)
	v.SetDefault("crawl.jitter_seconds", 0.5)
	v.SetDefault("crawl.user_agent", DefaultUserAgent)
	v.SetDefault("crawl.seeds", DefaultSeeds)
	v.SetDefault("crawl.allowed_host", "about.gitlab.com")
	v.SetDefault("crawl.allowed_prefix", "/handbook/")
	v.SetDefault("crawl.fetcher", "http")
	v.SetDefault("clean.raw_pages_dir", "data/raw/pages")
	v.SetDefault("clean.out_path", "data/clean/handbook_clean.jsonl")
	v.SetDefault("chunk.in_path", "data/clean/handbook_clean.jsonl")
	v.SetDefault("chunk.out_path", "data/chunks/handbook_chunks.jsonl")
	v.SetDefault("chunk.max_chars", 1200)
	v.SetDefault("chunk.overlap_chars", 200)
	v.SetDefault("embed.in_path", "data/chunks/handbook_chunks.jsonl")
	v.SetDefault("embed.out_path", "data/embeddings/handbook_embeddings.jsonl")
	v.SetDefault("embed.endpoint", "http://localhost:8089/v1/embeddings")
	v.SetDefault("embed.model", "sentence-transformers/all-MiniLM-L6-v2")
	v.SetDefault("embed.batch_size", 16)
	v.SetDefault("embed.timeout_seconds", 30.0)
	v.SetDefault("embed.api_key_env", "EMBEDDINGS_API_KEY")
	v.SetDefault("status.enabled", false)
	v.SetDefault("status.addr", ":9190")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawl.OutDir == "" {
		return fmt.Errorf("crawl.out_dir must be set")
	}
	if c.Crawl.MaxPages < 0 {
		return fmt.Errorf("crawl.max_pages must be >= 0")
	}
	if c.Crawl.Concurrency < 1 {
		return fmt.Errorf("crawl.concurrency must be >= 1")
	}
	if c.Crawl.TimeoutSeconds < 0 {
		return fmt.Errorf("crawl.timeout_seconds must be >= 0")
	}
	if c.Crawl.Retries < 0 {
		return fmt.Errorf("crawl.retries must be >= 0")
	}
	if c.Crawl.DelaySeconds < 0 {
		return fmt.Errorf("crawl.delay_seconds must be >= 0")
	}
	if c.Crawl.JitterSeconds < 0 {
		return fmt.Errorf("crawl.jitter_seconds must be >= 0")
	}
	if c.Crawl.UserAgent == "" {
		return fmt.Errorf("crawl.user_agent must be set")
	}
	if c.Crawl.AllowedHost == "" {
		return fmt.Errorf("crawl.allowed_host must be set")
	}
	if !strings.HasPrefix(c.Crawl.AllowedPrefix, "/") {
		return fmt.Errorf("crawl.allowed_prefix must start with /")
	}
	switch c.Crawl.Fetcher {
	case "http", "colly":
	default:
		return fmt.Errorf("crawl.fetcher must be http or colly, got %q", c.Crawl.Fetcher)
	}
	if c.Chunk.MaxChars <= 0 {
		return fmt.Errorf("chunk.max_chars must be > 0")
	}
	if c.Chunk.OverlapChars < 0 || c.Chunk.OverlapChars >= c.Chunk.MaxChars {
		return fmt.Errorf("chunk.overlap_chars must be in [0, max_chars)")
	}
	if c.Embed.BatchSize <= 0 {
		return fmt.Errorf("embed.batch_size must be > 0")
	}
	if c.Status.Enabled && c.Status.Addr == "" {
		return fmt.Errorf("status.addr must be set when status server is enabled")
	}
	return nil
}

// Timeout is the per-request fetch timeout.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// Delay is the base politeness pause applied before each fetch.
func (c CrawlConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

// Jitter bounds the random component added to delays and backoff sleeps.
func (c CrawlConfig) Jitter() time.Duration {
	return time.Duration(c.JitterSeconds * float64(time.Second))
}

// Timeout is the per-request embedding call timeout.
func (c EmbedConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}
