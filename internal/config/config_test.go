package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults asserts a bare load yields the documented defaults.
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "data/raw", cfg.Crawl.OutDir)
	assert.Equal(t, 80, cfg.Crawl.MaxPages)
	assert.Equal(t, 4, cfg.Crawl.Concurrency)
	assert.Equal(t, 2, cfg.Crawl.Retries)
	assert.Equal(t, "about.gitlab.com", cfg.Crawl.AllowedHost)
	assert.Equal(t, "/handbook/", cfg.Crawl.AllowedPrefix)
	assert.Equal(t, "http", cfg.Crawl.Fetcher)
	assert.Equal(t, DefaultSeeds, cfg.Crawl.Seeds)
	assert.Equal(t, 1200, cfg.Chunk.MaxChars)
	assert.Equal(t, 200, cfg.Chunk.OverlapChars)
	assert.Equal(t, 16, cfg.Embed.BatchSize)
	assert.False(t, cfg.Status.Enabled)

	assert.Equal(t, 10*time.Second, cfg.Crawl.Timeout())
	assert.Equal(t, 700*time.Millisecond, cfg.Crawl.Delay())
	assert.Equal(t, 500*time.Millisecond, cfg.Crawl.Jitter())
}

// TestLoadFromFile reads overrides out of a YAML config file.
func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
crawl:
  out_dir: /tmp/handbook
  max_pages: 5
  concurrency: 2
  fetcher: colly
status:
  enabled: true
  addr: ":9999"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/handbook", cfg.Crawl.OutDir)
	assert.Equal(t, 5, cfg.Crawl.MaxPages)
	assert.Equal(t, 2, cfg.Crawl.Concurrency)
	assert.Equal(t, "colly", cfg.Crawl.Fetcher)
	assert.True(t, cfg.Status.Enabled)
	assert.Equal(t, ":9999", cfg.Status.Addr)
	// Untouched keys keep their defaults.
	assert.Equal(t, 2, cfg.Crawl.Retries)
	assert.Equal(t, "/handbook/", cfg.Crawl.AllowedPrefix)
}

// TestLoadMissingFile asserts an explicit but absent config file fails.
func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestLoadEnvOverride asserts INGEST_ environment variables win over
// defaults.
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("INGEST_CRAWL_MAX_PAGES", "7")
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Crawl.MaxPages)
}

// TestValidateRejectsBadValues walks the validation rules.
func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		cfg, err := Load(viper.New(), "")
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty out dir", func(c *Config) { c.Crawl.OutDir = "" }},
		{"negative pages", func(c *Config) { c.Crawl.MaxPages = -1 }},
		{"zero concurrency", func(c *Config) { c.Crawl.Concurrency = 0 }},
		{"negative retries", func(c *Config) { c.Crawl.Retries = -1 }},
		{"negative delay", func(c *Config) { c.Crawl.DelaySeconds = -0.1 }},
		{"empty user agent", func(c *Config) { c.Crawl.UserAgent = "" }},
		{"empty host", func(c *Config) { c.Crawl.AllowedHost = "" }},
		{"relative prefix", func(c *Config) { c.Crawl.AllowedPrefix = "handbook/" }},
		{"unknown fetcher", func(c *Config) { c.Crawl.Fetcher = "curl" }},
		{"zero chunk size", func(c *Config) { c.Chunk.MaxChars = 0 }},
		{"overlap too large", func(c *Config) { c.Chunk.OverlapChars = c.Chunk.MaxChars }},
		{"zero batch", func(c *Config) { c.Embed.BatchSize = 0 }},
		{"status without addr", func(c *Config) { c.Status.Enabled = true; c.Status.Addr = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
