package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragops/handbook-ingest/internal/clock/system"
	"github.com/ragops/handbook-ingest/internal/config"
	"github.com/ragops/handbook-ingest/internal/crawler"
)

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	cfg.Crawl.OutDir = filepath.Join(t.TempDir(), "raw")
	return cfg
}

// TestNewAppRejectsOutOfScopeSeeds asserts seed validation runs before any
// disk writes.
func TestNewAppRejectsOutOfScopeSeeds(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	cfg.Crawl.Seeds = []string{"https://example.com/handbook/", "https://about.gitlab.com/pricing/"}

	_, err := NewApp(cfg, system.Clock{}, nil)
	require.Error(t, err)
	assert.NoDirExists(t, cfg.Crawl.OutDir)
}

// TestNewAppPreparesOutputTree asserts a valid configuration yields the
// manifest file and pages directory.
func TestNewAppPreparesOutputTree(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	a, err := NewApp(cfg, system.Clock{}, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, a.Close(context.Background()))
	}()

	assert.FileExists(t, filepath.Join(cfg.Crawl.OutDir, "manifest.jsonl"))
	assert.DirExists(t, filepath.Join(cfg.Crawl.OutDir, "pages"))
	assert.NotEqual(t, "", a.RunID().String())
}

// TestNewAppLoadsResumeHistory asserts an existing manifest populates the
// resumed set.
func TestNewAppLoadsResumeHistory(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	require.NoError(t, os.MkdirAll(cfg.Crawl.OutDir, 0o750))
	manifest := `{"url":"https://about.gitlab.com/handbook/finance/","status":"ok","fetched_at":"2026-08-30T12:00:00Z","section":"finance"}
`
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Crawl.OutDir, "manifest.jsonl"), []byte(manifest), 0o600))

	a, err := NewApp(cfg, system.Clock{}, nil)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, a.Close(context.Background()))
	}()

	assert.Contains(t, a.resumed, "https://about.gitlab.com/handbook/finance/")
}

// TestNormalizeSeeds covers filtering, canonicalization, and dedupe.
func TestNormalizeSeeds(t *testing.T) {
	t.Parallel()

	scope := crawler.Scope{Host: "about.gitlab.com", Prefix: "/handbook/"}
	seeds := normalizeSeeds(scope, []string{
		"https://about.gitlab.com/handbook/finance/",
		"http://about.gitlab.com/handbook/finance/#top",
		"https://example.com/handbook/",
		"/handbook/legal/",
	})
	assert.Equal(t, []string{
		"https://about.gitlab.com/handbook/finance/",
		"https://about.gitlab.com/handbook/legal/",
	}, seeds)
}
