package cleaner

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragops/handbook-ingest/internal/config"
)

func testConfig(rawDir, outPath string) config.CleanConfig {
	return config.CleanConfig{RawPagesDir: rawDir, OutPath: outPath}
}

// TestExtractMainContent covers boilerplate removal, container selection,
// and line formatting.
func TestExtractMainContent(t *testing.T) {
	t.Parallel()

	page := []byte(`<html><head>
		<style>body { color: red }</style>
		<script>console.log("tracking")</script>
	</head><body>
		<nav><a href="/">Home</a></nav>
		<article>
			<h1>Spending Company Money</h1>
			<p>We trust team members to spend wisely.</p>
			<ul>
				<li>Keep receipts</li>
				<li>File reports monthly</li>
			</ul>
			<h2>Approvals</h2>
			<p>Large purchases need manager approval.</p>
		</article>
		<footer>Copyright</footer>
	</body></html>`)

	got := ExtractMainContent(page)
	want := "SPENDING COMPANY MONEY\n" +
		"We trust team members to spend wisely.\n" +
		"- Keep receipts\n" +
		"- File reports monthly\n" +
		"APPROVALS\n" +
		"Large purchases need manager approval."
	assert.Equal(t, want, got)
}

// TestExtractMainContentFallsBackToBody asserts pages without an article or
// main element still yield text.
func TestExtractMainContentFallsBackToBody(t *testing.T) {
	t.Parallel()

	page := []byte(`<html><body><p>Plain page.</p></body></html>`)
	assert.Equal(t, "Plain page.", ExtractMainContent(page))
}

// TestExtractMainContentPrefersRoleMain asserts div[role=main] wins over
// the body fallback.
func TestExtractMainContentPrefersRoleMain(t *testing.T) {
	t.Parallel()

	page := []byte(`<html><body>
		<div><p>Sidebar text.</p></div>
		<div role="main"><p>Main text.</p></div>
	</body></html>`)
	assert.Equal(t, "Main text.", ExtractMainContent(page))
}

// TestExtractMainContentEmptyInput asserts junk yields the empty string.
func TestExtractMainContentEmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, ExtractMainContent(nil))
	assert.Empty(t, ExtractMainContent([]byte(`<html><body><script>x</script></body></html>`)))
}

// TestSectionFromFilename maps saved page names back to sections.
func TestSectionFromFilename(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"finance-1a2b3c4d5e.html":        "finance",
		"security-standards-abcdef.html": "security",
		"legal-contracts-123456.html":    "legal",
		"people-group-hiring-aaa.html":   "people-group",
		"values-0123456789.html":         "handbook",
	}
	for name, want := range cases {
		assert.Equal(t, want, SectionFromFilename(name), "file %s", name)
	}
}

// TestCleanerRun runs the stage end to end over a temp directory.
func TestCleanerRun(t *testing.T) {
	t.Parallel()

	pagesDir := t.TempDir()
	writePage := func(name, html string) {
		require.NoError(t, os.WriteFile(filepath.Join(pagesDir, name), []byte(html), 0o600))
	}
	writePage("finance-aaa.html", `<html><body><article><h1>Budgets</h1><p>Plan yearly.</p></article></body></html>`)
	writePage("legal-bbb.html", `<html><body><article><p>Contract basics.</p></article></body></html>`)
	// Yields no content and must be skipped.
	writePage("empty-ccc.html", `<html><body><script>only();</script></body></html>`)

	outPath := filepath.Join(t.TempDir(), "clean", "handbook_clean.jsonl")
	c := New(testConfig(pagesDir, outPath), nil)
	require.NoError(t, c.Run(context.Background()))

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, records, 2)
	assert.Equal(t, "gitlab_handbook", records[0].Source)
	assert.Equal(t, "finance", records[0].Section)
	assert.Contains(t, records[0].CleanedText, "BUDGETS")
	assert.Equal(t, filepath.Join(pagesDir, "finance-aaa.html"), records[0].SourcePath)
	assert.Equal(t, "legal", records[1].Section)
}

// TestCleanerRunMissingDir asserts a missing input directory is an error.
func TestCleanerRunMissingDir(t *testing.T) {
	t.Parallel()

	c := New(testConfig(filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "out.jsonl")), nil)
	assert.Error(t, c.Run(context.Background()))
}
